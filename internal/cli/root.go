package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "quiz-sync",
		Short: "Real-time quiz pipeline: intake, scoring, and score fan-out",
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewAPICmd(&configPath))
	cmd.AddCommand(NewScorerCmd(&configPath))
	cmd.AddCommand(NewGatewayCmd(&configPath))
	cmd.AddCommand(NewDevCmd())
	cmd.AddCommand(NewMigrateCmd(&configPath))
	return cmd
}
