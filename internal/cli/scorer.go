package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/config"
	"quiz-sync-service/internal/domain"

	"github.com/spf13/cobra"
)

const scorerGroup = "scorer"

// NewScorerCmd builds the subcommand running the scoring engine.
func NewScorerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scorer",
		Short: "Start the scoring engine consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScorer(cmd.Context(), *configPath)
		},
	}
}

func runScorer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	engine := app.NewScoringEngine(d.store, d.bus, d.guard)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- d.bus.Consume(ctx, domain.TopicSubmitted, scorerGroup, engine.HandleSubmission)
	}()
	log.Printf("scorer consuming %s (answer-once guard: %v)", domain.TopicSubmitted, cfg.AnswerOnceEnabled())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down scorer...")
		cancel()
		return <-consumerErr
	case err := <-consumerErr:
		// Consumer loops only stop on infrastructure failure; fail fast and
		// let the supervisor restart the process.
		return err
	}
}
