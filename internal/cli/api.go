package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/config"
	transport "quiz-sync-service/internal/transport/http"

	"github.com/spf13/cobra"
)

// NewAPICmd builds the subcommand running the request surface and submission
// intake.
func NewAPICmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Start the quiz API and submission intake",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPI(cmd.Context(), *configPath)
		},
	}
}

func runAPI(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	service := app.NewQuizService(d.store, d.cache, d.bus)
	handler := transport.NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)

	port := cfg.API.Port
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz api on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start api server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down api...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down api...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
