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
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/memory"
	transport "quiz-sync-service/internal/transport/http"

	"github.com/spf13/cobra"
)

// NewDevCmd builds a single-process mode: intake, scorer, and gateway wired
// over the in-memory bus with a sample quiz. No Redis or Postgres required.
func NewDevCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run the whole pipeline in one process with in-memory infrastructure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "8080", "port to listen on")
	return cmd
}

func runDev(ctx context.Context, port string) error {
	store := memory.NewQuizStore(sampleQuizzes())
	bus := memory.NewBus(4)
	presence := memory.NewPresence()
	cache := memory.NewQuizViewCache(app.NewQuizViewer(store), 10*time.Minute)
	guard := memory.NewAnswerLog()

	service := app.NewQuizService(store, cache, bus)
	engine := app.NewScoringEngine(store, bus, guard)
	hub := transport.NewHub()
	gateway := app.NewGateway(presence, store, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAPIHandler(service).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(gateway, hub).ServeWS)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumerErr := make(chan error, 2)
	go func() {
		consumerErr <- bus.Consume(ctx, domain.TopicSubmitted, scorerGroup, engine.HandleSubmission)
	}()
	go func() {
		consumerErr <- bus.Consume(ctx, domain.TopicNotification, gatewayGroup, gateway.HandleNotification)
	}()

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}
	go func() {
		log.Printf("starting dev pipeline on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start dev server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
		log.Println("shutting down dev pipeline...")
		cancel()
	case runErr = <-consumerErr:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
