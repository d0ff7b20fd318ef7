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
	"quiz-sync-service/internal/domain"
	transport "quiz-sync-service/internal/transport/http"

	"github.com/spf13/cobra"
)

const gatewayGroup = "gateway"

// NewGatewayCmd builds the subcommand running the session gateway.
func NewGatewayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the session gateway (websocket fan-out)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd.Context(), *configPath)
		},
	}
}

func runGateway(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	hub := transport.NewHub()
	gateway := app.NewGateway(d.presence, d.store, hub)
	wsHandler := transport.NewWSHandler(gateway, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	port := cfg.Gateway.Port
	if port == "" {
		port = "8081"
	}
	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- d.bus.Consume(ctx, domain.TopicNotification, gatewayGroup, gateway.HandleNotification)
	}()

	go func() {
		log.Printf("starting session gateway on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start gateway server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
		log.Println("shutting down gateway...")
		cancel()
		runErr = <-consumerErr
	case err := <-consumerErr:
		// A dead notification consumer makes this process useless; fail fast.
		runErr = err
	case <-ctx.Done():
		runErr = <-consumerErr
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
