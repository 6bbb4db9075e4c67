package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koscakluka/ema-interview/internal/config"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		port         int
		turnDecision string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interview WebSocket endpoint and the static client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("turn-decision") {
				cfg.TurnDecision = turnDecision
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			initLogger(cfg)
			slog.Info("startup: configuration loaded", "env", cfg.Env, "turn_decision", cfg.TurnDecision, "stt_provider", cfg.STTProvider)

			injector := setupDI(cfg)
			defer func() {
				if report := injector.Shutdown(); report != nil && !report.Succeed {
					slog.Warn("failed to shut down services", "error", report.Error())
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, injector)
		},
	}

	cmd.Flags().IntVar(&port, "port", 3000, "port to listen on, overrides PORT")
	cmd.Flags().StringVar(&turnDecision, "turn-decision", config.TurnDecisionModel,
		fmt.Sprintf("turn decision strategy (%s or %s), overrides TURN_DECISION", config.TurnDecisionModel, config.TurnDecisionHeuristic))
	return cmd
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func serve(ctx context.Context, injector do.Injector) error {
	srv, err := do.Invoke[*http.Server](injector)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("server listening", "stage", "server", "addr", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down", "stage", "server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked WebSocket connections are not tracked by Shutdown, they end
	// with the process.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
