package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/dealercheck/internal/cli"
	"github.com/Veraticus/dealercheck/internal/config"
	"github.com/Veraticus/dealercheck/internal/dealer"
	"github.com/Veraticus/dealercheck/internal/httpapi"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the checks as a JSON HTTP API",
		Long: `Start an HTTP server exposing:

  GET  /health
  POST /api/v1/validate
  POST /api/v1/checks/{status,reputation,legal}
  POST /api/v1/checks/comprehensive`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = appCfg.Server.Addr
			}

			checker, _, err := createChecker(appCfg, dealer.Config{})
			if err != nil {
				return err
			}

			api := httpapi.NewServer(checker, appCfg.Server.CORSOrigins, slog.Default())
			srv := &http.Server{
				Addr:              addr,
				Handler:           api.Routes(),
				ReadHeaderTimeout: 15 * time.Second,
				WriteTimeout:      serverWriteTimeout(appCfg.Dealer),
				IdleTimeout:       60 * time.Second,
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(fmt.Sprintf("Serving dealer API on %s (Ctrl+C to stop)", addr)))
			return runServer(cmd.Context(), srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}

// serverWriteTimeout leaves room for a comprehensive check, which waits on
// the slowest query.
func serverWriteTimeout(cfg config.DealerConfig) time.Duration {
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = dealer.DefaultQueryTimeout
	}
	return queryTimeout + 30*time.Second
}

// runServer serves until ctx is canceled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
