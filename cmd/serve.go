package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LukSky123/Prices.ai/internal/api"
)

// newServeCmd creates the 'serve' subcommand, which runs the catalog ingest
// HTTP server the upload client talks to.
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog ingest API",
		Long: `Serves the HTTP boundary: POST /api/scrape accepts normalized record
batches and resolves them into catalog items, markets and price observations.
Also exposes /healthz and Prometheus metrics on /metrics.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			store, err := appInstance.Store(cmd.Context())
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("port") {
				port = appInstance.Config().Server.Port
			}

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           api.NewServer(store, appInstance.Logger()).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				appInstance.Logger().Info("Ingest API listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
					return
				}
				errCh <- nil
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serve ingest API: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			appInstance.Logger().Info("Shutting down ingest API")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown ingest API: %w", err)
			}
			return <-errCh
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (defaults to server.port)")

	return cmd
}
