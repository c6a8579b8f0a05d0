package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"sniper/internal/engine"
	"sniper/internal/metrics"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stay connected and serve /healthz, /metrics and /accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = app.Config.Runtime.MetricsAddr
			}
			return app.withDesk(cmd, func(ctx context.Context, desk *engine.Desk) error {
				return serve(ctx, app, desk, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: runtime.metrics_addr)")
	return cmd
}

func serve(ctx context.Context, app *App, desk *engine.Desk, addr string) error {
	srv := &http.Server{
		Addr: addr,
		Handler: metrics.NewRouter(func(ctx context.Context) (any, error) {
			return desk.Status(ctx)
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Log.WithComponent("http").WithField("addr", addr).Info("Listening.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.Log.WithComponent("http").Info("Shutting down.")
	return srv.Shutdown(shutdownCtx)
}
