package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/tablescout/api"
	"github.com/use-agent/tablescout/cache"
	"github.com/use-agent/tablescout/jobs"
	"github.com/use-agent/tablescout/metrics"
	"github.com/use-agent/tablescout/scraper"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("tablescout starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"backend", cfg.Browser.Backend,
		)

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		pl, err := newPipeline(cfg)
		if err != nil {
			return err
		}

		cc := cache.New[*scraper.Outcome](cfg.Cache.MaxEntries)
		defer cc.Close()
		mt := metrics.New()

		mgr := jobs.NewManager(pl,
			jobs.WithCache(cc),
			jobs.WithMetrics(mt),
			jobs.WithWebhook(cfg.Webhook),
			jobs.WithTTL(cfg.Jobs.TTL),
		)
		// runs in flight when the server stops are canceled; their
		// browsers are closed before this returns
		defer mgr.Close()

		router := api.NewRouter(cfg, reg, mgr, mt, time.Now())

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr, "profiles", len(reg.List()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case <-cmd.Context().Done():
			slog.Info("shutdown signal received")
		}

		// Give in-flight requests 5 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("tablescout stopped")
		return nil
	},
}
