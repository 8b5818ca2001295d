package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/coverlight/intake/events"
	"github.com/coverlight/intake/pipeline"
	"github.com/coverlight/intake/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch an intake directory and process submissions as they arrive",
	Long: `Watch monitors the configured intake directory. Each subdirectory is
one submission; once its files stop changing for the debounce period
the pipeline runs over them and the result is written beside the
submission, or into output.dir when set.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger(rootFlags.logLevel)
	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}

	metrics := pipeline.NewMetrics(prometheus.DefaultRegisterer)
	p, closeAudit, err := buildPipeline(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeAudit()

	opts := []watch.Option{watch.WithLogger(logger)}
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, events.WithLogger(logger))
		if err != nil {
			logger.Warn("NATS unavailable; completion events disabled", "error", err)
		} else {
			defer pub.Close()
			opts = append(opts, watch.WithNotifier(pub))
		}
	}

	w, err := watch.New(watch.Config{
		Dir:         cfg.Watch.Dir,
		Debounce:    cfg.Watch.Debounce,
		Concurrency: cfg.Watch.Concurrency,
		OutputDir:   cfg.Output.Dir,
		Pretty:      cfg.Output.Pretty,
	}, p, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Watch.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.Watch.MetricsAddr, logger)
	}

	return w.Run(ctx)
}

// serveMetrics exposes prometheus metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("Metrics server stopped", "error", err)
	}
}
