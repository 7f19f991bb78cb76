package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/billing"
	"github.com/xraph/billing/config"
	"github.com/xraph/billing/notify/kafka"
	"github.com/xraph/billing/observability"
	"github.com/xraph/billing/store"
	"github.com/xraph/billing/store/memory"
	"github.com/xraph/billing/store/mongo"
	"github.com/xraph/billing/store/postgres"
	"github.com/xraph/billing/store/sqlite"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.DSN)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// execute opens the store, starts an engine wired from cfg, runs job and
// stops the engine, draining queued notifications. When metrics are
// enabled they are served for the lifetime of the job.
func execute(ctx context.Context, cfg *config.File, logger *slog.Logger, job func(context.Context, *billing.Engine) error) error {
	s, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}

	opts := []billing.Option{
		billing.WithConfig(cfg.Billing),
		billing.WithLogger(logger),
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewSyncProducer(cfg.Kafka.Producer())
		if err != nil {
			_ = s.Close()
			return err
		}
		defer closeProducer(producer, logger)
		opts = append(opts, billing.WithNotifier(kafka.NewNotifier(producer, cfg.Kafka.Topic)))
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		opts = append(opts, billing.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))))

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	eng := billing.New(s, opts...)
	if err := eng.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if metricsSrv != nil {
		g.Go(func() error {
			logger.Info("serving metrics", "addr", metricsSrv.Addr, "path", cfg.Metrics.Path)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-done:
			case <-gctx.Done():
			}
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metricsSrv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		defer close(done)
		return job(gctx, eng)
	})

	jobErr := g.Wait()
	if err := eng.Stop(); err != nil {
		return errors.Join(jobErr, fmt.Errorf("stop engine: %w", err))
	}
	return jobErr
}

func closeProducer(p sarama.SyncProducer, logger *slog.Logger) {
	if err := p.Close(); err != nil {
		logger.Error("close kafka producer", "error", err)
	}
}
