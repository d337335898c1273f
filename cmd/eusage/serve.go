package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/julianladisch/eusage-reports/internal/api"
	"github.com/julianladisch/eusage-reports/internal/config"
	"github.com/julianladisch/eusage-reports/internal/metrics"
	"github.com/julianladisch/eusage-reports/internal/ratelimit"
	"github.com/julianladisch/eusage-reports/internal/usage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the eUsage reporting server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	m := metrics.New()
	m.RegisterDBPool(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	store := usage.NewStore(pool)
	collector := usage.NewCollector(store, cfg.Ingest.BatchSize, cfg.Ingest.FlushInterval)
	collector.OnFlush(func(count int, err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.CollectorFlushesTotal.WithLabelValues(status).Inc()
		m.CollectorBufferSize.Set(float64(collector.BufferLen()))
	})
	go collector.Start(ctx)

	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)

	router := api.NewRouter(api.RouterDeps{
		Rows:            store,
		Ingest:          collector,
		Limiter:         limiter,
		Metrics:         m,
		Ping:            store.Ping,
		PubPeriodMonths: cfg.Reports.PubPeriodMonths,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	collector.Stop()

	return srv.Shutdown(shutdownCtx)
}
