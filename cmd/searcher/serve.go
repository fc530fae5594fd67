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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/redis"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		instance string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search page and JSON API over HTTP",
		Long: `Serve answers queries at GET / (HTML form) and GET /api/v1/search?q= (JSON).

The index is reloaded when the indexer announces a build on the
index-complete topic, or, without Kafka, when its files in the data
directory are replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, instance, debounce)
		},
	}
	hostname, _ := os.Hostname()
	cmd.Flags().StringVar(&instance, "instance", hostname, "consumer group suffix; every searcher needs its own")
	cmd.Flags().DurationVar(&debounce, "reload-debounce", time.Second, "quiet period after index files change before reloading")
	return cmd
}

func runServe(ctx context.Context, a *app, instance string, debounce time.Duration) error {
	cfg := a.cfg
	m := metrics.New(prometheus.DefaultRegisterer)

	exec, err := a.openExecutor(ctx, m)
	if err != nil {
		return err
	}

	var remote cache.Remote
	if cfg.Redis.Addr != "" {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, shared cache tier disabled", "error", err)
		} else {
			defer redisClient.Close()
			remote = redisClient
			slog.Info("shared cache tier enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	queryCache, err := cache.New(cfg.Cache, remote, cfg.Redis.CacheTTL, m)
	if err != nil {
		return err
	}

	reloader := reload.New(cfg.Indexer.DataDir, exec, queryCache, cfg.Indexer.LockTimeout, m)
	errCh := make(chan error, 2)
	if cfg.Kafka.Enabled() {
		c := consumer.New(cfg.Kafka, instance, cfg.Indexer.DataDir, reloader.OnIndexComplete)
		defer c.Close()
		go func() {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("index-complete consumer stopped", "error", err)
			}
		}()
		slog.Info("reloading on index-complete events", "topic", cfg.Kafka.Topics.IndexComplete)
	} else {
		go func() {
			if err := reloader.Watch(ctx, debounce); err != nil {
				slog.Error("data directory watcher stopped", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index", indexCheck(exec))
	if c, ok := remote.(*pkgredis.Client); ok {
		checker.RegisterOptional("redis", c.Check)
	}

	mux := http.NewServeMux()
	handler.New(exec, queryCache, cfg.Search).Routes(mux)
	mux.Handle("GET /health/live", checker.LiveHandler())
	mux.Handle("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)
	h = middleware.Metrics(m)(h)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + time.Second,
	}
	go func() {
		slog.Info("search server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	}

	slog.Info("shutting down search server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func indexCheck(exec *executor.Executor) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		ix := exec.Index()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", ix.DocCount(), ix.TermCount()),
		}
	}
}
