package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/addrindex/addrindex/internal/analytics"
	"github.com/addrindex/addrindex/internal/query"
	"github.com/addrindex/addrindex/internal/server"
	"github.com/addrindex/addrindex/internal/world"
	"github.com/addrindex/addrindex/pkg/config"
	"github.com/addrindex/addrindex/pkg/health"
	"github.com/addrindex/addrindex/pkg/kafka"
	"github.com/addrindex/addrindex/pkg/logger"
	"github.com/addrindex/addrindex/pkg/metrics"
	"github.com/addrindex/addrindex/pkg/middleware"
	pkgredis "github.com/addrindex/addrindex/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	worldFile := flag.String("world", "", "world file to serve (overrides config)")
	noAnalytics := flag.Bool("no-analytics", false, "disable the Kafka analytics collector")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *worldFile != "" {
		cfg.Server.WorldFile = *worldFile
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting suggest service", "port", cfg.Server.Port, "world_file", cfg.Server.WorldFile)

	w, err := world.ReadFile(cfg.Server.WorldFile)
	if err != nil {
		slog.Error("failed to load world", "file", cfg.Server.WorldFile, "error", err)
		os.Exit(1)
	}
	stats := w.Stats()
	slog.Info("world loaded",
		"countries", stats.Countries,
		"street_names", stats.StreetNames,
		"housenumber_pool", stats.HousenumberPool,
	)
	holder := server.NewHolder(query.New(w))

	m := metrics.New()
	m.WorldCountries.Set(float64(stats.Countries))

	var suggestCache *server.SuggestCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, suggestion caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		suggestCache = server.NewSuggestCache(redisClient, cfg.Redis)
		slog.Info("suggestion cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *analytics.Collector
	if !*noAnalytics {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SuggestEvents)
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(ctx)
		defer collector.Close()
		slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.SuggestEvents)
	}

	checker := health.NewChecker()
	checker.Register("world", func(ctx context.Context) health.ComponentHealth {
		if n := holder.Engine().World().CountryCount(); n > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d countries", n)}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "empty world"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := server.New(holder, suggestCache, collector, m, cfg.Server.WorldFile, cfg.Suggest.DefaultLimit, cfg.Suggest.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/cities", h.Cities)
	mux.HandleFunc("GET /api/v1/zips", h.Zips)
	mux.HandleFunc("GET /api/v1/streets", h.Streets)
	mux.HandleFunc("GET /api/v1/housenumbers", h.Housenumbers)
	mux.HandleFunc("GET /api/v1/world", h.WorldStats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /admin/reload", h.Reload)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var stopMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		stopMetrics = metrics.StartServer(cfg.Metrics.Port)
		slog.Info("metrics server listening", "port", cfg.Metrics.Port)
	}

	// SIGHUP reloads the world file in place, same as POST /admin/reload.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				stats, err := holder.ReloadFrom(cfg.Server.WorldFile)
				if err != nil {
					m.WorldReloadsTotal.WithLabelValues("error").Inc()
					slog.Error("world reload failed", "file", cfg.Server.WorldFile, "error", err)
					continue
				}
				m.WorldReloadsTotal.WithLabelValues("ok").Inc()
				m.WorldCountries.Set(float64(stats.Countries))
				if suggestCache != nil {
					if err := suggestCache.Invalidate(context.Background()); err != nil {
						slog.Error("cache invalidation after reload failed", "error", err)
					}
				}
				slog.Info("world reloaded", "countries", stats.Countries)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if stopMetrics != nil {
			if err := stopMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("suggest service listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("suggest service stopped")
}
