// Command server boots the feedhub read-side service: a FeedFetcher backed
// by a weighted TTL FeedCache, kept warm by a PeriodicRefresher, exposed
// through a minimal JSON HTTP surface standing in for the GraphQL layer
// (spec §1 Non-goals).
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"feedhub/internal/audit"
	"feedhub/internal/cache"
	"feedhub/internal/config"
	"feedhub/internal/fetch"
	httpambient "feedhub/internal/handler/http"
	"feedhub/internal/handler/http/middleware"
	"feedhub/internal/infra/db"
	"feedhub/internal/refresher"
	"feedhub/internal/runtime"
	"feedhub/internal/store"
	"feedhub/internal/store/postgres"
	"feedhub/internal/transport/httpapi"
	"feedhub/internal/usecase/entries"
	"feedhub/internal/usecase/subscribedfeeds"
	pkgconfig "feedhub/pkg/config"
	"feedhub/pkg/ratelimit"
)

func main() {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, sub := initStore(cfg, logger)
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", slog.Any("error", err))
			}
		}()
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent:      cfg.Fetcher.UserAgent,
		BuffLimit:      cfg.Fetcher.BuffLimit,
		ConnectTimeout: cfg.Fetcher.ConnectTimeout,
		TotalTimeout:   cfg.Fetcher.TotalTimeout,
	}, logger)

	feedCache := cache.New(cache.Config{
		MaxCacheSizeBytes: cfg.Cache.MaxCacheSizeBytes,
		TimeToLive:        cfg.Cache.TimeToLive,
	}, fetcher, logger)

	rt := runtime.New(audit.NewLogSink(logger))

	srv := &httpapi.Server{
		Runtime:         rt,
		SubscribedFeeds: &subscribedfeeds.Usecase{Store: sub, Cache: feedCache},
		Entries:         &entries.Usecase{Store: sub, Cache: feedCache, Logger: logger},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refr := refresher.New(fetcher, feedCache, 50, logger)
	go refr.Run(ctx, cfg.Cache.RefreshInterval)

	rl := buildIPRateLimiter(logger)

	mux := http.NewServeMux()
	srv.Routes(mux)
	mux.Handle("GET /healthz", &httpambient.HealthHandler{
		DB:                 db,
		Version:            serverVersion,
		IPRateLimiterStore: rl.store,
		IPCircuitBreaker:   rl.breaker,
		RateLimiterEnabled: rl.enabled,
	})
	mux.Handle("GET /readyz", &httpambient.ReadyHandler{DB: db})
	mux.Handle("GET /livez", &httpambient.LiveHandler{})
	mux.Handle("GET /metrics", httpambient.MetricsHandler())

	var handler http.Handler = mux
	if cfg.Auth.JWTSecret != "" {
		handler = httpapi.Authz([]byte(cfg.Auth.JWTSecret))(mux)
	}
	handler = httpambient.MetricsMiddleware(handler)
	handler = rl.middleware(handler)
	handler = httpambient.LimitRequestBody(maxRequestBodyBytes)(handler)
	handler = httpambient.Recover(logger)(handler)
	handler = httpambient.Logging(logger)(handler)

	runServer(ctx, cancel, logger, handler, cfg.Server.Port)
}

// serverVersion is reported by the /healthz endpoint.
const serverVersion = "dev"

// maxRequestBodyBytes bounds request bodies so a misbehaving or malicious
// client can't exhaust memory through the subscription-mutation endpoints.
const maxRequestBodyBytes = 1 << 20 // 1 MiB

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

// initStore opens a PostgreSQL-backed SubscriptionStore when
// FEEDHUB_DATABASE_URL is set, and falls back to the in-memory store
// otherwise (local development, tests).
func initStore(cfg *config.FeedHubConfig, logger *slog.Logger) (*sql.DB, store.Store) {
	if cfg.Database.URL == "" {
		logger.Info("no database configured, using in-memory subscription store")
		return nil, store.NewMemoryStore()
	}

	sqlDB, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	db.ApplyPoolConfig(sqlDB, db.ConnectionConfigFromEnv(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", slog.Any("error", err))
		os.Exit(1)
	}

	if err := postgres.MigrateUp(sqlDB); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("database connection established")
	return sqlDB, postgres.New(sqlDB)
}

// rateLimiterComponents bundles the IP rate limiter's middleware with the
// pieces HealthHandler needs to report its operational status.
type rateLimiterComponents struct {
	enabled    bool
	store      ratelimit.RateLimitStore
	breaker    *ratelimit.CircuitBreaker
	middleware func(http.Handler) http.Handler
}

// buildIPRateLimiter wraps the handler with a per-IP sliding-window limiter
// so one misbehaving client can't starve every other principal's fan-out
// budget, and hands back the store/breaker for health reporting.
func buildIPRateLimiter(logger *slog.Logger) rateLimiterComponents {
	rlCfg, err := pkgconfig.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if !rlCfg.Enabled {
		return rateLimiterComponents{
			middleware: func(next http.Handler) http.Handler { return next },
		}
	}

	rlStore := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{MaxKeys: rlCfg.MaxActiveKeys})
	algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
	metrics := ratelimit.NewPrometheusMetrics()
	breaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
		FailureThreshold: rlCfg.CircuitBreakerFailureThreshold,
		RecoveryTimeout:  rlCfg.CircuitBreakerResetTimeout,
	})

	limiter := middleware.NewIPRateLimiter(
		middleware.IPRateLimiterConfig{Limit: rlCfg.DefaultIPLimit, Window: rlCfg.DefaultIPWindow, Enabled: true},
		ipExtractor(logger),
		rlStore,
		algorithm,
		metrics,
		breaker,
	)
	return rateLimiterComponents{
		enabled:    true,
		store:      rlStore,
		breaker:    breaker,
		middleware: limiter.Middleware(),
	}
}

// ipExtractor picks the client-IP extraction strategy for the rate limiter.
// By default it trusts only the TCP connection's RemoteAddr; deployments that
// sit behind a reverse proxy can opt in to X-Forwarded-For/X-Real-IP via
// RATE_LIMIT_TRUST_PROXY and RATE_LIMIT_TRUSTED_PROXIES so the limiter keys
// on the real client IP instead of the proxy's.
func ipExtractor(logger *slog.Logger) middleware.IPExtractor {
	proxyCfg, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if !proxyCfg.Enabled {
		return &middleware.RemoteAddrExtractor{}
	}
	return middleware.NewTrustedProxyExtractor(*proxyCfg)
}

func runServer(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, handler http.Handler, port int) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting", slog.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Stop the refresher before the HTTP server finishes draining so no
	// new background fetch starts mid-shutdown.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
