package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"savvy/internal/amqp"
	"savvy/internal/cache"
	"savvy/internal/cli"
	"savvy/internal/config"
	"savvy/internal/dashboard"
	apphttp "savvy/internal/http"
	"savvy/internal/log"
	"savvy/internal/middleware/ratelimit"
	"savvy/internal/middleware/security"
	"savvy/internal/reference"
	"savvy/internal/session"
	"savvy/internal/viewmodel"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	ref, err := cli.LoadReference(cfg)
	if err != nil {
		return err
	}

	res, err := cli.OpenBackend(ctx, cfg, ref, logger.WithComponent(log.ComponentBackend))
	if err != nil {
		return err
	}
	defer func() {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Failed to close record store", "error", err)
			}
		}
	}()

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	sessions, err := newSessionProvider(cfg, ref, caches, logger)
	if err != nil {
		return err
	}

	sorter, err := viewmodel.NewSorter(cfg.CollationLocale)
	if err != nil {
		return err
	}

	opts := dashboard.Options{
		Reference:    ref,
		Sorter:       sorter,
		Logger:       logger.WithComponent(log.ComponentDashboard).Slog(),
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
		StoreTimeout: cfg.RequestTimeout,
		Caches:       caches,
	}

	// Change events are optional; without a broker the ledger mirror is
	// simply not fed.
	if cfg.AMQPURL != "" {
		events, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			return err
		}
		defer events.Close()
		opts.Events = events
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc, err := dashboard.New(res.Store, sessions, opts)
	if err != nil {
		return err
	}

	headers := security.DefaultHeadersConfig()
	headers.AllowedOrigins = cfg.AllowedOrigins
	rl := ratelimit.DefaultConfig()
	rl.RequestsPerMinute = cfg.RateLimitPerMinute

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Dashboard: svc,
		Sessions:  sessions,
		Logger:    logger.WithComponent(log.ComponentHTTP),
		Ready:     res.Ping,
		RateLimit: rl,
		Headers:   headers,
		Caches:    caches,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting savvy server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		return cli.Shutdown(logger, shutdownTimeout, srv.Shutdown)
	})
	return g.Wait()
}

// newSessionProvider verifies bearer tokens when a JWT secret is configured
// and otherwise serves every request as the demo owner.
func newSessionProvider(cfg *config.Config, ref *reference.Data, caches *cache.Manager, logger *log.Logger) (session.Provider, error) {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set - serving every request as the demo owner", "demo_owner", cfg.DemoOwner)
		return session.Static{ID: session.Identity{UserID: cfg.DemoOwner, Email: ref.Email, FullName: ref.Name}}, nil
	}
	revoked := cache.NewExpirySet()
	caches.Register("revoked_tokens", revoked)
	return session.NewJWTProvider([]byte(cfg.JWTSecret), revoked, logger.WithComponent(log.ComponentSession).Slog())
}
