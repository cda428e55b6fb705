package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/swooosh/internal/adapter/ratelimit"
	"github.com/vadimbarashkov/swooosh/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/swooosh/internal/config"
	"github.com/vadimbarashkov/swooosh/internal/usecase"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/swooosh/internal/adapter/delivery/http"
	pgpkg "github.com/vadimbarashkov/swooosh/pkg/postgres"
	redispkg "github.com/vadimbarashkov/swooosh/pkg/redis"
)

const (
	serviceName       = "swooosh"
	connectRetryDelay = 2 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newLogger(cfg *config.Config) *httplog.Logger {
	return httplog.NewLogger(serviceName, httplog.Options{
		JSON:     cfg.Log.JSON,
		LogLevel: cfg.Log.SlogLevel(),
		Concise:  cfg.Env == config.EnvDev,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg)

	db, err := pgpkg.New(
		ctx,
		cfg.Postgres.DSN(),
		pgpkg.WithConnectRetries(cfg.Postgres.ConnectAttempts, connectRetryDelay),
		pgpkg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pgpkg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pgpkg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pgpkg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	applied, err := pgpkg.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}
	logger.Info("database ready", slog.Bool("migrated", applied))

	rdb, err := redispkg.New(
		ctx,
		cfg.Redis.URL,
		redispkg.WithDialTimeout(cfg.Redis.DialTimeout),
		redispkg.WithReadTimeout(cfg.Redis.ReadTimeout),
		redispkg.WithWriteTimeout(cfg.Redis.WriteTimeout),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}
	defer rdb.Close()

	urlRepo := postgres.NewURLRepository(db, cfg.Postgres.QueryTimeout)
	urlUseCase := usecase.NewURLUseCase(urlRepo, cfg.IDLength)
	limiter := ratelimit.NewSlidingWindow(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, urlUseCase, limiter),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
	}

	listen := server.ListenAndServe
	if cfg.Env == config.EnvProd {
		listen = func() error {
			return server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		}
	}

	logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

	return serve(ctx, logger, server, listen)
}

// serve runs listen until ctx is done, then drains in-flight requests for at
// most shutdownTimeout. Request contexts are not derived from ctx.
func serve(ctx context.Context, logger *httplog.Logger, server *http.Server, listen func() error) error {
	const op = "app.serve"

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := listen(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
