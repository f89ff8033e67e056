// Command feedd runs the feed generation HTTP service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/vibeshare/feedservice/internal/app"
	"github.com/vibeshare/feedservice/internal/app/httpapi"
	"github.com/vibeshare/feedservice/internal/app/storage/postgres"
	"github.com/vibeshare/feedservice/internal/app/storage/redisstore"
	"github.com/vibeshare/feedservice/internal/config"
	"github.com/vibeshare/feedservice/pkg/logger"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedd: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}).WithField("component", "feedd")

	stores, cleanup, err := buildStores(cfg, log)
	if err != nil {
		log.WithError(err).Error("store initialization failed")
		os.Exit(1)
	}
	defer cleanup()

	application, err := app.New(app.Options{Stores: stores, Config: cfg, Logger: log})
	if err != nil {
		log.WithError(err).Error("application assembly failed")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("application start failed")
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpapi.NewHandler(application, cfg.Server, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	log.WithField("addr", srv.Addr).Info("feed service listening")

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown incomplete")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application stop incomplete")
	}
	log.Info("feed service stopped")
}

// buildStores selects the persistence backends from configuration: Postgres
// when DATABASE_URL is set, Redis for the seen store when REDIS_ADDR is set,
// memory otherwise.
func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, func(), error) {
	var stores app.Stores
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Database.DSN != "" {
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return stores, cleanup, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)
		closers = append(closers, func() { _ = db.Close() })

		if err := db.Ping(); err != nil {
			return stores, cleanup, fmt.Errorf("ping database: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			return stores, cleanup, fmt.Errorf("migrate database: %w", err)
		}

		pg := postgres.New(db)
		stores = app.Stores{
			Profiles: pg,
			Signals:  pg,
			Follows:  pg,
			Posts:    pg,
			Ads:      pg,
			Seen:     pg,
		}
		log.Info("using postgres store")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		stores.Seen = redisstore.New(client, cfg.Feed.SeenWindow)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis seen store")
	}

	return stores, cleanup, nil
}
