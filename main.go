package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"storerate/internal/cache"
	"storerate/internal/config"
	"storerate/internal/database"
	"storerate/internal/logger"
	"storerate/internal/repositories"
	"storerate/internal/seed"
	"storerate/internal/server"
	"storerate/internal/storage"
	"storerate/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := newApp(ctx, cfg, log, true)
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}
	defer cleanup()

	go func() {
		log.WithField("addr", cfg.AppPort).Info("starting server")
		if err := app.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Error("server stopped listening")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("error during fiber shutdown")
	}
	log.Info("server gracefully stopped")
}

// newApp connects the database and the optional redis and RabbitMQ backends
// and builds the HTTP app. cleanup releases every opened connection.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger, accessLog bool) (*fiber.App, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if !cfg.HasJWTSecret() {
		log.Error("JWT_SECRET is not set; every token operation will fail with a configuration error")
	}

	db, err := database.Open(ctx, database.Options{
		Driver:          cfg.DatabaseDriver,
		DSN:             cfg.DatabaseDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMin) * time.Minute,
		Log:             log,
	})
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := database.Migrate(db); err != nil {
		return nil, cleanup, err
	}
	log.WithField("driver", cfg.DatabaseDriver).Info("database ready")

	if cfg.SeedDemoData {
		seeded, err := seed.Run(ctx,
			repositories.NewGORMUserRepository(db),
			repositories.NewGORMStoreRepository(db),
			repositories.NewGORMReviewRepository(db),
			log,
		)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to seed demo data: %w", err)
		}
		log.WithField("seeded", seeded).Info("demo data checked")
	}

	images, err := storage.NewImageStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return nil, cleanup, err
	}

	opts := server.Options{
		Config:    cfg,
		DB:        db,
		Log:       log,
		Images:    images,
		AccessLog: accessLog,
	}

	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, store cache disabled")
		} else {
			closers = append(closers, func() { client.Close() })
			opts.Cache = cache.NewStoreCache(client, cfg.CacheTTL)
			log.WithField("addr", cfg.RedisAddr).Info("store cache enabled")
		}
	}

	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue}, log)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable, domain events disabled")
		} else {
			closers = append(closers, func() {
				if err := mq.Close(); err != nil {
					log.WithError(err).Warn("failed to close rabbitmq client")
				}
			})
			opts.Events = mq
			if err := mq.ConsumeEvents(rabbitmq.LogEvent(log)); err != nil {
				log.WithError(err).Warn("failed to start rabbitmq consumer")
			}
		}
	}

	return server.New(opts), cleanup, nil
}
