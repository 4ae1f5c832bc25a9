package db

import (
	"context"
	"fmt"
	"time"

	"agora/internal/logging"
	"agora/internal/models"
	"agora/internal/store"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	connectMaxElapsed = 30 * time.Second
	connectInitial    = 500 * time.Millisecond
	connectMaxWait    = 5 * time.Second
)

// Open connects to Postgres, retrying with exponential backoff while the database comes up.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if logger.Core().Enabled(zap.DebugLevel) {
		level = gormlogger.Info
	}

	var db *gorm.DB
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(connectInitial),
		backoff.WithMaxInterval(connectMaxWait),
		backoff.WithMaxElapsedTime(connectMaxElapsed),
	)
	err := backoff.RetryNotify(func() error {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logging.NewGormLogger(logger, level),
		})
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return err
		}
		db = conn
		return nil
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

// Migrate creates or updates the schema and seeds the default categories.
func Migrate(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Profile{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.PostVote{},
		&models.CommentVote{},
	); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("Database migration completed")

	if err := store.NewGormStore(db).SeedCategories(ctx, store.DefaultCategories()); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}
