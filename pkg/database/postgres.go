package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/pkg/config"
)

const pingTimeout = 5 * time.Second

type pinger interface {
	PingContext(ctx context.Context) error
}

// NewPostgres opens the connection pool described by cfg and waits until the
// database answers, retrying up to cfg.ConnectRetries times.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := waitForDatabase(ctx, db, cfg.ConnectRetries, cfg.RetryDelay, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("postgres connected", zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.String("database", cfg.Name))
	return db, nil
}

// DSN renders cfg as a lib/pq key/value connection string.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
}

func waitForDatabase(ctx context.Context, db pinger, retries int, delay time.Duration, logger *zap.Logger) error {
	if retries < 0 {
		retries = 0
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == retries {
			break
		}

		logger.Warn("postgres not ready, retrying", zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping postgres: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("ping postgres after %d attempts: %w", retries+1, err)
}
