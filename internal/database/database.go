// Package database provides the Postgres access layer: connection
// management and the repositories for products, orders, returns, and
// alerts.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"

	"github.com/shopmesh/shopmesh/internal/observability"
)

// Config holds database connection configuration
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// Database represents the database access layer
type Database struct {
	db     *sqlx.DB
	config Config
	logger observability.Logger
}

// NewDatabase connects to Postgres, retrying with exponential backoff
// until the connect timeout elapses. Transient startup ordering (the
// database container coming up after the service) is the common case
// this absorbs.
func NewDatabase(ctx context.Context, cfg Config, logger observability.Logger) (*Database, error) {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	dsn := cfg.DSN
	if dsn == "" {
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}

	var db *sqlx.DB
	operation := func() error {
		var err error
		db, err = sqlx.ConnectContext(ctx, cfg.Driver, dsn)
		if err != nil {
			logger.Warn("database connection failed, retrying", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(connectTimeout),
	), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Database{
		db:     db,
		config: cfg,
		logger: logger,
	}, nil
}

// NewDatabaseWithDB wraps an existing connection. Used by tests.
func NewDatabaseWithDB(db *sqlx.DB, cfg Config) *Database {
	return &Database{
		db:     db,
		config: cfg,
		logger: observability.NewNoopLogger(),
	}
}

// DB returns the underlying sqlx connection
func (d *Database) DB() *sqlx.DB {
	return d.db
}

// Ping verifies the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}
