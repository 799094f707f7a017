// Package postgres implements the repository interfaces on PostgreSQL
// through GORM. The schema is owned by the SQL files in migrations/, not by
// AutoMigrate, so the sqlite and postgres stores stay column-for-column
// identical.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DB wraps a GORM handle and implements repository.Store.
type DB struct {
	gorm *gorm.DB
}

// Options tunes how New connects.
type Options struct {
	// ConnectTimeout bounds the total time spent retrying the first
	// connection. Zero means one minute.
	ConnectTimeout time.Duration
	// SkipMigrations leaves the schema alone.
	SkipMigrations bool
}

// New connects to databaseURL, retrying with exponential backoff while the
// server comes up, then runs migrations.
func New(ctx context.Context, databaseURL string, logger *slog.Logger, opts Options) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres: database URL is required")
	}
	dsn, err := ensureTimezoneUTC(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing database URL: %w", err)
	}

	timeout := opts.ConnectTimeout
	if timeout == 0 {
		timeout = time.Minute
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = timeout

	var gdb *gorm.DB
	connect := func() error {
		g, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return err
		}
		sqlDB, err := g.DB()
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return err
		}
		gdb = g
		return nil
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, fmt.Errorf("postgres: connecting: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres: getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if !opts.SkipMigrations {
		if err := RunMigrations(gdb, logger); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	return &DB{gorm: gdb}, nil
}

// NewWithGorm wraps an already-open handle. Tests use it with sqlmock.
func NewWithGorm(g *gorm.DB) *DB {
	return &DB{gorm: g}
}

func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return fmt.Errorf("postgres: getting sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return fmt.Errorf("postgres: getting sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// ensureTimezoneUTC pins the session time zone so timestamps round-trip
// the same way on every host.
func ensureTimezoneUTC(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("TimeZone") == "" {
		q.Set("TimeZone", "UTC")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// translateUnique maps a unique_violation on the users table to a
// field-level conflict. Other errors pass through.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return apperror.ConflictField("username", "This username is already taken.")
	case "users_email_key":
		return apperror.ConflictField("email", "This email is already taken.")
	case "users_pkey":
		return apperror.ConflictField("id", "This account already exists.")
	}
	return apperror.ConflictField("", "Unique constraint failed.")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
