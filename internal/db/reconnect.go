package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReconnectWithRetry attempts to re-establish a lost database connection with
// exponential backoff. It replaces the wrapped *sql.DB on success.
func (db *DB) ReconnectWithRetry(ctx context.Context, log *zap.Logger, maxRetries int) error {
	if log == nil {
		log = zap.NewNop()
	}

	backoff := time.Second
	for attempt := 1; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		newDB, err := Connect(db.config)
		if err == nil {
			old := db.DB
			db.DB = newDB.DB
			old.Close()
			log.Info("database reconnected", zap.Int("attempt", attempt))
			return nil
		}

		log.Warn("database reconnect failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}

	return fmt.Errorf("failed to reconnect after %d attempts", maxRetries)
}

// EnsureConnection pings the database and reconnects if the connection has
// been lost.
func (db *DB) EnsureConnection(ctx context.Context, log *zap.Logger) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err == nil {
		return nil
	}

	return db.ReconnectWithRetry(ctx, log, 5)
}

// HealthCheck reports whether the database is reachable.
func (db *DB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// WithRetry runs op, retrying once after a reconnect when the failure looks
// like a lost connection.
func (db *DB) WithRetry(ctx context.Context, log *zap.Logger, op func() error) error {
	err := op()
	if err == nil {
		return nil
	}

	if !isConnectionError(err) {
		return err
	}

	if rerr := db.EnsureConnection(ctx, log); rerr != nil {
		return fmt.Errorf("operation failed and reconnect failed: %w", err)
	}

	return op()
}

// isConnectionError reports whether err looks like a lost-connection failure
// worth a reconnect, as opposed to a query error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
