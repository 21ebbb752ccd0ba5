package database

import (
	"context"
	"fmt"
	"time"
)

// CheckHealth runs SELECT 1 against the database.
// The default timeout is 5 seconds unless the context has a deadline.
func CheckHealth(ctx context.Context, db Database) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	var result int
	if err := db.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result != 1 {
		return fmt.Errorf("health check returned unexpected result: %d", result)
	}

	return nil
}

// PingWithTimeout pings the database with its own timeout.
func (p *Pool) PingWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.Ping(ctx)
}

// HealthCheck checks connectivity and reports an exhausted pool as unhealthy.
func (p *Pool) HealthCheck(ctx context.Context) error {
	if err := CheckHealth(ctx, p); err != nil {
		return err
	}

	stats := p.Stats()
	if stats != nil {
		if stats.AcquireCount() > 0 && stats.IdleConns() == 0 && stats.TotalConns() == stats.MaxConns() {
			return fmt.Errorf("connection pool exhausted: %d/%d connections in use",
				stats.TotalConns(), stats.MaxConns())
		}
	}

	return nil
}

// Check implements health.Checker, so the pool can be registered directly:
//
//	h.RegisterChecker("database", pool)
func (p *Pool) Check(ctx context.Context) error {
	return p.HealthCheck(ctx)
}
