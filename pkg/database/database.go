// Package database provides the PostgreSQL connection pool used by the log
// table sink and the runtime settings source. It wraps pgxpool with the
// configured limits and timeouts, adds transactions and health checks, and
// classifies driver errors into retryable and permanent failures.
//
// Example usage:
//
//	pool, err := database.NewPool(ctx, connString, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	n, err := pool.CopyFrom(ctx, pgx.Identifier{"EventLog"}, columns, pgx.CopyFromRows(rows))
//	if err != nil {
//	    return database.Classify(err)
//	}
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database defines the common interface for database operations.
// Both Pool and Transaction implement this interface, allowing for
// consistent API whether working with the connection pool or within a transaction.
type Database interface {
	// Query executes a query that returns rows, typically a SELECT.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)

	// QueryRow executes a query that is expected to return at most one row.
	// Errors are deferred until Row's Scan method is called.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row

	// Exec executes a query that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)

	// CopyFrom bulk-loads rows with the COPY protocol and returns the number
	// of rows copied.
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, rows pgx.CopyFromSource) (int64, error)
}

// Transaction extends Database with transaction control methods.
type Transaction interface {
	Database

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction.
	Rollback(ctx context.Context) error
}

// TransactionFunc is a function that performs database operations within a transaction.
// If it returns an error, the transaction will be rolled back.
// If it returns nil, the transaction will be committed.
type TransactionFunc func(tx Transaction) error
