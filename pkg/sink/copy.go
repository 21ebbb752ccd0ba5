package sink

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Combine-Capital/logtable/pkg/database"
	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logtable"
)

// CopyFromer is the part of a pgx connection the copy writer needs.
// database.Pool, database.Transaction and pgxmock pools implement it.
type CopyFromer interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, rows pgx.CopyFromSource) (int64, error)
}

// CopyWriter writes rows with the COPY protocol into a mapped table.
type CopyWriter struct {
	db      CopyFromer
	table   pgx.Identifier
	columns []string
}

// NewCopyWriter creates a writer for the table and columns of m.
func NewCopyWriter(db CopyFromer, m logtable.Mapping) *CopyWriter {
	return &CopyWriter{
		db:      db,
		table:   m.Identifier(),
		columns: m.ColumnNames(),
	}
}

// WriteRows copies rows and classifies any driver error.
func (w *CopyWriter) WriteRows(ctx context.Context, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := w.db.CopyFrom(ctx, w.table, w.columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, database.Classify(err)
	}
	return n, nil
}

// Transactor runs a function inside a database transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn database.TransactionFunc) error
}

// EnsureTable creates the schema and table of m when they do not exist.
func EnsureTable(ctx context.Context, db Transactor, m logtable.Mapping) error {
	err := db.WithTransaction(ctx, func(tx database.Transaction) error {
		if m.Schema != "" {
			stmt := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{m.Schema}.Sanitize()
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return database.Classify(err)
			}
		}
		if _, err := tx.Exec(ctx, m.CreateTableSQL()); err != nil {
			return database.Classify(err)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create table %s", m.Identifier().Sanitize())
	}
	return nil
}
