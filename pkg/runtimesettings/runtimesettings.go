// Package runtimesettings applies settings that are only known at runtime
// on top of the values read from the secrets store.
//
// The default source passes values through unchanged. The database source
// reads key/value rows from a settings table and lets them override what
// the secrets store returned.
package runtimesettings

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Combine-Capital/logtable/pkg/database"
	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logging"
	"github.com/Combine-Capital/logtable/pkg/secrets"
)

// Source names accepted in configuration.
const (
	SourcePassthrough = "passthrough"
	SourceDatabase    = "database"
)

// DefaultTable is the settings table read by the database source.
const DefaultTable = "RuntimeSettings"

// Source layers runtime settings over values. Implementations must not
// modify values.
type Source interface {
	Apply(ctx context.Context, values secrets.Values) (secrets.Values, error)
}

// Passthrough returns its input unchanged.
type Passthrough struct{}

func (Passthrough) Apply(_ context.Context, values secrets.Values) (secrets.Values, error) {
	return values.Clone(), nil
}

// Querier runs a query that returns rows. database.Pool implements it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Database reads settings from a two-column key/value table.
type Database struct {
	db    Querier
	table pgx.Identifier
}

// NewDatabase creates a database source reading table. Dotted names are
// not split; pass schema and table separately to qualify.
func NewDatabase(db Querier, table ...string) *Database {
	if len(table) == 0 {
		table = []string{DefaultTable}
	}
	return &Database{db: db, table: pgx.Identifier(table)}
}

func (d *Database) query() string {
	return "SELECT key, value FROM " + d.table.Sanitize() + " ORDER BY key"
}

// Apply returns values with every row of the settings table set on top.
func (d *Database) Apply(ctx context.Context, values secrets.Values) (secrets.Values, error) {
	rows, err := d.db.Query(ctx, d.query())
	if err != nil {
		return nil, errors.Wrap(database.Classify(err), "failed to query runtime settings")
	}

	settings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) ([2]string, error) {
		var kv [2]string
		err := row.Scan(&kv[0], &kv[1])
		return kv, err
	})
	if err != nil {
		return nil, errors.Wrap(database.Classify(err), "failed to read runtime settings")
	}

	out := values.Clone()
	for _, kv := range settings {
		if kv[0] == "" {
			return nil, errors.NewInvalidInput("key", "runtime setting with an empty key")
		}
		out[kv[0]] = kv[1]
	}
	return out, nil
}

// Update applies src to values. Failures are logged at Error and returned.
func Update(ctx context.Context, src Source, values secrets.Values, log *logging.Logger) (secrets.Values, error) {
	out, err := src.Apply(ctx, values.Clone())
	if err != nil {
		log.Error(err, "An error occurred trying to apply the runtime settings")
		return nil, errors.Wrap(err, "failed to apply runtime settings")
	}
	log.Debug("Applied runtime settings, {Count} values configured", len(out))
	return out, nil
}
