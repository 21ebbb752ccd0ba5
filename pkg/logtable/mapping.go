package logtable

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logevent"
)

// Built-in mapping versions. Each one matches a revision of the legacy table
// that is still deployed somewhere.
const (
	VersionV1 = "legacy-v1"
	VersionV2 = "legacy-v2"
	VersionV3 = "legacy-v3"

	DefaultVersion = VersionV3

	// DefaultTable is the legacy table name used by the built-in versions.
	DefaultTable = "EventLog"
)

// Mapping is the column mapping for one destination table. It is plain data:
// the sink writes Columns left to right and nothing is inferred.
type Mapping struct {
	Version      string   `json:"version"`
	Schema       string   `json:"schema,omitempty"`
	Table        string   `json:"table"`
	Columns      []Column `json:"columns"`
	TimestampUTC bool     `json:"timestamp_utc"`

	// IncludeID keeps the surrogate identity column. It is generated by the
	// database and never written by the sink.
	IncludeID bool   `json:"include_id"`
	IDColumn  string `json:"id_column,omitempty"`
}

func v1Columns() []Column {
	return []Column{
		{Name: "type", Source: Type, Type: VarChar, MaxLength: 50},
		{Name: "logDate", Source: EventTimestamp, Type: Timestamp},
		{Name: "eventid", Source: EventID, Type: Int},
		{Name: "title", Source: Title, Type: VarChar, MaxLength: 100, AllowNull: true},
		{Name: "category", Source: Category, Type: VarChar, MaxLength: 50, AllowNull: true},
		{Name: "message", Source: Message, Type: VarChar, MaxLength: 1000, AllowNull: true},
		{Name: "exceptionText", Source: ExceptionText, Type: VarChar, AllowNull: true},
	}
}

var builtins = map[string]func() []Column{
	VersionV1: v1Columns,
	VersionV2: func() []Column {
		return append(v1Columns(),
			Column{Name: "computer", Source: Computer, Type: VarChar, MaxLength: 50, AllowNull: true},
		)
	},
	VersionV3: func() []Column {
		return append(v1Columns(),
			Column{Name: "computer", Source: Computer, Type: VarChar, MaxLength: 50, AllowNull: true},
			Column{Name: "registeredAppId", Source: RegisteredAppID, Type: VarChar, MaxLength: 50, AllowNull: true},
		)
	},
}

// Versions returns the names of the built-in mappings, sorted.
func Versions() []string {
	out := make([]string, 0, len(builtins))
	for v := range builtins {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Lookup returns a fresh copy of a built-in mapping.
func Lookup(version string) (Mapping, error) {
	cols, ok := builtins[version]
	if !ok {
		return Mapping{}, errors.NewNotFound("column mapping version", version)
	}
	return Mapping{
		Version:      version,
		Table:        DefaultTable,
		Columns:      cols(),
		TimestampUTC: true,
	}, nil
}

// Custom builds a mapping from configured columns.
func Custom(schema, table string, columns []Column) Mapping {
	return Mapping{
		Version:      "custom",
		Schema:       schema,
		Table:        table,
		Columns:      slices.Clone(columns),
		TimestampUTC: true,
	}
}

// Validate checks the mapping against the property keys the assembled
// enrichers guarantee. Every problem is reported, joined into one error.
//
// A column is rejected when its source is not a legacy field name, or when it
// is non-nullable and its source is not guaranteed: such a column would fail
// on every write instead of once at startup.
func (m Mapping) Validate(guaranteed []string) error {
	var errs []error
	invalid := func(field, msg string) {
		errs = append(errs, errors.NewInvalidInput(field, msg))
	}

	if m.Table == "" {
		invalid("table", "table name is required")
	}
	if len(m.Columns) == 0 {
		invalid("columns", "at least one column is required")
	}

	seen := make(map[string]bool, len(m.Columns))
	if m.IncludeID {
		seen[strings.ToLower(m.idColumn())] = true
	}

	for i, c := range m.Columns {
		field := c.Name
		if field == "" {
			field = fmt.Sprintf("columns[%d]", i)
			invalid(field, "column name is required")
		}
		key := strings.ToLower(c.Name)
		if c.Name != "" && seen[key] {
			invalid(field, "duplicate column name")
		}
		seen[key] = true

		if !c.Type.valid() {
			invalid(field, fmt.Sprintf("unknown SQL type %q", c.Type))
		}
		if c.MaxLength < 0 {
			invalid(field, "max length must not be negative")
		}
		if c.MaxLength > 0 && c.Type != VarChar {
			invalid(field, fmt.Sprintf("max length is only valid for %s columns", VarChar))
		}

		switch {
		case c.Source == "":
			invalid(field, "source property is required")
		case c.Source == EventTimestamp:
			if c.Type != Timestamp {
				invalid(field, fmt.Sprintf("%s must map to a %s column", EventTimestamp, Timestamp))
			}
		case !IsFieldName(c.Source):
			invalid(field, fmt.Sprintf("source %q is not a legacy field name", c.Source))
		case !c.AllowNull && !slices.Contains(guaranteed, c.Source):
			invalid(field, fmt.Sprintf("non-nullable column sourced from %q, which no registered enricher guarantees", c.Source))
		}
	}

	return errors.Join(errs...)
}

func (m Mapping) idColumn() string {
	if m.IDColumn == "" {
		return "id"
	}
	return m.IDColumn
}

// Identifier returns the quoted-ready table identifier.
func (m Mapping) Identifier() pgx.Identifier {
	if m.Schema == "" {
		return pgx.Identifier{m.Table}
	}
	return pgx.Identifier{m.Schema, m.Table}
}

// ColumnNames returns the written columns in order.
func (m Mapping) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Row projects an enriched event onto the mapped columns. Missing or null
// properties become NULL for nullable columns and an error otherwise.
func (m Mapping) Row(ev logevent.Event) ([]any, error) {
	row := make([]any, 0, len(m.Columns))
	props := ev.Properties()

	for _, c := range m.Columns {
		if c.Source == EventTimestamp {
			ts := ev.Timestamp()
			if m.TimestampUTC {
				ts = ts.UTC()
			}
			row = append(row, ts)
			continue
		}

		v, ok := props.Get(c.Source)
		if !ok || isNull(v) {
			if !c.AllowNull {
				return nil, errors.NewInvalidInput(c.Name, fmt.Sprintf("no value for non-nullable column (property %s)", c.Source))
			}
			row = append(row, nil)
			continue
		}

		cv, err := c.value(v)
		if err != nil {
			return nil, err
		}
		row = append(row, cv)
	}
	return row, nil
}

func isNull(v logevent.Value) bool {
	sc, ok := v.(logevent.Scalar)
	return ok && sc.V == nil
}

// CreateTableSQL returns the DDL that creates the table when it is missing.
func (m Mapping) CreateTableSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(m.Identifier().Sanitize())
	b.WriteString(" (\n")

	var defs []string
	if m.IncludeID {
		defs = append(defs, fmt.Sprintf("\t%s BIGSERIAL PRIMARY KEY", pgx.Identifier{m.idColumn()}.Sanitize()))
	}
	for _, c := range m.Columns {
		def := fmt.Sprintf("\t%s %s", pgx.Identifier{c.Name}.Sanitize(), c.Type.ddl(c.MaxLength))
		if !c.AllowNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	b.WriteString(strings.Join(defs, ",\n"))
	b.WriteString("\n)")
	return b.String()
}
