package logtable

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logevent"
)

// EventTimestamp is the implicit column source that takes the event's own
// timestamp instead of a property.
const EventTimestamp = "@Timestamp"

// SQLType is the destination column type.
type SQLType string

const (
	VarChar   SQLType = "varchar"
	Text      SQLType = "text"
	Int       SQLType = "int"
	BigInt    SQLType = "bigint"
	Timestamp SQLType = "timestamp"
)

func (t SQLType) valid() bool {
	switch t {
	case VarChar, Text, Int, BigInt, Timestamp:
		return true
	}
	return false
}

// ddl returns the column type as written in CREATE TABLE.
func (t SQLType) ddl(maxLength int) string {
	switch t {
	case VarChar:
		if maxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", maxLength)
		}
		return "VARCHAR"
	case Text:
		return "TEXT"
	case Int:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Timestamp:
		return "TIMESTAMP"
	}
	return strings.ToUpper(string(t))
}

// Column declares one destination column of the legacy table.
type Column struct {
	Name      string  `mapstructure:"name" json:"name"`
	Source    string  `mapstructure:"source" json:"source"`
	Type      SQLType `mapstructure:"type" json:"type"`
	MaxLength int     `mapstructure:"max_length" json:"max_length,omitempty"`
	AllowNull bool    `mapstructure:"allow_null" json:"allow_null"`
}

// value converts a property value into the Go value written to the column.
func (c Column) value(v logevent.Value) (any, error) {
	switch c.Type {
	case VarChar, Text:
		return truncate(columnString(v), c.MaxLength), nil
	case Int, BigInt:
		n, err := columnInt(v)
		if err != nil {
			return nil, errors.NewInvalidInputWithCause(c.Name, "value is not an integer", err)
		}
		if c.Type == Int && (n > math.MaxInt32 || n < math.MinInt32) {
			return nil, errors.NewInvalidInput(c.Name, fmt.Sprintf("value %d overflows int", n))
		}
		return n, nil
	case Timestamp:
		ts, err := columnTime(v)
		if err != nil {
			return nil, errors.NewInvalidInputWithCause(c.Name, "value is not a timestamp", err)
		}
		return ts, nil
	}
	return nil, errors.NewInvalidInput(c.Name, fmt.Sprintf("unsupported column type %q", c.Type))
}

// columnString unwraps scalars to their raw text; other values use their
// rendered form.
func columnString(v logevent.Value) string {
	sc, ok := v.(logevent.Scalar)
	if !ok {
		return v.String()
	}
	if s, ok := sc.V.(string); ok {
		return s
	}
	return sc.Format("l")
}

func columnInt(v logevent.Value) (int64, error) {
	sc, ok := v.(logevent.Scalar)
	if !ok {
		return 0, fmt.Errorf("%s is not a scalar", v)
	}
	switch n := sc.V.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", n)
		}
		return int64(n), nil
	case float32:
		return floatInt(float64(n))
	case float64:
		return floatInt(n)
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	}
	return 0, fmt.Errorf("unsupported scalar %T", sc.V)
}

func floatInt(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v is not integral", f)
	}
	return int64(f), nil
}

func columnTime(v logevent.Value) (time.Time, error) {
	sc, ok := v.(logevent.Scalar)
	if !ok {
		return time.Time{}, fmt.Errorf("%s is not a scalar", v)
	}
	switch t := sc.V.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	}
	return time.Time{}, fmt.Errorf("unsupported scalar %T", sc.V)
}

// truncate cuts s to at most n runes; n <= 0 means unbounded.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
