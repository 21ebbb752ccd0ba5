package logevent

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxCaptureDepth bounds destructuring of nested values so that cyclic
// structures cannot recurse forever.
const maxCaptureDepth = 10

// Value is a captured property value. It is one of Scalar, Sequence,
// Structure or Dictionary.
type Value interface {
	// String renders the value the way it appears in property dumps:
	// strings are quoted, nil renders as null.
	String() string

	render(b *strings.Builder, format string)
}

// Scalar holds a single primitive value (string, number, bool, time, nil).
type Scalar struct {
	V any
}

func (s Scalar) String() string {
	var b strings.Builder
	s.render(&b, "")
	return b.String()
}

// Format renders the scalar with a hole format. The "l" format writes strings
// without quotes; time values use the format as a layout; a format starting
// with '%' is passed to fmt.
func (s Scalar) Format(format string) string {
	var b strings.Builder
	s.render(&b, format)
	return b.String()
}

func (s Scalar) render(b *strings.Builder, format string) {
	switch v := s.V.(type) {
	case nil:
		b.WriteString("null")
	case string:
		if format == "l" {
			b.WriteString(v)
			return
		}
		writeQuoted(b, v)
	case time.Time:
		layout := time.RFC3339Nano
		if format != "" && format != "l" {
			layout = format
		}
		b.WriteString(v.Format(layout))
	case time.Duration:
		b.WriteString(v.String())
	case bool:
		b.WriteString(strconv.FormatBool(v))
	default:
		if strings.HasPrefix(format, "%") {
			fmt.Fprintf(b, format, v)
			return
		}
		fmt.Fprint(b, v)
	}
}

// Sequence is an ordered list of values.
type Sequence []Value

func (s Sequence) String() string {
	var b strings.Builder
	s.render(&b, "")
	return b.String()
}

func (s Sequence) render(b *strings.Builder, _ string) {
	b.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		v.render(b, "")
	}
	b.WriteByte(']')
}

// Field is a named member of a Structure.
type Field struct {
	Name  string
	Value Value
}

// Structure is a destructured object with an optional type tag.
type Structure struct {
	TypeTag string
	Fields  []Field
}

func (s Structure) String() string {
	var b strings.Builder
	s.render(&b, "")
	return b.String()
}

func (s Structure) render(b *strings.Builder, _ string) {
	if s.TypeTag != "" {
		b.WriteString(s.TypeTag)
		b.WriteByte(' ')
	}
	b.WriteString("{ ")
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		f.Value.render(b, "")
	}
	if len(s.Fields) > 0 {
		b.WriteByte(' ')
	}
	b.WriteByte('}')
}

// Entry is a key/value pair of a Dictionary.
type Entry struct {
	Key   Scalar
	Value Value
}

// Dictionary is a captured map. Entries are kept in key order.
type Dictionary []Entry

func (d Dictionary) String() string {
	var b strings.Builder
	d.render(&b, "")
	return b.String()
}

func (d Dictionary) render(b *strings.Builder, _ string) {
	b.WriteByte('[')
	for i, e := range d {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		e.Key.render(b, "")
		b.WriteString(": ")
		e.Value.render(b, "")
		b.WriteByte(')')
	}
	b.WriteByte(']')
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	b.WriteString(strings.ReplaceAll(s, `"`, `\"`))
	b.WriteByte('"')
}

// Capturing controls how a hole captures its argument.
type Capturing int

const (
	// Default keeps scalars, collections and maps; other objects are stringified.
	Default Capturing = iota
	// Destructure ("{@Name}") breaks structs and maps into their fields.
	Destructure
	// Stringify ("{$Name}") always stores fmt.Sprint of the argument.
	Stringify
)

// Capture converts an arbitrary Go value into a Value.
func Capture(v any, mode Capturing) Value {
	return capture(v, mode, 0)
}

func capture(v any, mode Capturing, depth int) Value {
	if v == nil {
		return Scalar{}
	}
	if val, ok := v.(Value); ok {
		return val
	}
	if mode == Stringify {
		return Scalar{V: fmt.Sprint(v)}
	}
	switch t := v.(type) {
	case string, bool, time.Time, time.Duration,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return Scalar{V: t}
	case error:
		return Scalar{V: t.Error()}
	case []byte:
		return Scalar{V: fmt.Sprintf("%x", t)}
	}
	if depth >= maxCaptureDepth {
		return Scalar{V: fmt.Sprint(v)}
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Scalar{}
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		seq := make(Sequence, rv.Len())
		for i := range seq {
			seq[i] = capture(rv.Index(i).Interface(), mode, depth+1)
		}
		return seq
	case reflect.Map:
		return captureMap(rv, mode, depth)
	case reflect.Struct:
		if mode != Destructure {
			if s, ok := v.(fmt.Stringer); ok {
				return Scalar{V: s.String()}
			}
			return Scalar{V: fmt.Sprint(rv.Interface())}
		}
		return captureStruct(rv, mode, depth)
	case reflect.String:
		return Scalar{V: rv.String()}
	case reflect.Bool:
		return Scalar{V: rv.Bool()}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Scalar{V: rv.Int()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Scalar{V: rv.Uint()}
	case reflect.Float32, reflect.Float64:
		return Scalar{V: rv.Float()}
	}
	return Scalar{V: fmt.Sprint(v)}
}

func captureMap(rv reflect.Value, mode Capturing, depth int) Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	if mode == Destructure && rv.Type().Key().Kind() == reflect.String {
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Name: k.String(), Value: capture(rv.MapIndex(k).Interface(), mode, depth+1)})
		}
		return Structure{Fields: fields}
	}
	dict := make(Dictionary, 0, len(keys))
	for _, k := range keys {
		key, ok := capture(k.Interface(), Default, depth+1).(Scalar)
		if !ok {
			key = Scalar{V: fmt.Sprint(k.Interface())}
		}
		dict = append(dict, Entry{Key: key, Value: capture(rv.MapIndex(k).Interface(), mode, depth+1)})
	}
	return dict
}

func captureStruct(rv reflect.Value, mode Capturing, depth int) Value {
	rt := rv.Type()
	fields := make([]Field, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		fields = append(fields, Field{Name: sf.Name, Value: capture(rv.Field(i).Interface(), mode, depth+1)})
	}
	return Structure{TypeTag: rt.Name(), Fields: fields}
}
