package logevent

import (
	"errors"
	"testing"
	"time"
)

// TestLevelString verifies levels render as member names, never numbers
func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{Verbose, "Verbose"},
		{Debug, "Debug"},
		{Information, "Information"},
		{Warning, "Warning"},
		{Error, "Error"},
		{Fatal, "Fatal"},
		{Level(42), "Level(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestParseLevel verifies member names and short aliases are accepted
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"Information", Information, false},
		{"info", Information, false},
		{"WARN", Warning, false},
		{"verbose", Verbose, false},
		{"trace", Verbose, false},
		{" fatal ", Fatal, false},
		{"loud", Information, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestLevelText verifies Level round-trips through its text form
func TestLevelText(t *testing.T) {
	var l Level
	if err := l.UnmarshalText([]byte("Warning")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if l != Warning {
		t.Errorf("UnmarshalText() = %v, want Warning", l)
	}
	if _, err := Level(-1).MarshalText(); err == nil {
		t.Error("MarshalText() expected error for invalid level")
	}
}

// TestParseTemplate verifies holes, escapes and malformed input
func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantHoles []string
	}{
		{"no holes", "plain text", nil},
		{"one hole", "User {UserId} logged in", []string{"UserId"}},
		{"destructure and stringify", "{@Order} by {$Customer}", []string{"Order", "Customer"}},
		{"format and alignment", "took {Elapsed,8:%.2f} ms", []string{"Elapsed"}},
		{"escaped braces", "{{literal}} {Real}", []string{"Real"}},
		{"unclosed", "broken {Hole", nil},
		{"empty hole", "empty {} hole", nil},
		{"invalid name", "bad {Na me}", nil},
		{"positional", "{0} then {1}", []string{"0", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := ParseTemplate(tt.text)
			if tmpl.Text() != tt.text {
				t.Errorf("Text() = %q, want %q", tmpl.Text(), tt.text)
			}
			holes := tmpl.Holes()
			if len(holes) != len(tt.wantHoles) {
				t.Fatalf("Holes() = %d holes, want %d", len(holes), len(tt.wantHoles))
			}
			for i, h := range holes {
				if h.Name != tt.wantHoles[i] {
					t.Errorf("hole %d = %q, want %q", i, h.Name, tt.wantHoles[i])
				}
			}
		})
	}
}

// TestTemplateRender verifies substitution against bound arguments
func TestTemplateRender(t *testing.T) {
	tests := []struct {
		name string
		text string
		args []any
		want string
	}{
		{"int argument", "User {UserId} logged in", []any{42}, "User 42 logged in"},
		{"string is quoted", "Hello {Name}", []any{"bob"}, `Hello "bob"`},
		{"literal format", "Hello {Name:l}", []any{"bob"}, "Hello bob"},
		{"printf format", "took {Elapsed:%.2f} ms", []any{1.5}, "took 1.50 ms"},
		{"missing argument", "{A} and {B}", []any{1}, "1 and {B}"},
		{"surplus argument", "only {A}", []any{1, 2}, "only 1"},
		{"repeated hole", "{A} {A}", []any{7}, "7 7"},
		{"positional", "{1} before {0}", []any{"a", "b"}, `"b" before "a"`},
		{"escapes", "{{A}} is {A}", []any{3}, "{A} is 3"},
		{"right aligned", "[{A,4}]", []any{7}, "[   7]"},
		{"left aligned", "[{A,-4}]", []any{7}, "[7   ]"},
		{"sequence", "items {Items}", []any{[]int{1, 2}}, "items [1, 2]"},
		{"nil", "value {V}", []any{nil}, "value null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := ParseTemplate(tt.text)
			got := tmpl.Render(tmpl.Bind(tt.args))
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

type order struct {
	ID    int
	Items []string
	note  string
}

// TestCapture verifies default, destructured and stringified capturing
func TestCapture(t *testing.T) {
	o := order{ID: 7, Items: []string{"a"}, note: "hidden"}

	tests := []struct {
		name string
		v    any
		mode Capturing
		want string
	}{
		{"string", "x", Default, `"x"`},
		{"int", 5, Default, "5"},
		{"bool", true, Default, "true"},
		{"error", errors.New("boom"), Default, `"boom"`},
		{"struct default", o, Default, `"{7 [a] hidden}"`},
		{"struct destructured", o, Destructure, `order { ID: 7, Items: ["a"] }`},
		{"pointer destructured", &o, Destructure, `order { ID: 7, Items: ["a"] }`},
		{"stringified", []int{1}, Stringify, `"[1]"`},
		{"map default", map[string]int{"b": 2, "a": 1}, Default, `[("a": 1), ("b": 2)]`},
		{"map destructured", map[string]int{"b": 2, "a": 1}, Destructure, `{ a: 1, b: 2 }`},
		{"nil pointer", (*order)(nil), Default, "null"},
		{"duration", 2 * time.Second, Default, "2s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Capture(tt.v, tt.mode).String(); got != tt.want {
				t.Errorf("Capture().String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestPropertiesAddIfAbsent verifies first-writer-wins and immutability
func TestPropertiesAddIfAbsent(t *testing.T) {
	base := NewProperties(Property{Name: "A", Value: Scalar{V: 1}})
	next := base.AddIfAbsent("B", Scalar{V: "x"})
	same := next.AddIfAbsent("A", Scalar{V: 99})

	if base.Len() != 1 {
		t.Errorf("base mutated: Len() = %d, want 1", base.Len())
	}
	if next.Len() != 2 {
		t.Errorf("next.Len() = %d, want 2", next.Len())
	}
	v, _ := same.Get("A")
	if v.String() != "1" {
		t.Errorf("A = %s, want 1 (first writer wins)", v)
	}

	names := same.Names()
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Errorf("Names() = %v, want [A B]", names)
	}
}

// TestPropertiesMerge verifies merged properties keep the receiver's values
func TestPropertiesMerge(t *testing.T) {
	a := NewProperties(Property{Name: "X", Value: Scalar{V: 1}})
	b := NewProperties(
		Property{Name: "X", Value: Scalar{V: 2}},
		Property{Name: "Y", Value: Scalar{V: 3}},
	)
	m := a.Merge(b)

	if m.Len() != 2 {
		t.Fatalf("Merge() Len() = %d, want 2", m.Len())
	}
	x, _ := m.Get("X")
	if x.String() != "1" {
		t.Errorf("X = %s, want 1", x)
	}
}

// TestEventAddPropertyIfAbsent verifies enrichment never changes the source event
func TestEventAddPropertyIfAbsent(t *testing.T) {
	tmpl := ParseTemplate("Order {Id} shipped")
	ev := New(time.Unix(0, 0), Information, tmpl, tmpl.Bind([]any{7}), nil)
	enriched := ev.AddPropertyIfAbsent("Extra", Scalar{V: true})

	if ev.Properties().Has("Extra") {
		t.Error("source event was mutated")
	}
	if !enriched.Properties().Has("Extra") {
		t.Error("enriched event is missing Extra")
	}
	if enriched.RenderMessage() != "Order 7 shipped" {
		t.Errorf("RenderMessage() = %q, want %q", enriched.RenderMessage(), "Order 7 shipped")
	}
}
