package logevent

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Hole is a named placeholder in a message template, e.g. "{UserId}",
// "{@Order}", "{$Id}" or "{Elapsed:%.2f}".
type Hole struct {
	Name      string
	Capturing Capturing
	Format    string
	Alignment int
	raw       string
}

// Positional reports whether the hole name is a non-negative integer ("{0}").
func (h Hole) Positional() bool {
	_, err := strconv.Atoi(h.Name)
	return err == nil
}

type token struct {
	text string
	hole *Hole
}

// Template is a parsed message template. The zero value is the empty template.
type Template struct {
	text   string
	tokens []token
}

// ParseTemplate parses text. Parsing never fails: malformed holes are kept as
// literal text, and "{{" / "}}" are escapes for literal braces.
func ParseTemplate(text string) Template {
	t := Template{text: text}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.tokens = append(t.tokens, token{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				lit.WriteString(text[i:])
				i = len(text)
				continue
			}
			raw := text[i : i+end+2]
			hole, ok := parseHole(raw)
			if !ok {
				lit.WriteString(raw)
			} else {
				flush()
				t.tokens = append(t.tokens, token{hole: &hole})
			}
			i += end + 2
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return t
}

func parseHole(raw string) (Hole, bool) {
	body := raw[1 : len(raw)-1]
	h := Hole{raw: raw}
	if body == "" {
		return h, false
	}
	switch body[0] {
	case '@':
		h.Capturing = Destructure
		body = body[1:]
	case '$':
		h.Capturing = Stringify
		body = body[1:]
	}

	if i := strings.IndexByte(body, ':'); i >= 0 {
		h.Format = body[i+1:]
		body = body[:i]
	}
	if i := strings.IndexByte(body, ','); i >= 0 {
		n, err := strconv.Atoi(body[i+1:])
		if err != nil {
			return h, false
		}
		h.Alignment = n
		body = body[:i]
	}
	if body == "" {
		return h, false
	}
	for _, r := range body {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return h, false
		}
	}
	h.Name = body
	return h, true
}

// Text returns the template exactly as written.
func (t Template) Text() string {
	return t.text
}

// String returns the template text.
func (t Template) String() string {
	return t.text
}

// Holes returns the holes in order of appearance (repeats included).
func (t Template) Holes() []Hole {
	var holes []Hole
	for _, tok := range t.tokens {
		if tok.hole != nil {
			holes = append(holes, *tok.hole)
		}
	}
	return holes
}

// Bind captures args into properties named after the template holes. When
// every hole is positional, args are bound by index; otherwise they are bound
// to distinct hole names in order of first appearance. Surplus args are
// ignored and holes without an argument stay unbound.
func (t Template) Bind(args []any) Properties {
	holes := t.Holes()
	var props Properties
	if len(holes) == 0 || len(args) == 0 {
		return props
	}

	positional := true
	for _, h := range holes {
		if !h.Positional() {
			positional = false
			break
		}
	}

	if positional {
		for _, h := range holes {
			idx, _ := strconv.Atoi(h.Name)
			if idx < len(args) {
				props = props.AddIfAbsent(h.Name, Capture(args[idx], h.Capturing))
			}
		}
		return props
	}

	next := 0
	for _, h := range holes {
		if props.Has(h.Name) {
			continue
		}
		if next >= len(args) {
			break
		}
		props = props.AddIfAbsent(h.Name, Capture(args[next], h.Capturing))
		next++
	}
	return props
}

// Render substitutes every hole with its property value. Holes without a
// matching property are written verbatim.
func (t Template) Render(props Properties) string {
	var b strings.Builder
	for _, tok := range t.tokens {
		if tok.hole == nil {
			b.WriteString(tok.text)
			continue
		}
		h := tok.hole
		v, ok := props.Get(h.Name)
		if !ok {
			b.WriteString(h.raw)
			continue
		}
		var s string
		if sc, isScalar := v.(Scalar); isScalar {
			s = sc.Format(h.Format)
		} else {
			s = v.String()
		}
		writeAligned(&b, s, h.Alignment)
	}
	return b.String()
}

func writeAligned(b *strings.Builder, s string, alignment int) {
	width := alignment
	if width < 0 {
		width = -width
	}
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		b.WriteString(s)
		return
	}
	if alignment > 0 {
		b.WriteString(strings.Repeat(" ", pad))
		b.WriteString(s)
		return
	}
	b.WriteString(s)
	b.WriteString(strings.Repeat(" ", pad))
}
