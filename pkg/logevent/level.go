package logevent

import (
	"fmt"
	"strings"
)

// Level is the severity of an event, ordered from least to most severe.
type Level int

const (
	Verbose Level = iota
	Debug
	Information
	Warning
	Error
	Fatal
)

var levelNames = [...]string{
	Verbose:     "Verbose",
	Debug:       "Debug",
	Information: "Information",
	Warning:     "Warning",
	Error:       "Error",
	Fatal:       "Fatal",
}

// Levels returns every level from Verbose to Fatal.
func Levels() []Level {
	return []Level{Verbose, Debug, Information, Warning, Error, Fatal}
}

// String returns the member name of the level ("Information", "Warning", ...).
func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Valid reports whether l is one of the declared levels.
func (l Level) Valid() bool {
	return l >= Verbose && l <= Fatal
}

// ParseLevel converts a level name to a Level. Member names are matched
// case-insensitively, and the short forms used by most Go loggers are accepted.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace":
		return Verbose, nil
	case "debug":
		return Debug, nil
	case "information", "info":
		return Information, nil
	case "warning", "warn":
		return Warning, nil
	case "error", "err":
		return Error, nil
	case "fatal", "panic":
		return Fatal, nil
	}
	return Information, fmt.Errorf("unknown log level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid log level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	lvl, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = lvl
	return nil
}
