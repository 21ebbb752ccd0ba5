package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Combine-Capital/logtable/pkg/logevent"
	"github.com/Combine-Capital/logtable/pkg/logtable"
)

// Console writes events through a zerolog logger. Template arguments and
// context properties become fields; the legacy table projections are left
// out because they only repeat the message.
type Console struct {
	log     zerolog.Logger
	minimum logevent.Level
}

// NewConsole creates a console sink that drops events below minimum.
func NewConsole(log zerolog.Logger, minimum logevent.Level) *Console {
	return &Console{log: log, minimum: minimum}
}

func (c *Console) Emit(ev logevent.Event) {
	if ev.Level() < c.minimum {
		return
	}

	e := c.log.WithLevel(zerologLevel(ev.Level()))
	if e == nil {
		return
	}
	if err := ev.Err(); err != nil {
		e = e.Err(err)
	}
	ev.Properties().Range(func(p logevent.Property) bool {
		if repeatsMessage(p.Name) {
			return true
		}
		if sc, ok := p.Value.(logevent.Scalar); ok {
			e = e.Interface(p.Name, sc.V)
		} else {
			e = e.Str(p.Name, p.Value.String())
		}
		return true
	})
	e.Msg(ev.RenderMessage())
}

// repeatsMessage reports whether name is a legacy projection derived from
// the event itself. MachineName and the registered app id carry information
// of their own and are kept.
func repeatsMessage(name string) bool {
	switch name {
	case logtable.Computer, logtable.RegisteredAppID:
		return false
	}
	return logtable.IsFieldName(name)
}

func (c *Console) Flush(context.Context) error { return nil }

func (c *Console) Close(context.Context) error { return nil }

func zerologLevel(l logevent.Level) zerolog.Level {
	switch l {
	case logevent.Verbose:
		return zerolog.TraceLevel
	case logevent.Debug:
		return zerolog.DebugLevel
	case logevent.Warning:
		return zerolog.WarnLevel
	case logevent.Error:
		return zerolog.ErrorLevel
	case logevent.Fatal:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
