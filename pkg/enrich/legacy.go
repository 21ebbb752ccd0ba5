package enrich

import (
	"strings"

	"github.com/Combine-Capital/logtable/pkg/logevent"
	"github.com/Combine-Capital/logtable/pkg/logtable"
)

const (
	// LegacyEventID is the event type id written for every event. The legacy
	// consumers have no identity scheme of their own.
	LegacyEventID = 1

	// LegacyCategory is the category written for every event.
	LegacyCategory = "Standard"

	propertySeparator = " | "
)

// LegacyTable returns the steps that shape an event for the legacy table, in
// the order they must run. ExceptionText runs last so that it includes the
// properties added by the steps before it.
func LegacyTable() Pipeline {
	return Pipeline{
		Step(logtable.Type, func(ev logevent.Event) logevent.Value {
			return logevent.Scalar{V: ev.Level().String()}
		}),
		Step(logtable.EventID, func(logevent.Event) logevent.Value {
			return logevent.Scalar{V: LegacyEventID}
		}),
		Step(logtable.Title, func(ev logevent.Event) logevent.Value {
			return logevent.Scalar{V: ev.Template().Text()}
		}),
		Step(logtable.Category, func(logevent.Event) logevent.Value {
			return logevent.Scalar{V: LegacyCategory}
		}),
		Step(logtable.Message, func(ev logevent.Event) logevent.Value {
			return logevent.Scalar{V: ev.RenderMessage()}
		}),
		Step(logtable.ExceptionText, func(ev logevent.Event) logevent.Value {
			return logevent.Scalar{V: PropertyText(ev)}
		}),
	}
}

// PropertyText renders every property of ev as "key:value | key:value", one
// entry per property. The event's error is not a property and is not
// included. An event with no properties yields "".
func PropertyText(ev logevent.Event) string {
	var b strings.Builder
	ev.Properties().Range(func(p logevent.Property) bool {
		if b.Len() > 0 {
			b.WriteString(propertySeparator)
		}
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(p.Value.String())
		return true
	})
	return b.String()
}

// MachineName attaches the host name. An empty host guarantees nothing.
func MachineName(host string) Enricher {
	if host == "" {
		return none{}
	}
	return Property(logtable.Computer, host)
}

// RegisteredAppID attaches the legacy registered application id. An empty id
// guarantees nothing.
func RegisteredAppID(id string) Enricher {
	if id == "" {
		return none{}
	}
	return Property(logtable.RegisteredAppID, id)
}
