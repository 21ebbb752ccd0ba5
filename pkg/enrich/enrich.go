// Package enrich derives legacy-table properties from structured log events.
//
// An Enricher is a pure function from event to event. Enrichers never
// overwrite a property that is already present, so whatever the caller (or an
// earlier enricher) set always wins. Each enricher also reports the property
// names it guarantees, which lets the column mapping be checked once at
// startup instead of failing on every write.
//
// Example usage:
//
//	p := enrich.Pipeline{
//	    enrich.MachineName(host),
//	    enrich.LegacyTable(),
//	}
//	ev = p.Enrich(ev)
package enrich

import (
	"github.com/Combine-Capital/logtable/pkg/logevent"
)

// Enricher adds derived properties to an event.
type Enricher interface {
	// Enrich returns the enriched event. The input event is not modified.
	Enrich(ev logevent.Event) logevent.Event

	// Guarantees lists the property names present on every event returned
	// by Enrich.
	Guarantees() []string
}

// step binds one property with add-if-absent semantics.
type step struct {
	name   string
	derive func(logevent.Event) logevent.Value
}

// Step returns an enricher that sets name to derive(ev) unless the event
// already carries name. derive is not called when the property is present.
func Step(name string, derive func(logevent.Event) logevent.Value) Enricher {
	return step{name: name, derive: derive}
}

func (s step) Enrich(ev logevent.Event) logevent.Event {
	if ev.Properties().Has(s.name) {
		return ev
	}
	return ev.AddPropertyIfAbsent(s.name, s.derive(ev))
}

func (s step) Guarantees() []string {
	return []string{s.name}
}

// Pipeline applies enrichers in order, each one seeing the output of the
// previous one.
type Pipeline []Enricher

func (p Pipeline) Enrich(ev logevent.Event) logevent.Event {
	for _, e := range p {
		ev = e.Enrich(ev)
	}
	return ev
}

// Guarantees returns the union of the member guarantees, in pipeline order.
func (p Pipeline) Guarantees() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range p {
		for _, name := range e.Guarantees() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// none is an enricher that does nothing and guarantees nothing.
type none struct{}

func (none) Enrich(ev logevent.Event) logevent.Event { return ev }
func (none) Guarantees() []string                    { return nil }

// Property returns an enricher that attaches a fixed property to every event.
func Property(name string, value any) Enricher {
	v := logevent.Capture(value, logevent.Default)
	return Step(name, func(logevent.Event) logevent.Value { return v })
}
