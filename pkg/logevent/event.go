// Package logevent defines the structured log event that flows from a logger,
// through enrichers, into sinks.
//
// An Event is immutable: enrichment returns a new Event that shares nothing
// mutable with its source, so events can be fanned out to several sinks and
// processed on other goroutines without copying or locking.
//
// Example usage:
//
//	tmpl := logevent.ParseTemplate("User {UserId} logged in")
//	ev := logevent.New(time.Now(), logevent.Information, tmpl, tmpl.Bind([]any{42}), nil)
//	ev.RenderMessage() // "User 42 logged in"
package logevent

import "time"

// Event is a single structured log event.
type Event struct {
	timestamp time.Time
	level     Level
	template  Template
	props     Properties
	err       error
}

// New creates an event. err is the error (exception) attached to the event,
// or nil.
func New(ts time.Time, level Level, tmpl Template, props Properties, err error) Event {
	return Event{
		timestamp: ts,
		level:     level,
		template:  tmpl,
		props:     props,
		err:       err,
	}
}

// Timestamp returns when the event was created.
func (e Event) Timestamp() time.Time { return e.timestamp }

// Level returns the event severity.
func (e Event) Level() Level { return e.level }

// Template returns the parsed message template.
func (e Event) Template() Template { return e.template }

// Properties returns the event properties.
func (e Event) Properties() Properties { return e.props }

// Err returns the error attached to the event, if any.
func (e Event) Err() error { return e.err }

// RenderMessage renders the template with the event properties substituted.
func (e Event) RenderMessage() string {
	return e.template.Render(e.props)
}

// AddPropertyIfAbsent returns an event with name bound to v, unless name is
// already present, in which case e is returned unchanged.
func (e Event) AddPropertyIfAbsent(name string, v Value) Event {
	e.props = e.props.AddIfAbsent(name, v)
	return e
}

// WithProperties returns an event whose properties are replaced by props.
func (e Event) WithProperties(props Properties) Event {
	e.props = props
	return e
}
