// Package health serves the host's liveness and readiness probes.
//
// Readiness aggregates the registered components: the logging database pool
// and the table sink. Liveness never checks dependencies, so a database
// outage makes the host unready without getting it restarted.
//
// Example usage:
//
//	h := health.New()
//	h.RegisterChecker(health.ComponentDatabase, pool)
//	h.RegisterChecker(health.ComponentSink, dbSink)
//	mux.HandleFunc("/health/live", h.LivenessHandler())
//	mux.HandleFunc("/health/ready", h.ReadinessHandler())
package health

import (
	"context"
)

// Component names registered by the host.
const (
	ComponentDatabase = "database"
	ComponentSink     = "sink"
)

// Checker reports whether a component is usable. Check must respect the
// context deadline.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}
