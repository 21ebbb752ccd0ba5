// Package tracing carries W3C trace context through the host's HTTP
// requests so that log events can be correlated with the calling system.
//
// No spans are exported. The middleware continues the caller's trace when
// a traceparent header is present, starts a new trace otherwise, and puts
// the resulting span context on the request context where
// logging.Logger.WithContext picks it up.
//
// Example:
//
//	handler = logging.HTTPMiddleware(logger)(handler)
//	handler = tracing.HTTPMiddleware()(handler)
package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
)

// propagator handles traceparent, tracestate and baggage headers.
var propagator propagation.TextMapPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Propagator returns the propagator used by the middleware.
func Propagator() propagation.TextMapPropagator {
	return propagator
}

// InjectHTTP writes the trace context of ctx into header.
//
// Example:
//
//	req, _ := http.NewRequestWithContext(ctx, "GET", "http://reporting/api", nil)
//	tracing.InjectHTTP(ctx, req.Header)
func InjectHTTP(ctx context.Context, header http.Header) {
	propagator.Inject(ctx, propagation.HeaderCarrier(header))
}

// ExtractHTTP returns ctx carrying the remote trace context found in header.
func ExtractHTTP(ctx context.Context, header http.Header) context.Context {
	return propagator.Extract(ctx, propagation.HeaderCarrier(header))
}
