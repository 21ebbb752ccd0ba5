package tracing

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMiddleware gives every request a span context: a child of the
// caller's when the request carries one, a new trace otherwise. The span
// context is echoed in the response's traceparent header.
func HTTPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := StartRequest(ExtractHTTP(r.Context(), r.Header))
			InjectHTTP(ctx, w.Header())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StartRequest returns ctx with a new span id under the trace of the remote
// span context in ctx. Without a valid remote parent a new trace id is
// drawn and the span is marked sampled.
func StartRequest(ctx context.Context) context.Context {
	parent := trace.SpanContextFromContext(ctx)

	cfg := trace.SpanContextConfig{
		TraceID:    parent.TraceID(),
		SpanID:     newSpanID(),
		TraceFlags: parent.TraceFlags(),
		TraceState: parent.TraceState(),
	}
	if !parent.IsValid() {
		cfg.TraceID = newTraceID()
		cfg.TraceFlags = trace.FlagsSampled
	}
	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(cfg))
}

func newTraceID() trace.TraceID {
	return trace.TraceID(uuid.New())
}

func newSpanID() trace.SpanID {
	var id trace.SpanID
	u := uuid.New()
	copy(id[:], u[8:])
	return id
}
