package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

const parentHeader = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func serve(t *testing.T, header string) (trace.SpanContext, *httptest.ResponseRecorder) {
	t.Helper()

	var got trace.SpanContext
	handler := HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = trace.SpanContextFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("traceparent", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return got, rec
}

func TestHTTPMiddlewareContinuesTrace(t *testing.T) {
	sc, rec := serve(t, parentHeader)

	if !sc.IsValid() {
		t.Fatal("handler saw no span context")
	}
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID = %s, want the caller's", sc.TraceID())
	}
	if sc.SpanID().String() == "00f067aa0ba902b7" {
		t.Error("SpanID reuses the caller's span id")
	}
	if !sc.IsSampled() {
		t.Error("sampled flag lost")
	}

	want := "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-01"
	if got := rec.Header().Get("traceparent"); got != want {
		t.Errorf("response traceparent = %q, want %q", got, want)
	}
}

func TestHTTPMiddlewareStartsTrace(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed header", "00-zz-00f067aa0ba902b7-01"},
		{"all-zero trace id", "00-00000000000000000000000000000000-00f067aa0ba902b7-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, rec := serve(t, tt.header)
			if !sc.IsValid() {
				t.Fatal("handler saw no span context")
			}
			if sc.IsRemote() {
				t.Error("new span context marked remote")
			}
			if !strings.HasPrefix(rec.Header().Get("traceparent"), "00-"+sc.TraceID().String()) {
				t.Errorf("response traceparent = %q", rec.Header().Get("traceparent"))
			}
		})
	}
}

func TestStartRequestDistinctSpans(t *testing.T) {
	ctx := ExtractHTTP(context.Background(), http.Header{"Traceparent": {parentHeader}})

	a := trace.SpanContextFromContext(StartRequest(ctx))
	b := trace.SpanContextFromContext(StartRequest(ctx))
	if a.TraceID() != b.TraceID() {
		t.Error("siblings do not share the trace id")
	}
	if a.SpanID() == b.SpanID() {
		t.Error("siblings share a span id")
	}
}

func TestInjectHTTP(t *testing.T) {
	ctx := StartRequest(context.Background())
	header := http.Header{}
	InjectHTTP(ctx, header)

	back := trace.SpanContextFromContext(ExtractHTTP(context.Background(), header))
	if back.TraceID() != trace.SpanContextFromContext(ctx).TraceID() {
		t.Errorf("round trip lost the trace id: %q", header.Get("traceparent"))
	}
}
