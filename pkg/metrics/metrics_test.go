package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Combine-Capital/logtable/pkg/config"
	"github.com/Combine-Capital/logtable/pkg/errors"
)

func initForTest(t *testing.T) {
	t.Helper()
	reset()
	t.Cleanup(reset)
	if err := Init(config.MetricsConfig{Enabled: true, Path: "/metrics", Namespace: "test"}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
	}{
		{"enabled", true},
		{"disabled", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset()
			t.Cleanup(reset)

			if err := Init(config.MetricsConfig{Enabled: tt.enabled}); err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			if !IsInitialized() {
				t.Error("IsInitialized() = false after Init")
			}
			if Registry() == nil {
				t.Fatal("Registry() = nil after Init")
			}

			families, err := Registry().Gather()
			if err != nil {
				t.Fatalf("Gather() error = %v", err)
			}
			if tt.enabled && len(families) == 0 {
				t.Error("expected runtime collectors when enabled")
			}
			if !tt.enabled && len(families) != 0 {
				t.Errorf("expected no collectors when disabled, got %d", len(families))
			}
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	initForTest(t)
	first := Registry()

	if err := Init(config.MetricsConfig{Enabled: true}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Registry() != first {
		t.Error("second Init replaced the registry")
	}
}

func TestCollectorsBeforeInit(t *testing.T) {
	reset()
	t.Cleanup(reset)

	_, err := NewCounterVec(Opts{Namespace: "test", Name: "early_total"})
	if err == nil {
		t.Fatal("expected error before Init")
	}
	if !errors.IsPermanent(err) {
		t.Errorf("error = %v, want Permanent", err)
	}
}

func TestOptsValidate(t *testing.T) {
	initForTest(t)

	tests := []struct {
		name    string
		opts    Opts
		wantErr bool
	}{
		{"valid", Opts{Namespace: "test", Subsystem: "sink", Name: "rows_total", Labels: []string{"sink"}}, false},
		{"name starts with digit", Opts{Name: "1rows"}, true},
		{"name with dash", Opts{Namespace: "test", Name: "rows-total"}, true},
		{"invalid label", Opts{Name: "rows_total", Labels: []string{"bad-label"}}, true},
		{"reserved label", Opts{Name: "rows_total", Labels: []string{"__name"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCounterVec(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCounterVec() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.IsInvalidInput(err) {
				t.Errorf("error = %v, want InvalidInput", err)
			}
		})
	}
}

func TestRegisterReusesExisting(t *testing.T) {
	initForTest(t)

	opts := Opts{Namespace: "test", Name: "reused_total", Labels: []string{"sink"}}
	first, err := NewCounterVec(opts)
	if err != nil {
		t.Fatalf("NewCounterVec() error = %v", err)
	}
	second, err := NewCounterVec(opts)
	if err != nil {
		t.Fatalf("second NewCounterVec() error = %v", err)
	}
	if first != second {
		t.Error("expected the registered collector to be returned")
	}
}

func TestSinkMetrics(t *testing.T) {
	initForTest(t)

	m, err := NewSinkMetrics("test")
	if err != nil {
		t.Fatalf("NewSinkMetrics() error = %v", err)
	}

	m.Emitted("db")
	m.Emitted("db")
	m.Dropped("db", DropQueueFull, 3)
	m.Dropped("db", DropInvalidRow, 0)
	m.Written("db", 2, 0.01)
	m.Failed("db")
	m.QueueDepth("db", 7)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"emitted", testutil.ToFloat64(m.emitted.WithLabelValues("db")), 2},
		{"dropped", testutil.ToFloat64(m.dropped.WithLabelValues("db", DropQueueFull)), 3},
		{"written", testutil.ToFloat64(m.written.WithLabelValues("db")), 2},
		{"batches", testutil.ToFloat64(m.batches.WithLabelValues("db")), 1},
		{"failures", testutil.ToFloat64(m.failures.WithLabelValues("db")), 1},
		{"queue depth", testutil.ToFloat64(m.queueDepth.WithLabelValues("db")), 7},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if n := testutil.CollectAndCount(m.dropped); n != 1 {
		t.Errorf("dropped series = %d, want 1 (zero counts are not recorded)", n)
	}
}

func TestNilSinkMetrics(t *testing.T) {
	var m *SinkMetrics

	m.Emitted("db")
	m.Dropped("db", DropClosed, 1)
	m.Written("db", 1, 0.1)
	m.Failed("db")
	m.QueueDepth("db", 1)
}

func TestHandler(t *testing.T) {
	initForTest(t)

	m, err := NewSinkMetrics("test")
	if err != nil {
		t.Fatalf("NewSinkMetrics() error = %v", err)
	}
	m.Written("db", 5, 0.02)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `test_sink_rows_written_total{sink="db"} 5`) {
		t.Errorf("body missing rows written series:\n%s", rec.Body.String())
	}
}

func TestHTTPMiddleware(t *testing.T) {
	initForTest(t)

	mw, err := HTTPMiddleware("test")
	if err != nil {
		t.Fatalf("HTTPMiddleware() error = %v", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mapping/{version}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	})
	handler := mw(mux)

	for _, path := range []string{"/mapping/legacy-v1", "/mapping/legacy-v2", "/mapping/legacy-v3"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}

	got := testutil.ToFloat64(httpMetrics.requests.WithLabelValues(http.MethodPost, "/mapping/{version}", "201"))
	if got != 3 {
		t.Errorf("requests_total = %v, want 3", got)
	}
}

func TestHTTPMiddlewareUnmatchedRoutes(t *testing.T) {
	initForTest(t)

	mw, err := HTTPMiddleware("test")
	if err != nil {
		t.Fatalf("HTTPMiddleware() error = %v", err)
	}
	handler := mw(http.NewServeMux())

	for _, path := range []string{"/a", "/b", "/c/d"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := testutil.ToFloat64(httpMetrics.requests.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	if got != 3 {
		t.Errorf("unmatched requests_total = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(httpMetrics.requests); n != 1 {
		t.Errorf("request series = %d, want 1", n)
	}
}

func TestHTTPMiddlewareWithoutInit(t *testing.T) {
	reset()
	t.Cleanup(reset)

	mw, err := HTTPMiddleware("test")
	if err == nil {
		t.Error("expected registration error before Init")
	}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	mw(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("middleware did not call the next handler")
	}
}
