package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Combine-Capital/logtable/pkg/config"
	"github.com/Combine-Capital/logtable/pkg/logtable"
	"github.com/Combine-Capital/logtable/pkg/pipeline"
	"github.com/Combine-Capital/logtable/pkg/secrets"
)

func testPipeline(t *testing.T) (*config.Config, *pipeline.Pipeline) {
	t.Helper()

	cfg := &config.Config{
		Service: config.ServiceConfig{Name: "logtable-host", Version: "1.2.0", Env: "Development"},
		Log:     config.LogConfig{Level: "error", Format: "json", MinimumLevel: "Information"},
		Sink:    config.SinkConfig{MappingVersion: logtable.VersionV2},
	}
	p, err := pipeline.Build(context.Background(), cfg,
		pipeline.WithConsole(io.Discard),
		pipeline.WithHostname(func() (string, error) { return "web-01", nil }),
	)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return cfg, p
}

func TestHandlerRoutes(t *testing.T) {
	cfg, p := testPipeline(t)
	handler := newHandler(cfg, p, p.Logger)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"liveness", "/health/live", http.StatusOK},
		{"readiness", "/health/ready", http.StatusOK},
		{"mapping", "/logtable/mapping", http.StatusOK},
		{"index", "/", http.StatusOK},
		{"unknown", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("response carries no request id")
			}
			if rec.Header().Get("traceparent") == "" {
				t.Error("response carries no trace context")
			}
		})
	}
}

func TestHandlerMapping(t *testing.T) {
	cfg, p := testPipeline(t)
	handler := newHandler(cfg, p, p.Logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logtable/mapping", nil))

	var got logtable.Mapping
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Version != logtable.VersionV2 || len(got.Columns) != 8 {
		t.Errorf("mapping = %s with %d columns, want %s with 8", got.Version, len(got.Columns), logtable.VersionV2)
	}
}

func TestSecretsSource(t *testing.T) {
	values, err := secretsSource(config.SecretsConfig{Source: "static"}).Load(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if values[secrets.DatabaseLogging] != secrets.LocalConnectionString {
		t.Errorf("static DatabaseLogging = %q", values[secrets.DatabaseLogging])
	}

	t.Setenv(secretEnvPrefix+"DATABASELOGGING", "host=logs")
	t.Setenv(secretEnvPrefix+"REPORTING", "host=reports")
	t.Setenv(secretEnvPrefix+"APPSERVER", "host=app")
	values, err = secretsSource(config.SecretsConfig{Source: "env"}).Load(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if values[secrets.DatabaseLogging] != "host=logs" {
		t.Errorf("env DatabaseLogging = %q", values[secrets.DatabaseLogging])
	}
}

func TestSettingsSourcePassthrough(t *testing.T) {
	cfg := &config.Config{RuntimeSettings: config.RuntimeSettingsConfig{Source: "passthrough"}}
	src, release, err := settingsSource(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	in := secrets.Values{secrets.AppServer: "host=app"}
	out, err := src.Apply(context.Background(), in)
	if err != nil || out[secrets.AppServer] != "host=app" {
		t.Errorf("Apply() = %v, %v", out, err)
	}
}
