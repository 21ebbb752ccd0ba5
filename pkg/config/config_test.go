package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logtable"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

const baseSettings = `{
  "service": { "name": "orders-api" },
  "server": { "http_port": 8081 },
  "log": {
    "minimum_level": "Debug",
    "override": { "http": "Warning" }
  },
  "sink": {
    "batch_size": 100,
    "registered_app_id": "base-app",
    "period": "2s"
  },
  "ConnectionStrings": {
    "DatabaseLogging": "postgres://base/logs",
    "Reporting": "postgres://base/reporting"
  }
}`

// TestLoad verifies configuration loading from the base file
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "appsettings.json", baseSettings)

	cfg, err := NewLoader(dir, WithEnvironment("Production")).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.Name != "orders-api" {
		t.Errorf("Service.Name = %v, want orders-api", cfg.Service.Name)
	}
	if cfg.Service.Env != "Production" {
		t.Errorf("Service.Env = %v, want Production", cfg.Service.Env)
	}
	if cfg.Server.HTTPPort != 8081 {
		t.Errorf("Server.HTTPPort = %v, want 8081", cfg.Server.HTTPPort)
	}
	if cfg.Sink.BatchSize != 100 {
		t.Errorf("Sink.BatchSize = %v, want 100", cfg.Sink.BatchSize)
	}
	if cfg.Sink.Period != 2*time.Second {
		t.Errorf("Sink.Period = %v, want 2s", cfg.Sink.Period)
	}
	if cfg.Log.Override["http"] != "Warning" {
		t.Errorf("Log.Override = %v", cfg.Log.Override)
	}
	if cfg.Metrics.Namespace != "orders_api" {
		t.Errorf("Metrics.Namespace = %v, want orders_api", cfg.Metrics.Namespace)
	}

	cs, err := cfg.ConnectionString(DatabaseLogging)
	if err != nil || cs != "postgres://base/logs" {
		t.Errorf("ConnectionString() = %q, %v", cs, err)
	}
}

// TestLoadDefaults verifies defaults when no files are present
func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPPort != 8080 {
		t.Errorf("Server.HTTPPort = %v, want 8080", cfg.Server.HTTPPort)
	}
	if cfg.Sink.BatchSize != 50 || cfg.Sink.Period != time.Second || cfg.Sink.QueueLimit != 10000 {
		t.Errorf("sink batching = %d/%v/%d, want 50/1s/10000", cfg.Sink.BatchSize, cfg.Sink.Period, cfg.Sink.QueueLimit)
	}
	if !cfg.Sink.EagerlyEmitFirstEvent {
		t.Error("Sink.EagerlyEmitFirstEvent = false, want true")
	}
	if cfg.Sink.MappingVersion != logtable.DefaultVersion {
		t.Errorf("Sink.MappingVersion = %v, want %v", cfg.Sink.MappingVersion, logtable.DefaultVersion)
	}
	if cfg.Secrets.Source != "static" || cfg.RuntimeSettings.Source != "passthrough" {
		t.Errorf("sources = %s/%s", cfg.Secrets.Source, cfg.RuntimeSettings.Source)
	}
	if _, err := cfg.ConnectionString(DatabaseLogging); !errors.IsNotFound(err) {
		t.Errorf("ConnectionString() error = %v, want not found", err)
	}
}

// TestLoadPrecedence verifies override > env > environment file > base file > defaults
func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "appsettings.json", baseSettings)
	writeFile(t, dir, "appsettings.Development.json", `{
  "server": { "http_port": 9000 },
  "sink": { "batch_size": 10, "registered_app_id": "dev-app" },
  "ConnectionStrings": { "DatabaseLogging": "postgres://dev/logs" }
}`)

	t.Setenv("APP_ENVIRONMENT", "Development")
	t.Setenv("LOGTABLE_SINK__BATCH_SIZE", "20")
	t.Setenv("LOGTABLE_CONNECTIONSTRINGS__REPORTING", "postgres://env/reporting")

	loader := NewLoader(dir)
	if loader.Environment() != "Development" {
		t.Fatalf("Environment() = %v, want Development", loader.Environment())
	}

	cfg, err := loader.WithOverrides(map[string]string{
		"ConnectionStrings:DatabaseLogging": "postgres://secret/logs",
		"sink:batch_size":                   "30",
	}).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"base file over defaults", cfg.Log.MinimumLevel, "Debug"},
		{"environment file over base", cfg.Server.HTTPPort, 9000},
		{"environment file over base (nested)", cfg.Sink.RegisteredAppID, "dev-app"},
		{"override over env", cfg.Sink.BatchSize, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if cs, _ := cfg.ConnectionString("ConnectionStrings:DatabaseLogging"); cs != "postgres://secret/logs" {
		t.Errorf("DatabaseLogging = %q, want override", cs)
	}
	if cs, _ := cfg.ConnectionString(Reporting); cs != "postgres://env/reporting" {
		t.Errorf("Reporting = %q, want env value", cs)
	}

	// Without overrides the env var wins over both files.
	cfg, err = loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sink.BatchSize != 20 {
		t.Errorf("Sink.BatchSize = %v, want env value 20", cfg.Sink.BatchSize)
	}
}

func TestWithOverridesDoesNotMutate(t *testing.T) {
	base := NewLoader("")
	a := base.WithOverrides(map[string]string{"sink:table": "A"})
	b := a.WithOverrides(map[string]string{"sink:table": "B"})

	if len(base.overrides) != 0 {
		t.Errorf("base overrides = %v", base.overrides)
	}
	if a.overrides["sink:table"] != "A" || b.overrides["sink:table"] != "B" {
		t.Errorf("overrides = %v / %v", a.overrides, b.overrides)
	}
}

func TestLoadCustomColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "appsettings.json", `{
  "sink": {
    "table": "AuditLog",
    "columns": [
      { "name": "level", "source": "Level", "type": "varchar", "max_length": 20 },
      { "name": "text", "source": "Message", "type": "text", "allow_null": true }
    ]
  }
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Sink.Columns) != 2 {
		t.Fatalf("Sink.Columns = %d, want 2", len(cfg.Sink.Columns))
	}
	c := cfg.Sink.Columns[0]
	if c.Name != "level" || c.Source != logtable.Type || c.Type != logtable.VarChar || c.MaxLength != 20 || c.AllowNull {
		t.Errorf("column 0 = %+v", c)
	}
	if !cfg.Sink.Columns[1].AllowNull {
		t.Error("column 1 AllowNull = false")
	}
}

func TestLoadMissingBaseFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load() expected error for missing appsettings.json")
	}
}

// TestValidate verifies configuration validation
func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := NewLoader("").Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"port out of range", func(c *Config) { c.Server.HTTPPort = 70000 }, "server:http_port"},
		{"bad minimum level", func(c *Config) { c.Log.MinimumLevel = "loud" }, "log:minimum_level"},
		{"bad override", func(c *Config) { c.Log.Override = map[string]string{"http": "x"} }, "log:override:http"},
		{"zero batch size", func(c *Config) { c.Sink.BatchSize = 0 }, "sink:batch_size"},
		{"zero period", func(c *Config) { c.Sink.Period = 0 }, "sink:period"},
		{"custom columns without table", func(c *Config) {
			c.Sink.Columns = []logtable.Column{{Name: "a", Source: logtable.Type, Type: logtable.Text}}
		}, "sink:table"},
		{"unknown secrets source", func(c *Config) { c.Secrets.Source = "vault" }, "secrets:source"},
		{"database settings without table", func(c *Config) {
			c.RuntimeSettings.Source = "database"
			c.RuntimeSettings.Table = ""
		}, "runtime_settings:table"},
		{"min conns above max", func(c *Config) { c.Database.MinConns = 50 }, "database:min_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), "invalid input for "+tt.wantField) {
				t.Errorf("Validate() error = %v, want field %s", err, tt.wantField)
			}
		})
	}

	cfg := valid()
	cfg.Sink.Enabled = false
	cfg.Sink.BatchSize = 0
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() with disabled sink = %v", err)
	}
}

func TestMustLoadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLoad() did not panic")
		}
	}()
	MustLoad(t.TempDir())
}

func TestConnectionStringKey(t *testing.T) {
	if got := ConnectionStringKey(DatabaseLogging); got != "ConnectionStrings:DatabaseLogging" {
		t.Errorf("ConnectionStringKey() = %v", got)
	}
}
