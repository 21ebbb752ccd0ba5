package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	keyDelimiter = ":"

	// DefaultEnvPrefix prefixes every environment variable read by the loader.
	DefaultEnvPrefix = "LOGTABLE"

	// EnvironmentVariable selects the environment overlay file.
	EnvironmentVariable = "APP_ENVIRONMENT"

	// DefaultEnvironment is used when EnvironmentVariable is unset.
	DefaultEnvironment = "Production"

	baseFile = "appsettings.json"
)

// Loader loads configuration from a directory holding appsettings.json and
// its environment overlays.
type Loader struct {
	dir         string
	envPrefix   string
	environment string
	overrides   map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvPrefix replaces the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithEnvironment selects the overlay file instead of APP_ENVIRONMENT.
func WithEnvironment(env string) LoaderOption {
	return func(l *Loader) {
		l.environment = env
	}
}

// NewLoader creates a loader for dir. An empty dir loads no files.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		dir:         dir,
		envPrefix:   DefaultEnvPrefix,
		environment: os.Getenv(EnvironmentVariable),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.environment == "" {
		l.environment = DefaultEnvironment
	}
	return l
}

// Environment returns the environment name the loader reads overlays for.
func (l *Loader) Environment() string {
	return l.environment
}

// WithOverrides returns a loader that layers values over every other source.
// Keys use ":" as separator. The receiver is not modified.
func (l *Loader) WithOverrides(values map[string]string) *Loader {
	next := *l
	next.overrides = maps.Clone(l.overrides)
	if next.overrides == nil {
		next.overrides = make(map[string]string, len(values))
	}
	maps.Copy(next.overrides, values)
	return &next
}

// Load reads, merges, validates and returns the configuration.
func (l *Loader) Load() (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))
	setDefaults(v)

	if l.envPrefix != "" {
		v.SetEnvPrefix(l.envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "__"))
	v.AutomaticEnv()
	for _, name := range []string{DatabaseLogging, Reporting, AppServer} {
		if err := v.BindEnv(ConnectionStringKey(name)); err != nil {
			return nil, fmt.Errorf("failed to bind connection string %s: %w", name, err)
		}
	}

	if l.dir != "" {
		v.SetConfigFile(filepath.Join(l.dir, baseFile))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		overlay := filepath.Join(l.dir, fmt.Sprintf("appsettings.%s.json", l.environment))
		if _, err := os.Stat(overlay); err == nil {
			v.SetConfigFile(overlay)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("failed to merge config file %s: %w", overlay, err)
			}
		}
	}

	for k, val := range l.overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg, l.environment)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Load loads configuration from dir using the default loader settings.
func Load(dir string) (*Config, error) {
	return NewLoader(dir).Load()
}

// MustLoad loads configuration and panics on error.
// This is useful in main() where configuration errors should be fatal.
func MustLoad(dir string) *Config {
	cfg, err := Load(dir)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// setDefaults registers every key so environment variables can reach it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("service:name", "logtable-host")
	v.SetDefault("service:version", "")
	v.SetDefault("service:env", "")

	v.SetDefault("server:http_port", 8080)
	v.SetDefault("server:read_timeout", "30s")
	v.SetDefault("server:write_timeout", "30s")
	v.SetDefault("server:shutdown_timeout", "30s")
	v.SetDefault("server:max_header_bytes", 1<<20)

	v.SetDefault("log:level", "info")
	v.SetDefault("log:format", "json")
	v.SetDefault("log:output", "stdout")
	v.SetDefault("log:minimum_level", "Information")

	v.SetDefault("database:max_conns", 10)
	v.SetDefault("database:min_conns", 1)
	v.SetDefault("database:max_conn_lifetime", "1h")
	v.SetDefault("database:max_conn_idle_time", "10m")
	v.SetDefault("database:connect_timeout", "30s")
	v.SetDefault("database:query_timeout", "30s")

	v.SetDefault("sink:enabled", true)
	v.SetDefault("sink:connection_string", DatabaseLogging)
	v.SetDefault("sink:mapping_version", "legacy-v3")
	v.SetDefault("sink:schema", "")
	v.SetDefault("sink:table", "")
	v.SetDefault("sink:include_id", false)
	v.SetDefault("sink:auto_create_table", false)
	v.SetDefault("sink:registered_app_id", "")
	v.SetDefault("sink:minimum_level", "Information")
	v.SetDefault("sink:batch_size", 50)
	v.SetDefault("sink:period", "1s")
	v.SetDefault("sink:queue_limit", 10000)
	v.SetDefault("sink:eagerly_emit_first_event", true)
	v.SetDefault("sink:max_retries", 5)
	v.SetDefault("sink:initial_interval", "200ms")
	v.SetDefault("sink:max_interval", "5s")

	v.SetDefault("metrics:enabled", true)
	v.SetDefault("metrics:path", "/metrics")
	v.SetDefault("metrics:namespace", "")

	v.SetDefault("secrets:source", "static")

	v.SetDefault("runtime_settings:source", "passthrough")
	v.SetDefault("runtime_settings:connection_string", AppServer)
	v.SetDefault("runtime_settings:table", "RuntimeSettings")
}
