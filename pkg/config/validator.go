package config

import (
	"fmt"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logevent"
)

// Validate validates the configuration and returns every invalid field,
// joined into one error.
func Validate(cfg *Config) error {
	var errs []error
	invalid := func(field, msg string) {
		errs = append(errs, errors.NewInvalidInput(field, msg))
	}
	level := func(field, value string) {
		if _, err := logevent.ParseLevel(value); err != nil {
			errs = append(errs, errors.NewInvalidInputWithCause(field, "unknown level", err))
		}
	}

	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		invalid("server:http_port", fmt.Sprintf("port %d out of range", cfg.Server.HTTPPort))
	}

	level("log:minimum_level", cfg.Log.MinimumLevel)
	for source, value := range cfg.Log.Override {
		level("log:override:"+source, value)
	}

	if cfg.Database.MaxConns <= 0 {
		invalid("database:max_conns", "must be positive")
	}
	if cfg.Database.MinConns < 0 || cfg.Database.MinConns > cfg.Database.MaxConns {
		invalid("database:min_conns", "must be between 0 and max_conns")
	}

	if cfg.Sink.Enabled {
		if cfg.Sink.ConnectionString == "" {
			invalid("sink:connection_string", "is required when the sink is enabled")
		}
		if cfg.Sink.MappingVersion == "" && len(cfg.Sink.Columns) == 0 {
			invalid("sink:mapping_version", "a mapping version or custom columns are required")
		}
		if len(cfg.Sink.Columns) > 0 && cfg.Sink.Table == "" {
			invalid("sink:table", "is required with custom columns")
		}
		level("sink:minimum_level", cfg.Sink.MinimumLevel)
		if cfg.Sink.BatchSize <= 0 {
			invalid("sink:batch_size", "must be positive")
		}
		if cfg.Sink.Period <= 0 {
			invalid("sink:period", "must be positive")
		}
		if cfg.Sink.QueueLimit <= 0 {
			invalid("sink:queue_limit", "must be positive")
		}
		if cfg.Sink.MaxRetries < 0 {
			invalid("sink:max_retries", "must not be negative")
		}
	}

	switch cfg.Secrets.Source {
	case "static", "env":
	default:
		invalid("secrets:source", fmt.Sprintf("unknown source %q", cfg.Secrets.Source))
	}

	switch cfg.RuntimeSettings.Source {
	case "passthrough":
	case "database":
		if cfg.RuntimeSettings.ConnectionString == "" {
			invalid("runtime_settings:connection_string", "is required for the database source")
		}
		if cfg.RuntimeSettings.Table == "" {
			invalid("runtime_settings:table", "is required for the database source")
		}
	default:
		invalid("runtime_settings:source", fmt.Sprintf("unknown source %q", cfg.RuntimeSettings.Source))
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		invalid("metrics:path", "is required when metrics are enabled")
	}

	return errors.Join(errs...)
}

// applyDefaults fills values derived from other settings.
func applyDefaults(cfg *Config, environment string) {
	if cfg.Service.Env == "" {
		cfg.Service.Env = environment
	}
	if cfg.Metrics.Namespace == "" && cfg.Service.Name != "" {
		cfg.Metrics.Namespace = sanitizeNamespace(cfg.Service.Name)
	}
	if cfg.ConnectionStrings == nil {
		cfg.ConnectionStrings = map[string]string{}
	}
}

// sanitizeNamespace makes a service name usable as a Prometheus prefix.
func sanitizeNamespace(name string) string {
	b := []byte(name)
	for i, c := range b {
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			b[i] = '_'
		}
	}
	return string(b)
}
