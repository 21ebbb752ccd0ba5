// Package config loads the host configuration from layered JSON files,
// environment variables and in-memory overrides.
//
// Keys use ":" as the section separator, so "ConnectionStrings:DatabaseLogging"
// addresses the DatabaseLogging entry of the ConnectionStrings section in the
// files, in overrides and in code. Environment variables use "__" instead
// (LOGTABLE_CONNECTIONSTRINGS__DATABASELOGGING).
//
// Precedence, highest first: overrides, environment variables,
// appsettings.<Environment>.json, appsettings.json, defaults.
//
// Example usage:
//
//	cfg, err := config.Load("/etc/logtable")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Reload with secrets layered on top:
//	cfg, err = config.NewLoader("/etc/logtable").WithOverrides(values).Load()
package config

import (
	"strings"
	"time"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logtable"
)

// Connection string names.
const (
	DatabaseLogging = "DatabaseLogging"
	Reporting       = "Reporting"
	AppServer       = "AppServer"

	connectionStringsSection = "ConnectionStrings"
)

// Config represents the complete host configuration.
type Config struct {
	Service           ServiceConfig         `mapstructure:"service"`
	Server            ServerConfig          `mapstructure:"server"`
	Log               LogConfig             `mapstructure:"log"`
	Database          DatabaseConfig        `mapstructure:"database"`
	Sink              SinkConfig            `mapstructure:"sink"`
	Metrics           MetricsConfig         `mapstructure:"metrics"`
	Secrets           SecretsConfig         `mapstructure:"secrets"`
	RuntimeSettings   RuntimeSettingsConfig `mapstructure:"runtime_settings"`
	ConnectionStrings map[string]string     `mapstructure:"connectionstrings"`
}

// ServiceConfig contains general service information.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // Development, Staging, Production
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// LogConfig contains logging configuration. Level, Format and Output drive
// the zerolog self-log; MinimumLevel and Override drive the event logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr

	MinimumLevel string `mapstructure:"minimum_level"`

	// Override maps a source context to its own minimum level.
	Override map[string]string `mapstructure:"override"`
}

// DatabaseConfig contains PostgreSQL pool configuration. The connection
// itself comes from a connection string.
type DatabaseConfig struct {
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

// SinkConfig contains the legacy table sink configuration.
type SinkConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// ConnectionString names the connection string the sink writes with.
	ConnectionString string `mapstructure:"connection_string"`

	// MappingVersion selects a built-in column mapping. It is ignored when
	// Columns is set.
	MappingVersion string            `mapstructure:"mapping_version"`
	Columns        []logtable.Column `mapstructure:"columns"`
	Schema         string            `mapstructure:"schema"`
	Table          string            `mapstructure:"table"`
	IncludeID      bool              `mapstructure:"include_id"`

	AutoCreateTable bool   `mapstructure:"auto_create_table"`
	RegisteredAppID string `mapstructure:"registered_app_id"`
	MinimumLevel    string `mapstructure:"minimum_level"`

	BatchSize             int           `mapstructure:"batch_size"`
	Period                time.Duration `mapstructure:"period"`
	QueueLimit            int           `mapstructure:"queue_limit"`
	EagerlyEmitFirstEvent bool          `mapstructure:"eagerly_emit_first_event"`

	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"` // Metric prefix
}

// SecretsConfig selects where connection strings are read from.
type SecretsConfig struct {
	Source string `mapstructure:"source"` // static, env
}

// RuntimeSettingsConfig selects where runtime overrides are read from.
type RuntimeSettingsConfig struct {
	Source           string `mapstructure:"source"` // passthrough, database
	ConnectionString string `mapstructure:"connection_string"`
	Table            string `mapstructure:"table"`
}

// ConnectionStringKey returns the configuration key of a named connection
// string, e.g. "ConnectionStrings:DatabaseLogging".
func ConnectionStringKey(name string) string {
	return connectionStringsSection + keyDelimiter + name
}

// ConnectionString returns a connection string by name. The name may be bare
// ("DatabaseLogging") or a full key ("ConnectionStrings:DatabaseLogging") and
// is matched case-insensitively.
func (c *Config) ConnectionString(name string) (string, error) {
	key := strings.ToLower(name)
	key = strings.TrimPrefix(key, strings.ToLower(connectionStringsSection+keyDelimiter))

	for k, v := range c.ConnectionStrings {
		if strings.ToLower(k) == key && v != "" {
			return v, nil
		}
	}
	return "", errors.NewNotFound("connection string", name)
}
