// Package secrets reads connection strings from a secrets store.
//
// The result is a flat map keyed by configuration key
// ("ConnectionStrings:DatabaseLogging") that the host layers over its
// configuration as overrides. A failure to read the store is logged and
// returned; the host never starts with partial connection strings.
package secrets

import (
	"context"
	"maps"
	"os"
	"strings"

	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/logging"
)

// Recognized connection string keys.
const (
	DatabaseLogging = "ConnectionStrings:DatabaseLogging"
	Reporting       = "ConnectionStrings:Reporting"
	AppServer       = "ConnectionStrings:AppServer"
)

// LocalConnectionString is the connection string the static source hands out.
const LocalConnectionString = "host=localhost port=5432 dbname=adhoc sslmode=disable"

// Names returns the recognized connection string keys.
func Names() []string {
	return []string{DatabaseLogging, Reporting, AppServer}
}

// Values maps configuration keys to values.
type Values map[string]string

// Clone returns a copy of v. Cloning nil yields an empty map.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	maps.Copy(out, v)
	return out
}

// Source reads secrets and returns them layered over initial. Implementations
// must not modify initial.
type Source interface {
	Load(ctx context.Context, initial Values) (Values, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, initial Values) (Values, error)

func (f SourceFunc) Load(ctx context.Context, initial Values) (Values, error) {
	return f(ctx, initial)
}

// Static returns a source that sets every recognized connection string to
// conn. An empty conn uses LocalConnectionString.
func Static(conn string) Source {
	if conn == "" {
		conn = LocalConnectionString
	}
	return SourceFunc(func(ctx context.Context, initial Values) (Values, error) {
		out := initial.Clone()
		for _, name := range Names() {
			out[name] = conn
		}
		return out, nil
	})
}

// Env returns a source that reads each connection string from an environment
// variable named prefix + the upper-cased connection name, for example
// LOGTABLE_SECRET_DATABASELOGGING. Every variable must be set.
func Env(prefix string) Source {
	return envSource{prefix: prefix, lookup: os.LookupEnv}
}

type envSource struct {
	prefix string
	lookup func(string) (string, bool)
}

// EnvName returns the variable the env source reads for key.
func EnvName(prefix, key string) string {
	name := key[strings.LastIndexByte(key, ':')+1:]
	return prefix + strings.ToUpper(name)
}

func (s envSource) Load(ctx context.Context, initial Values) (Values, error) {
	out := initial.Clone()
	var missing []error
	for _, key := range Names() {
		name := EnvName(s.prefix, key)
		v, ok := s.lookup(name)
		if !ok || v == "" {
			missing = append(missing, errors.NewNotFound("environment variable", name))
			continue
		}
		out[key] = v
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	return out, nil
}

// Read loads connection strings from src. Failures are logged at Error and
// returned.
func Read(ctx context.Context, src Source, initial Values, log *logging.Logger) (Values, error) {
	values, err := src.Load(ctx, initial.Clone())
	if err != nil {
		log.Error(err, "An error occurred trying to read the secrets store")
		return nil, errors.Wrap(err, "failed to read secrets")
	}
	return values, nil
}
