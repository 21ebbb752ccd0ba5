// Package metrics provides the Prometheus registry for the log table host.
// It exposes sink throughput counters, HTTP request metrics, and a handler
// the host mounts on its own mux.
//
// Example usage:
//
//	if err := metrics.Init(cfg.Metrics); err != nil {
//	    return err
//	}
//	mux.Handle(cfg.Metrics.Path, metrics.Handler())
//
//	sm, err := metrics.NewSinkMetrics(cfg.Metrics.Namespace)
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Combine-Capital/logtable/pkg/config"
)

var (
	// registry is the process-wide registry all collectors register with
	registry *prometheus.Registry

	registryMu sync.RWMutex

	initialized bool
)

// Init creates the registry. Runtime and process collectors are only
// registered when metrics are enabled. Calling Init again is a no-op.
func Init(cfg config.MetricsConfig) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if initialized {
		return nil
	}

	registry = prometheus.NewRegistry()
	if cfg.Enabled {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	initialized = true
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
// Before Init it serves an empty registry.
func Handler() http.Handler {
	reg := Registry()
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the global registry, or nil before Init.
func Registry() *prometheus.Registry {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry
}

// IsInitialized reports whether Init has been called.
func IsInitialized() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return initialized
}

func register(c prometheus.Collector) error {
	registryMu.RLock()
	reg := registry
	registryMu.RUnlock()

	if reg == nil {
		return errNotInitialized
	}
	return reg.Register(c)
}

// reset drops all state. Tests only.
func reset() {
	registryMu.Lock()
	registry = nil
	initialized = false
	registryMu.Unlock()

	httpMu.Lock()
	httpMetrics = nil
	httpMu.Unlock()
}
