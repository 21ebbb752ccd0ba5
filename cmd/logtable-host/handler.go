package main

import (
	"encoding/json"
	"net/http"

	"github.com/Combine-Capital/logtable/pkg/config"
	"github.com/Combine-Capital/logtable/pkg/errors"
	"github.com/Combine-Capital/logtable/pkg/health"
	"github.com/Combine-Capital/logtable/pkg/logging"
	"github.com/Combine-Capital/logtable/pkg/metrics"
	"github.com/Combine-Capital/logtable/pkg/pipeline"
	"github.com/Combine-Capital/logtable/pkg/tracing"
)

// newHandler returns the host's routes wrapped in recovery, trace context,
// request logging and request metrics.
func newHandler(cfg *config.Config, p *pipeline.Pipeline, log *logging.Logger) http.Handler {
	h := health.New()
	if p.Pool != nil {
		h.RegisterChecker(health.ComponentDatabase, p.Pool)
	}
	if p.Sink != nil {
		h.RegisterChecker(health.ComponentSink, p.Sink)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", h.LivenessHandler())
	mux.HandleFunc("GET /health/ready", h.ReadinessHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}
	mux.HandleFunc("GET /logtable/mapping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, p.Mapping)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service":     cfg.Service.Name,
			"version":     cfg.Service.Version,
			"environment": cfg.Service.Env,
		})
	})

	measured, err := metrics.HTTPMiddleware(cfg.Metrics.Namespace)
	if err != nil && cfg.Metrics.Enabled {
		log.Warning("Request metrics unavailable: {Error}", err.Error())
	}

	var handler http.Handler = mux
	handler = measured(handler)
	handler = logging.HTTPMiddleware(p.Logger)(handler)
	handler = tracing.HTTPMiddleware()(handler)
	handler = errors.RecoveryMiddleware(nil)(handler)
	return handler
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
