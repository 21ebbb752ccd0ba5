package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// unmatchedRoute labels requests no mux pattern matched.
const unmatchedRoute = "unmatched"

// HTTPMiddleware records request duration, count and response size, labelled
// by the http.ServeMux pattern that served the request. It must wrap the mux
// directly so the pattern set by the mux is visible here.
// Registration failures leave requests unmeasured and are returned so the
// caller can log them; the middleware itself is always usable.
func HTTPMiddleware(namespace string) (func(http.Handler) http.Handler, error) {
	m, err := initHTTPMetrics(namespace)

	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			status := strconv.Itoa(wrapped.statusCode)
			path := route(r)
			m.duration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
			m.requests.WithLabelValues(r.Method, path, status).Inc()
			m.size.WithLabelValues(r.Method, path, status).Observe(float64(wrapped.bytesWritten))
		})
	}, err
}

// route returns the matched pattern without its method, e.g. "/health/live".
func route(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// metricsResponseWriter captures the status code and body size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	written      bool
}

func (m *metricsResponseWriter) WriteHeader(code int) {
	if !m.written {
		m.statusCode = code
		m.written = true
		m.ResponseWriter.WriteHeader(code)
	}
}

func (m *metricsResponseWriter) Write(b []byte) (int, error) {
	if !m.written {
		m.WriteHeader(http.StatusOK)
	}
	n, err := m.ResponseWriter.Write(b)
	m.bytesWritten += n
	return n, err
}
