package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Combine-Capital/logtable/pkg/logevent"
)

// HTTPSource is the source context of request log events.
const HTTPSource = "http"

// HTTPMiddleware is an HTTP middleware that logs one event per request.
// It takes the request id from X-Request-ID or generates one, stores it and
// the logger in the request context, and echoes the id in the response.
// Requests that end in a 5xx status are logged at Error.
func HTTPMiddleware(logger *Logger) func(http.Handler) http.Handler {
	log := logger.ForSource(HTTPSource)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := WithRequestID(r.Context(), requestID)
			ctx = WithLogger(ctx, logger)
			r = r.WithContext(ctx)

			reqLog := log.WithContext(ctx)
			reqLog.Debug("HTTP {RequestMethod} {RequestPath} started", r.Method, r.URL.Path)

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(wrapped, r)

			elapsed := float64(time.Since(start).Microseconds()) / 1000
			level := logevent.Information
			if wrapped.statusCode >= 500 {
				level = logevent.Error
			}
			reqLog.Write(level, nil,
				"HTTP {RequestMethod} {RequestPath} responded {StatusCode} in {Elapsed:%.4f} ms",
				r.Method, r.URL.Path, wrapped.statusCode, elapsed)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
