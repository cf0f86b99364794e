package middleware

import (
	"net/http"
	"time"

	"github.com/linguapal/linguapal/internal/logging"
)

// RequestLogger emits one structured log line per request, leveled by
// response status class.
type RequestLogger struct {
	logger *logging.Logger
}

func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (rl *RequestLogger) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if query := r.URL.RawQuery; query != "" {
			fields["query"] = query
		}

		switch {
		case rec.status >= http.StatusInternalServerError:
			rl.logger.Error("Request completed", fields)
		case rec.status >= http.StatusBadRequest:
			rl.logger.Warn("Request completed", fields)
		default:
			rl.logger.Info("Request completed", fields)
		}
	})
}
