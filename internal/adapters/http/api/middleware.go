package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/league/pkg/logger"
	"github.com/okian/league/pkg/metrics"
)

// instrument records request count, latency and failures for one route.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		elapsed := time.Since(start)
		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(route, r.Method, code)
		metrics.RecordHTTPRequestDuration(route, r.Method, code, float64(elapsed.Milliseconds()))
		if rec.status < http.StatusBadRequest {
			return
		}
		metrics.RecordErrorByComponent("http_"+route, failureClass(rec.status))
		s.logger.Debug(r.Context(), "request failed",
			logger.String("route", route),
			logger.String("path", r.URL.EscapedPath()),
			logger.Int("status", rec.status),
			logger.Duration("elapsed", elapsed),
		)
	}
}

func failureClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
