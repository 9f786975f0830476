package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PersistenceHeader is set to "degraded" on every response while history
// writes are failing.
const PersistenceHeader = "X-Qrscan-Persistence"

// statusWriter records the status code and runs beforeHeader once, just
// before the headers go out.
type statusWriter struct {
	http.ResponseWriter
	status       int
	wroteHeader  bool
	beforeHeader func(http.Header)
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	if w.beforeHeader != nil {
		w.beforeHeader(w.Header())
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// loggingMiddleware logs one line per request and stamps the degraded
// persistence header.  The header is decided when the handler writes, so a
// request whose own mutation failed is already marked.
func loggingMiddleware(logger *zap.Logger, degraded func() bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		sw := &statusWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
			beforeHeader: func(h http.Header) {
				if degraded != nil && degraded() {
					h.Set(PersistenceHeader, "degraded")
				}
			},
		}

		next.ServeHTTP(sw, r)

		logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.String("from", r.RemoteAddr),
			zap.Duration("dur", time.Since(start)))
	})
}
