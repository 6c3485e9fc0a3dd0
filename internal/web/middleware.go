package web

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs every request at debug level. It is a pass-through when
// the logger would drop debug events.
func LogRequest(logger zerolog.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logger.GetLevel() > zerolog.DebugLevel || zerolog.GlobalLevel() > zerolog.DebugLevel {
			h.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		lrw := &logResponseWriter{ResponseWriter: w}
		h.ServeHTTP(lrw, r)
		logger.Debug().
			Str("method", r.Method).
			Int("status", lrw.Status()).
			Str("path", r.URL.Path).
			Str("addr", r.RemoteAddr).
			Str("duration", time.Since(start).String()).
			Msg("http request")
	})
}

type logResponseWriter struct {
	http.ResponseWriter
	status int
}

func (lrw *logResponseWriter) WriteHeader(status int) {
	lrw.status = status
	lrw.ResponseWriter.WriteHeader(status)
}

func (lrw *logResponseWriter) Status() int {
	if lrw.status == 0 {
		return http.StatusOK
	}
	return lrw.status
}
