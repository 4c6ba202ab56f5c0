package api

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/studyreward/rewardbook/internal/telemetry"
)

// statusWriter captures the response status.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack is needed by the websocket upgrade on /ws.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.status = http.StatusSwitchingProtocols
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// RequestLogger logs method, path, status and duration of every request and
// records them in the HTTP metrics.
func RequestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			telemetry.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
			telemetry.HTTPDurationSeconds.WithLabelValues(r.Method).Observe(elapsed.Seconds())
			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, sw.status, elapsed.Round(time.Microsecond))
		})
	}
}
