package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/metrics"
)

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger assigns a request id, logs one line per request and records
// HTTP metrics. Use it as a mux middleware so the route template is known.
func RequestLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, rid))

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			if route != "/metrics" {
				metrics.IncHTTP(route, r.Method, strconv.Itoa(rec.status/100)+"xx")
				metrics.ObserveHTTP(route, elapsed.Seconds())
			}

			entry := logger.WithFields(logrus.Fields{
				"request_id": rid,
				"method":     r.Method,
				"route":      route,
				"status":     rec.status,
				"latency_ms": float64(elapsed.Microseconds()) / 1000.0,
			})
			if rec.status >= 500 {
				entry.Error("request failed")
			} else {
				entry.Info("request")
			}
		})
	}
}

func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
