package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/auth"
	"github.com/dmitrijs2005/weldkeeper/internal/server/metrics"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const contextKeyProducer contextKey = "producer"

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

// instrument logs every request and records the HTTP metrics. The route
// label is the chi pattern so ids do not explode label cardinality.
func instrument(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			logger.Info(r.Context(), "http request",
				"method", r.Method, "route", route, "status", sw.status, "duration", elapsed)
		})
	}
}

// producerAuth requires a Bearer producer token signed with secret.
func producerAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "expected Authorization: Bearer <token>")
				return
			}

			producer, err := auth.GetProducerFromToken(parts[1], secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyProducer, producer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func producerFromContext(ctx context.Context) string {
	p, _ := ctx.Value(contextKeyProducer).(string)
	return p
}
