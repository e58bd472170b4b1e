package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	appLog "primavera/internal/log"
)

func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		// Prefer the propagated trace id when a span is present; fall back
		// to a fresh request id so access lines always correlate.
		requestID := uuid.NewString()
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			requestID = sc.TraceID().String()
		}

		appLog.Info("http access",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
			"latency", time.Since(start),
		)
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if re := recover(); re != nil {
				err, ok := re.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", re)
				}
				appLog.Error("handler panicked", err, "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
