package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/teemow/inboxvault/internal/instrumentation"
)

// NewRouter wires the trigger and health endpoints. Only GET is accepted on /.
func NewRouter(trigger http.Handler, health *HealthChecker, metrics *instrumentation.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware(metrics))

	r.Handle("/", trigger).Methods(http.MethodGet)
	if health != nil {
		health.RegisterHealthEndpoints(r)
	}

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		metrics.RecordHTTPRequest(req.Context(), req.Method, req.URL.Path, http.StatusMethodNotAllowed, 0)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Kind: KindInternal})
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found", Kind: KindInternal})
	})

	return r
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(metrics *instrumentation.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
		})
	}
}
