// Package adminhttp exposes the RXS server's operational surface:
// health probes, Prometheus metrics, and a couple of read-only debug
// endpoints over the audit ledger and policy snapshot. It never
// touches the RXS wire protocol itself.
package adminhttp

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pfagner/rxs/internal/audit"
	"github.com/pfagner/rxs/internal/logger"
	"github.com/pfagner/rxs/internal/server"
)

// Deps collects the collaborators the admin surface reads from. All
// fields are optional; a nil Audit or Policy degrades its endpoint
// gracefully instead of panicking.
type Deps struct {
	Policy *server.Policy
	Audit  *audit.Ledger
}

// NewRouter builds the admin HTTP handler: request-id/recover/timeout
// middleware, liveness/readiness probes, a Prometheus /metrics
// endpoint, and /debug/* introspection.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", liveness)
		r.Get("/ready", readiness)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/debug", func(r chi.Router) {
		r.Get("/policy", debugPolicy(deps.Policy))
		r.Get("/audit", debugAudit(deps.Audit))
	})

	return r
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func readiness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func debugPolicy(p *server.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		allow, deny := 0, 0
		if p != nil {
			allow, deny = p.Size()
		}
		writeJSON(w, map[string]int{"allow_entries": allow, "deny_entries": deny})
	}
}

func debugAudit(l *audit.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		entries, err := l.Recent(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("adminhttp: encode response failed", "error", err.Error())
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("admin request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
