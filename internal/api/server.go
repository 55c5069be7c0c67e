// Package api serves the dashboard HTTP surface: tool management,
// verification runs, statistics, and university lookup data.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"verihub/internal/logging"
	"verihub/internal/sheerid"
	"verihub/internal/store"
	"verihub/internal/supervisor"
)

// Server owns the router and its dependencies.
type Server struct {
	store  *store.Store
	sup    *supervisor.Supervisor
	client *sheerid.Client
	router chi.Router
}

// New assembles the routed server.
func New(st *store.Store, sup *supervisor.Supervisor, client *sheerid.Client) *Server {
	s := &Server{store: st, sup: sup, client: client}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)
		r.Get("/tools/{id}", s.handleGetTool)
		r.Patch("/tools/{id}/toggle", s.handleToggleTool)

		r.Get("/verifications", s.handleListVerifications)
		r.Post("/verifications/run", s.handleRunVerification)
		r.Get("/verifications/{id}/status", s.handleVerificationStatus)

		r.Get("/stats", s.handleStats)
		r.Get("/dashboard", s.handleDashboard)

		r.Get("/universities", s.handleListUniversities)
		r.Post("/universities", s.handleCreateUniversity)
		r.Delete("/universities/{id}", s.handleDeleteUniversity)
	})

	s.router = r
	return s
}

// Handler exposes the router for http.Server wiring and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.API("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.APIError("encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}
