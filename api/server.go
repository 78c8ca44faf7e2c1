/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/employees/*      Employee lookup
  /api/errors/*         Error ledger
  /api/runs/*           Run metadata and reload
  /api/scenarios/*      Demo data sets
  /api/*                Analytics, simulation, policy, export

SECURITY NOTE:
  No authentication middleware. No endpoint writes to the store; reload and
  scenario loading only replace the served snapshot.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Get("/{id}", h.GetEmployee)
		})

		r.Get("/analytics", h.GetAnalytics)
		r.Get("/recognition", h.GetRecognition)
		r.Get("/simulate", h.Simulate)

		r.Route("/errors", func(r chi.Router) {
			r.Get("/", h.GetErrors)
			r.Get("/report", h.GetErrorReport)
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Get("/latest", h.GetLatestRun)
			r.Post("/reload", h.ReloadRun)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Get("/policy", h.GetPolicy)
		r.Get("/export.xlsx", h.ExportWorkbook)
	})

	return r
}
