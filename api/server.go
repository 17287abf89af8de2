/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/shifts/*           Scheduling records and computation
  /api/employees/*        Per-employee entries, summary, history
  /api/reconciliations/*  Batch lifecycle
  /api/allocations/*      Pending allocation removal
  /api/admin/*            Manual entries and the expiry sweep
  /api/scenarios/*        Demo data loading (development only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Post("/", h.SaveShift)
			r.Post("/{id}/compute", h.ComputeShift)
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Post("/{id}/recalculate", h.Recalculate)
			r.Get("/{id}/extra-hours", h.ListAvailableEntries)
			r.Get("/{id}/extra-hours/reconciled", h.ListReconciledEntries)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/reconciliations", h.ListBatches)
		})

		// Reconciliation routes
		r.Route("/reconciliations", func(r chi.Router) {
			r.Post("/", h.CreateReconciliation)
			r.Get("/{id}", h.GetReconciliation)
			r.Post("/{id}/approve", h.ApproveReconciliation)
			r.Post("/{id}/reject", h.RejectReconciliation)
		})

		// Allocation routes
		r.Route("/allocations", func(r chi.Router) {
			r.Delete("/{id}", h.DeleteAllocation)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/extra-hours", h.CreateManualEntry)
			r.Post("/expire", h.TriggerExpiry)
		})

		// Demo scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
