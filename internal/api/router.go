package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegister)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// Parking surface — read endpoints are open so signage and guidance
		// screens work without accounts.
		r.Route("/parking", func(r chi.Router) {
			r.Get("/multilot/summary", s.handleMultiLotSummary)
			r.Get("/nearest", s.handleNearestLot)

			r.Route("/occupancy", func(r chi.Router) {
				r.Get("/hourly", s.handleOccupancyHourly)
				r.Get("/daily", s.handleOccupancyDaily)
				r.Get("/monthly", s.handleOccupancyMonthly)
			})

			r.Route("/{lotID}", func(r chi.Router) {
				r.Get("/nodes", s.handleLotNodes)
				r.Get("/road-edges", s.handleRoadEdges)
				r.Get("/route", s.handleRoute)
				r.Get("/alternative-routes", s.handleAlternativeRoutes)
				r.Get("/route-to-exit", s.handleRouteToExit)
				r.Get("/find-spot", s.handleFindSpot)
				r.Post("/validate-path", s.handleValidatePath)

				// Spot transitions require a logged-in account
				r.Group(func(r chi.Router) {
					r.Use(s.authMiddleware)
					r.Post("/update_status", s.handleUpdateStatus)
				})
			})
		})

		// Event streams (no auth: same visibility as the read endpoints)
		r.Get("/events", s.handleEvents)
		r.Get("/ws", s.handleWebSocket) // auth via ticket, validated in handler

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Carbon savings endpoints
			r.Route("/carbon-savings", func(r chi.Router) {
				r.Post("/", s.handleRecordSaving)
				r.Get("/users/{userID}/total", s.handleUserSavings)
				r.Get("/lots/{lotID}/summary", s.handleLotSavings)
			})

			// User management (admin only)
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requireAdminMiddleware)
				r.Get("/", s.handleListUsers)
				r.Get("/{id}", s.handleGetUser)
				r.Put("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
