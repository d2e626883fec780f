package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all chart routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Get("/sweep/{id}", h.HandleSweepChart)
		r.Get("/sweep/{id}/csv", h.HandleSweepCSV)
		r.Get("/anticrossing/{id}", h.HandleAntiCrossing)
	})
}
