package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulation", func(r chi.Router) {
		r.Post("/spectrum", h.HandleSpectrum)
		r.Post("/sweep", h.HandleSweep)
		r.Post("/metrics", h.HandleMetrics)
		r.Post("/coupling", h.HandleCoupling)
		r.Post("/evolve", h.HandleEvolve)
		r.Post("/anticrossing", h.HandleRefineAntiCrossing)
	})
}
