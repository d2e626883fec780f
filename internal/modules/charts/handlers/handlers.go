// Package handlers provides HTTP handlers for chart data.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/modules/charts"
	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/runs"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

// Handler handles chart HTTP requests
type Handler struct {
	svc  *charts.Service
	repo *runs.Repository
	log  zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(svc *charts.Service, repo *runs.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		svc:  svc,
		repo: repo,
		log:  log.With().Str("handler", "charts").Logger(),
	}
}

// HandleSweepChart handles GET /api/charts/sweep/{id}
func (h *Handler) HandleSweepChart(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	maxLevels := charts.DefaultMaxLevels
	if v := r.URL.Query().Get("levels"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxLevels = n
		}
	}

	chart := h.svc.SweepChart(run.ID, circuit.Topology(run.Topology), run.Points, maxLevels)
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": chart})
}

// HandleAntiCrossing handles GET /api/charts/anticrossing/{id}
func (h *Handler) HandleAntiCrossing(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	levelA, levelB := 0, 1
	if v := r.URL.Query().Get("level_a"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			levelA = n
		}
	}
	if v := r.URL.Query().Get("level_b"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			levelB = n
		}
	}

	chart, err := h.svc.AntiCrossing(run.ID, run.Points, levelA, levelB)
	if err != nil {
		status := http.StatusInternalServerError
		kind := "internal"
		switch {
		case errors.Is(err, circuit.ErrInvalidParameter):
			status, kind = http.StatusBadRequest, "invalid_parameter"
		case errors.Is(err, simulation.ErrInsufficientLevels):
			status, kind = http.StatusBadRequest, "insufficient_levels"
		}
		writeJSON(w, status, map[string]interface{}{
			"error": map[string]interface{}{"kind": kind, "message": err.Error()},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": chart})
}

// HandleSweepCSV handles GET /api/charts/sweep/{id}/csv
func (h *Handler) HandleSweepCSV(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "sweep-"+run.ID+".csv"))

	if err := h.svc.WriteSweepCSV(w, run.Points, run.NLevels); err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to stream sweep CSV")
	}
}

// loadRun fetches the run named in the URL, writing the error response on
// failure.
func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*runs.Run, bool) {
	id := chi.URLParam(r, "id")

	run, err := h.repo.Get(id)
	if errors.Is(err, runs.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]interface{}{"kind": "run_not_found", "message": err.Error()},
		})
		return nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run for chart")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return nil, false
	}

	return run, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
