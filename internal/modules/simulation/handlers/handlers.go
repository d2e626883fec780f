// Package handlers provides HTTP handlers for simulation operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

// RunStore persists completed sweeps. Satisfied by runs.Repository.
type RunStore interface {
	Save(result *simulation.SweepResult) error
}

// Defaults carries the configured fallback values for unqualified requests.
type Defaults struct {
	NPoints     int
	NLevels     int
	MaxFailures int
}

// Handler handles simulation HTTP requests
type Handler struct {
	svc      *simulation.Service
	store    RunStore
	defaults Defaults
	log      zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(svc *simulation.Service, store RunStore, defaults Defaults, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		store:    store,
		defaults: defaults,
		log:      log.With().Str("handler", "simulation").Logger(),
	}
}

// GateRequest carries the circuit parameters common to all endpoints.
// Fields not used by the selected gate are ignored.
type GateRequest struct {
	Gate string `json:"gate"` // inverter | anb | loop

	Ej           float64 `json:"ej"`
	Ec           float64 `json:"ec"`
	Flux         float64 `json:"flux"`
	ChargeOffset float64 `json:"ng"`

	// ANB gate
	Ej1      float64 `json:"ej1"`
	Ej2      float64 `json:"ej2"`
	Coupling float64 `json:"coupling"`
	Flux1    float64 `json:"flux1"`
	Flux2    float64 `json:"flux2"`

	// RQL loop
	El float64 `json:"el"`

	NLevels int `json:"n_levels"`
}

// Spec validates the request and produces the circuit spec for its gate.
func (req *GateRequest) Spec() (circuit.Spec, int, error) {
	topology, err := circuit.ParseTopology(req.Gate)
	if err != nil {
		return circuit.Spec{}, 0, err
	}

	nLevels := req.NLevels
	if nLevels == 0 {
		nLevels = 10
	}

	switch topology {
	case circuit.TopologyANB:
		spec, err := circuit.NewANBGate(circuit.ANBParameters{
			Ej1:      req.Ej1,
			Ej2:      req.Ej2,
			Ec:       req.Ec,
			Coupling: req.Coupling,
			Flux1:    req.Flux1,
			Flux2:    req.Flux2,
			NLevels:  nLevels,
		})
		return spec, nLevels, err
	case circuit.TopologyLoop:
		spec, err := circuit.NewLoop(circuit.GateParameters{
			Ej: req.Ej, Ec: req.Ec, Flux: req.Flux, NLevels: nLevels,
		}, req.El)
		return spec, nLevels, err
	default:
		spec, err := circuit.NewInverter(circuit.GateParameters{
			Ej: req.Ej, Ec: req.Ec, Flux: req.Flux, NLevels: nLevels,
		}, req.ChargeOffset)
		return spec, nLevels, err
	}
}

// SpectrumRequest represents a request to compute a single spectrum
type SpectrumRequest struct {
	GateRequest
}

// SweepRequest represents a request to run a flux sweep
type SweepRequest struct {
	GateRequest
	Lo          *float64 `json:"lo"`
	Hi          *float64 `json:"hi"`
	NPoints     int      `json:"n_points"`
	MaxFailures *int     `json:"max_failures"`
	Store       *bool    `json:"store"` // default true
}

// MetricsRequest represents a request to derive metrics from raw energies
type MetricsRequest struct {
	Energies []float64 `json:"energies"`
}

// CouplingRequest represents a request to estimate coupling strength
type CouplingRequest struct {
	EnergiesA []float64 `json:"energies_a"`
	EnergiesB []float64 `json:"energies_b"`
}

// EvolveRequest represents a request to simulate time evolution
type EvolveRequest struct {
	GateRequest
	Times []float64 `json:"times,omitempty"` // ns; defaults to 0-100ns/1000 points
}

// RefineRequest represents a request to refine an anti-crossing location
type RefineRequest struct {
	GateRequest
	LevelA int     `json:"level_a"`
	LevelB int     `json:"level_b"`
	Guess  float64 `json:"guess"`
}

// HandleSpectrum handles POST /api/simulation/spectrum
func (h *Handler) HandleSpectrum(w http.ResponseWriter, r *http.Request) {
	var req SpectrumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	spec, nLevels, err := req.Spec()
	if err != nil {
		h.writeError(w, err)
		return
	}

	energies, err := h.svc.Spectrum(r.Context(), spec, nLevels)
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload := map[string]interface{}{
		"topology": spec.Topology,
		"energies": energies,
	}

	// A single-level spectrum is a valid result with no derivable metrics;
	// the field is omitted rather than zero-filled.
	metrics, err := simulation.ComputeGateMetrics(energies)
	switch {
	case err == nil:
		payload["metrics"] = metrics
	case !errors.Is(err, simulation.ErrInsufficientLevels):
		h.writeError(w, err)
		return
	}

	h.writeData(w, payload)
}

// HandleSweep handles POST /api/simulation/sweep
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	spec, nLevels, err := req.Spec()
	if err != nil {
		h.writeError(w, err)
		return
	}

	cfg := simulation.SweepConfig{
		Lo:          0.0,
		Hi:          1.0,
		NPoints:     h.defaults.NPoints,
		NLevels:     nLevels,
		MaxFailures: h.defaults.MaxFailures,
	}
	if req.Lo != nil {
		cfg.Lo = *req.Lo
	}
	if req.Hi != nil {
		cfg.Hi = *req.Hi
	}
	if req.NPoints > 0 {
		cfg.NPoints = req.NPoints
	}
	if req.MaxFailures != nil {
		cfg.MaxFailures = *req.MaxFailures
	}

	result, err := h.svc.FluxSweep(r.Context(), spec, cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.Store == nil || *req.Store {
		if err := h.store.Save(result); err != nil {
			// The sweep itself succeeded; report it but flag storage.
			h.log.Error().Err(err).Str("run_id", result.RunID).Msg("Failed to store sweep run")
		}
	}

	h.writeData(w, result)
}

// HandleMetrics handles POST /api/simulation/metrics
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	var req MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	metrics, err := simulation.ComputeGateMetrics(req.Energies)
	if err != nil {
		h.writeError(w, err)
		return
	}

	transitions, err := simulation.TransitionFrequencies(req.Energies)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, map[string]interface{}{
		"metrics":                metrics,
		"transition_frequencies": transitions,
	})
}

// HandleCoupling handles POST /api/simulation/coupling
func (h *Handler) HandleCoupling(w http.ResponseWriter, r *http.Request) {
	var req CouplingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	coupling, err := simulation.CouplingStrength(req.EnergiesA, req.EnergiesB)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, map[string]interface{}{
		"coupling_strength": coupling,
	})
}

// HandleEvolve handles POST /api/simulation/evolve
func (h *Handler) HandleEvolve(w http.ResponseWriter, r *http.Request) {
	var req EvolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	spec, nLevels, err := req.Spec()
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.svc.Evolve(r.Context(), spec, nLevels, nil, req.Times)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, result)
}

// HandleRefineAntiCrossing handles POST /api/simulation/anticrossing
func (h *Handler) HandleRefineAntiCrossing(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	spec, _, err := req.Spec()
	if err != nil {
		h.writeError(w, err)
		return
	}

	flux, gap, err := h.svc.RefineAntiCrossing(r.Context(), spec, req.LevelA, req.LevelB, req.Guess)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, map[string]interface{}{
		"flux": flux,
		"gap":  gap,
	})
}

// writeData wraps a payload in the standard data/metadata envelope.
func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeError maps the simulation error taxonomy onto HTTP statuses. The
// kind is named in the body; raw failed-point data never masquerades as a
// valid result.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	kind := "internal"

	switch {
	case errors.Is(err, circuit.ErrInvalidParameter):
		status = http.StatusBadRequest
		kind = "invalid_parameter"
	case errors.Is(err, simulation.ErrInsufficientLevels):
		status = http.StatusBadRequest
		kind = "insufficient_levels"
	case errors.Is(err, simulation.ErrCircuitConstruction):
		status = http.StatusUnprocessableEntity
		kind = "circuit_construction"
	case errors.Is(err, simulation.ErrSweepAborted):
		status = http.StatusUnprocessableEntity
		kind = "sweep_aborted"
	case errors.Is(err, simulation.ErrDiagonalization):
		status = http.StatusInternalServerError
		kind = "diagonalization"
	}

	h.log.Error().Err(err).Str("kind", kind).Msg("Simulation request failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"kind":    kind,
			"message": err.Error(),
		},
	})
}
