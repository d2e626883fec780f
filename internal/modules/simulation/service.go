package simulation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/events"
	"github.com/aristath/rqlab/internal/modules/circuit"
)

// Service coordinates the simulation pipeline: it owns the injected
// Simulator capability and publishes sweep lifecycle events. It keeps no
// state between requests; spectra are computed fresh every time.
type Service struct {
	sim Simulator
	bus *events.Bus // optional; nil in CLI usage
	log zerolog.Logger
}

// NewService creates a new simulation service
func NewService(sim Simulator, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		sim: sim,
		bus: bus,
		log: log.With().Str("service", "simulation").Logger(),
	}
}

func (s *Service) publish(data events.EventData) {
	if s.bus != nil {
		s.bus.Publish(data)
	}
}

// Spectrum builds the circuit and returns its lowest nLevels eigenvalues.
func (s *Service) Spectrum(ctx context.Context, spec circuit.Spec, nLevels int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.sim.BuildCircuit(spec)
	if err != nil {
		return nil, err
	}
	energies, err := s.sim.Diagonalize(c, nLevels)
	if err != nil {
		return nil, err
	}
	// Diagonalize may return fewer levels than requested, including none.
	evt := s.log.Debug().
		Str("spec", spec.String()).
		Int("levels", len(energies))
	if len(energies) > 0 {
		evt = evt.Float64("ground_state", energies[0])
	}
	evt.Msg("Spectrum computed")
	return energies, nil
}
