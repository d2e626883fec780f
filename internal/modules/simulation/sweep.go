package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/rqlab/internal/events"
	"github.com/aristath/rqlab/internal/modules/circuit"
)

// PointStatus distinguishes a failed sweep point from a successful one.
// A low-energy success and a failure must never be confused, so status
// travels with every point instead of being encoded in the spectrum.
type PointStatus string

const (
	// PointOK marks a point whose diagonalization succeeded
	PointOK PointStatus = "ok"
	// PointFailed marks a point whose diagonalization failed; its
	// spectrum is empty and Error carries the diagnostic
	PointFailed PointStatus = "failed"
)

// SweepPoint is one (flux, spectrum) pair of a sweep.
type SweepPoint struct {
	Flux     float64     `json:"flux"`
	Energies []float64   `json:"energies"` // ascending, GHz; empty when failed
	Status   PointStatus `json:"status"`
	Error    string      `json:"error,omitempty"`
}

// SweepConfig configures a flux sweep.
type SweepConfig struct {
	Lo      float64 `json:"lo"`
	Hi      float64 `json:"hi"`
	NPoints int     `json:"n_points"`
	NLevels int     `json:"n_levels"`

	// MaxFailures aborts the sweep once more than this many points have
	// failed. 0 disables the threshold: failed points are recorded and
	// the sweep continues.
	MaxFailures int `json:"max_failures"`

	// ProgressEvery controls how often progress events are published,
	// in points. 0 uses the default of 20.
	ProgressEvery int `json:"-"`
}

func (c SweepConfig) validate() error {
	if err := circuit.ValidateFlux(c.Lo); err != nil {
		return err
	}
	if err := circuit.ValidateFlux(c.Hi); err != nil {
		return err
	}
	if c.Lo > c.Hi {
		return fmt.Errorf("flux range lo %g exceeds hi %g: %w", c.Lo, c.Hi, circuit.ErrInvalidParameter)
	}
	if c.NPoints < 1 {
		return fmt.Errorf("n_points must be at least 1, got %d: %w", c.NPoints, circuit.ErrInvalidParameter)
	}
	if c.NLevels < 1 {
		return fmt.Errorf("n_levels must be at least 1, got %d: %w", c.NLevels, circuit.ErrInvalidParameter)
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("max_failures cannot be negative, got %d: %w", c.MaxFailures, circuit.ErrInvalidParameter)
	}
	return nil
}

// SweepResult is an ordered flux sweep: points ascend in flux, one entry
// per requested point unless the sweep aborted early.
type SweepResult struct {
	RunID     string        `json:"run_id"`
	Spec      circuit.Spec  `json:"spec"`
	Config    SweepConfig   `json:"config"`
	Points    []SweepPoint  `json:"points"`
	Failed    int           `json:"failed"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// fluxAt interpolates the i-th sweep value. A single-point sweep sits at lo.
func fluxAt(lo, hi float64, i, n int) float64 {
	if n == 1 {
		return lo
	}
	return lo + float64(i)*(hi-lo)/float64(n-1)
}

// FluxSweep diagonalizes the circuit at evenly spaced flux values between
// cfg.Lo and cfg.Hi inclusive and collects the spectra in increasing-flux
// order.
//
// Failures are isolated per point: a singular topology at one flux value
// produces a PointFailed entry and leaves every other point untouched.
// When cfg.MaxFailures is exceeded the sweep stops and returns the partial
// result together with an ErrSweepAborted error. The context is honored
// between points so long sweeps can be cancelled cooperatively.
func (s *Service) FluxSweep(ctx context.Context, spec circuit.Spec, cfg SweepConfig) (*SweepResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	progressEvery := cfg.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = 20
	}

	result := &SweepResult{
		RunID:     uuid.New().String(),
		Spec:      spec,
		Config:    cfg,
		Points:    make([]SweepPoint, 0, cfg.NPoints),
		StartedAt: time.Now(),
	}

	s.log.Info().
		Str("run_id", result.RunID).
		Str("spec", spec.String()).
		Float64("lo", cfg.Lo).
		Float64("hi", cfg.Hi).
		Int("n_points", cfg.NPoints).
		Int("n_levels", cfg.NLevels).
		Msg("Starting flux sweep")

	s.publish(&events.SweepStartedData{
		RunID:    result.RunID,
		Topology: string(spec.Topology),
		NPoints:  cfg.NPoints,
		NLevels:  cfg.NLevels,
	})

	for i := 0; i < cfg.NPoints; i++ {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(result.StartedAt)
			s.publish(&events.SweepFailedData{RunID: result.RunID, Error: err.Error()})
			return result, fmt.Errorf("flux sweep cancelled at point %d/%d: %w", i, cfg.NPoints, err)
		}

		flux := fluxAt(cfg.Lo, cfg.Hi, i, cfg.NPoints)
		point := SweepPoint{Flux: flux, Status: PointOK}

		energies, err := s.diagonalizeAt(spec, flux, cfg.NLevels)
		if err != nil {
			// Isolate the failure to this point; neighbors are unaffected.
			point.Status = PointFailed
			point.Error = err.Error()
			result.Failed++
			s.log.Warn().
				Str("run_id", result.RunID).
				Int("point", i).
				Float64("flux", flux).
				Err(err).
				Msg("Sweep point failed")
		} else {
			point.Energies = energies
		}

		result.Points = append(result.Points, point)

		if cfg.MaxFailures > 0 && result.Failed > cfg.MaxFailures {
			result.Duration = time.Since(result.StartedAt)
			err := fmt.Errorf("%d failed points exceed threshold %d at flux %g (point %d/%d): %w",
				result.Failed, cfg.MaxFailures, flux, i, cfg.NPoints, ErrSweepAborted)
			s.publish(&events.SweepFailedData{RunID: result.RunID, Error: err.Error()})
			return result, err
		}

		if (i+1)%progressEvery == 0 {
			s.publish(&events.SweepProgressData{
				RunID:     result.RunID,
				Completed: i + 1,
				Total:     cfg.NPoints,
				Failed:    result.Failed,
			})
		}
	}

	result.Duration = time.Since(result.StartedAt)

	s.log.Info().
		Str("run_id", result.RunID).
		Int("points", len(result.Points)).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Flux sweep completed")

	s.publish(&events.SweepCompletedData{
		RunID:      result.RunID,
		Points:     len(result.Points),
		Failed:     result.Failed,
		DurationMS: result.Duration.Milliseconds(),
	})

	return result, nil
}

// diagonalizeAt rebuilds the circuit with the flux substituted and returns
// its spectrum. Each point assembles an independent circuit; there is no
// shared state between sweep iterations.
func (s *Service) diagonalizeAt(spec circuit.Spec, flux float64, nLevels int) ([]float64, error) {
	pointSpec, err := spec.WithFlux(flux)
	if err != nil {
		return nil, err
	}
	c, err := s.sim.BuildCircuit(pointSpec)
	if err != nil {
		return nil, err
	}
	return s.sim.Diagonalize(c, nLevels)
}

// LevelSeries extracts the energies of one level across all successful
// points. Failed points are skipped; the returned flux slice is aligned
// with the energy slice.
func (r *SweepResult) LevelSeries(level int) (flux []float64, energies []float64) {
	for _, p := range r.Points {
		if p.Status != PointOK || level >= len(p.Energies) {
			continue
		}
		flux = append(flux, p.Flux)
		energies = append(energies, p.Energies[level])
	}
	return flux, energies
}
