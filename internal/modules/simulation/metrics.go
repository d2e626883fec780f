package simulation

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/rqlab/internal/modules/circuit"
)

// GateMetrics are the derived quantities reported for a single spectrum.
// Pointer fields are nil when the spectrum is too short for them.
type GateMetrics struct {
	GroundStateEnergy   float64  `json:"ground_state_energy"`
	FirstExcitedEnergy  *float64 `json:"first_excited_energy,omitempty"`
	TransitionFrequency *float64 `json:"transition_frequency,omitempty"`
	Anharmonicity       *float64 `json:"anharmonicity,omitempty"`
}

// Anharmonicity measures the deviation of the 0->2 transition from twice
// the 0->1 transition: (E2-E0) - 2*(E1-E0), in the input's energy units.
// A harmonic spectrum gives exactly zero. Requires at least 3 levels.
func Anharmonicity(energies []float64) (float64, error) {
	if len(energies) < 3 {
		return 0, fmt.Errorf("anharmonicity needs at least 3 levels, got %d: %w",
			len(energies), ErrInsufficientLevels)
	}
	e0, e1, e2 := energies[0], energies[1], energies[2]
	return (e2 - e0) - 2*(e1-e0), nil
}

// TransitionFrequencies returns E_k - E_0 for every excited level.
// Requires at least 2 levels.
func TransitionFrequencies(energies []float64) ([]float64, error) {
	if len(energies) < 2 {
		return nil, fmt.Errorf("transition frequencies need at least 2 levels, got %d: %w",
			len(energies), ErrInsufficientLevels)
	}
	out := make([]float64, len(energies)-1)
	for i := 1; i < len(energies); i++ {
		out[i-1] = energies[i] - energies[0]
	}
	return out, nil
}

// CouplingStrength estimates the coupling between two circuits as the
// energy gap between their first excited levels, the quantity that opens
// up at an anti-crossing. Both spectra need at least 2 levels.
func CouplingStrength(energiesA, energiesB []float64) (float64, error) {
	if len(energiesA) < 2 {
		return 0, fmt.Errorf("coupling strength needs at least 2 levels in the first spectrum, got %d: %w",
			len(energiesA), ErrInsufficientLevels)
	}
	if len(energiesB) < 2 {
		return 0, fmt.Errorf("coupling strength needs at least 2 levels in the second spectrum, got %d: %w",
			len(energiesB), ErrInsufficientLevels)
	}
	return math.Abs(energiesA[1] - energiesB[1]), nil
}

// ComputeGateMetrics derives the full metric set for one spectrum.
// Requires at least 2 levels; anharmonicity stays nil below 3.
func ComputeGateMetrics(energies []float64) (GateMetrics, error) {
	if len(energies) < 2 {
		return GateMetrics{}, fmt.Errorf("gate metrics need at least 2 levels, got %d: %w",
			len(energies), ErrInsufficientLevels)
	}

	m := GateMetrics{GroundStateEnergy: energies[0]}

	e1 := energies[1]
	m.FirstExcitedEnergy = &e1
	f01 := energies[1] - energies[0]
	m.TransitionFrequency = &f01

	if anh, err := Anharmonicity(energies); err == nil {
		m.Anharmonicity = &anh
	}

	return m, nil
}

// MinimumGap scans a sweep for the smallest gap between two levels and
// returns the flux where it occurs. Failed points and points with too few
// levels are skipped; an error is returned when no point qualifies.
func MinimumGap(result *SweepResult, levelA, levelB int) (flux, gap float64, err error) {
	if levelA < 0 || levelB < 0 || levelA == levelB {
		return 0, 0, fmt.Errorf("level pair (%d, %d) is not a valid gap: %w",
			levelA, levelB, circuit.ErrInvalidParameter)
	}

	found := false
	gap = math.Inf(1)
	for _, p := range result.Points {
		if p.Status != PointOK || levelA >= len(p.Energies) || levelB >= len(p.Energies) {
			continue
		}
		g := math.Abs(p.Energies[levelB] - p.Energies[levelA])
		if g < gap {
			gap = g
			flux = p.Flux
			found = true
		}
	}
	if !found {
		return 0, 0, fmt.Errorf("no sweep point carries levels %d and %d: %w",
			levelA, levelB, ErrInsufficientLevels)
	}
	return flux, gap, nil
}

// RefineAntiCrossing polishes a coarse anti-crossing location by minimizing
// the level gap over flux, starting from guess (typically the MinimumGap
// flux of a sweep). Points where the circuit fails to diagonalize are
// treated as infinitely bad, so the minimizer stays on solvable ground.
func (s *Service) RefineAntiCrossing(ctx context.Context, spec circuit.Spec, levelA, levelB int, guess float64) (flux, gap float64, err error) {
	if err := circuit.ValidateFlux(guess); err != nil {
		return 0, 0, err
	}
	nLevels := levelB + 1
	if levelA > levelB {
		nLevels = levelA + 1
	}

	gapAt := func(f float64) float64 {
		if f < 0 || f > 1 || ctx.Err() != nil {
			return math.Inf(1)
		}
		energies, err := s.diagonalizeAt(spec, f, nLevels)
		if err != nil || len(energies) < nLevels {
			return math.Inf(1)
		}
		return math.Abs(energies[levelB] - energies[levelA])
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 { return gapAt(x[0]) },
	}
	settings := &optimize.Settings{
		FuncEvaluations: 200,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-9,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, []float64{guess}, settings, &optimize.NelderMead{})
	if err != nil {
		return 0, 0, fmt.Errorf("anti-crossing refinement from flux %g: %w", guess, err)
	}
	if math.IsInf(res.F, 1) {
		return 0, 0, fmt.Errorf("anti-crossing refinement left the solvable flux range near %g: %w",
			guess, ErrDiagonalization)
	}

	return res.X[0], res.F, nil
}
