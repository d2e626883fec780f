package simulation

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/aristath/rqlab/internal/modules/circuit"
)

// EvolutionResult is a time-domain trajectory in the circuit's eigenbasis.
type EvolutionResult struct {
	Times       []float64      `json:"times"`       // ns
	Energies    []float64      `json:"energies"`    // eigenbasis, GHz
	States      [][]complex128 `json:"-"`           // state vector per time point
	Populations [][]float64    `json:"populations"` // |c_k|^2 per time point
}

// DefaultEvolutionTimes is the 0-100 ns, 1000-point grid used when the
// caller does not supply one.
func DefaultEvolutionTimes() []float64 {
	const n = 1000
	times := make([]float64, n)
	for i := range times {
		times[i] = 100 * float64(i) / float64(n-1)
	}
	return times
}

// Evolve propagates a state under the diagonal eigenbasis Hamiltonian:
// c_k(t) = c_k(0) * exp(-i*2*pi*E_k*t) with E in GHz and t in ns. The
// initial state defaults to the ground state when nil and is normalized
// before propagation. Pure function; the spectrum is not modified.
func Evolve(energies []float64, initial []complex128, times []float64) (*EvolutionResult, error) {
	if len(energies) == 0 {
		return nil, fmt.Errorf("time evolution needs at least 1 level: %w", ErrInsufficientLevels)
	}
	if len(times) == 0 {
		times = DefaultEvolutionTimes()
	}

	if initial == nil {
		initial = make([]complex128, len(energies))
		initial[0] = 1
	}
	if len(initial) != len(energies) {
		return nil, fmt.Errorf("initial state has %d amplitudes for %d levels: %w",
			len(initial), len(energies), circuit.ErrInvalidParameter)
	}

	// Normalize; a zero vector cannot be a state.
	var norm float64
	for _, c := range initial {
		norm += real(c)*real(c) + imag(c)*imag(c)
	}
	if norm == 0 {
		return nil, fmt.Errorf("initial state has zero norm: %w", circuit.ErrInvalidParameter)
	}
	scale := complex(1/math.Sqrt(norm), 0)

	result := &EvolutionResult{
		Times:       times,
		Energies:    energies,
		States:      make([][]complex128, len(times)),
		Populations: make([][]float64, len(times)),
	}

	for ti, t := range times {
		state := make([]complex128, len(energies))
		pops := make([]float64, len(energies))
		for k, e := range energies {
			phase := cmplx.Exp(complex(0, -2*math.Pi*e*t))
			state[k] = initial[k] * scale * phase
			pops[k] = real(state[k])*real(state[k]) + imag(state[k])*imag(state[k])
		}
		result.States[ti] = state
		result.Populations[ti] = pops
	}

	return result, nil
}

// Evolve diagonalizes the circuit described by spec and propagates the
// initial state through its eigenbasis. Auxiliary feature: the sweep
// engine never calls this.
func (s *Service) Evolve(ctx context.Context, spec circuit.Spec, nLevels int, initial []complex128, times []float64) (*EvolutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	energies, err := s.Spectrum(ctx, spec, nLevels)
	if err != nil {
		return nil, err
	}
	return Evolve(energies, initial, times)
}
