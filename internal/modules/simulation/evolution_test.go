package simulation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rqlab/internal/modules/circuit"
)

func TestDefaultEvolutionTimes(t *testing.T) {
	times := DefaultEvolutionTimes()
	require.Len(t, times, 1000)
	assert.Equal(t, 0.0, times[0])
	assert.InDelta(t, 100.0, times[len(times)-1], 1e-9)
}

func TestEvolve_GroundStateDefault(t *testing.T) {
	result, err := Evolve([]float64{0, 5, 10}, nil, []float64{0, 1, 2})
	require.NoError(t, err)
	require.Len(t, result.Populations, 3)

	// A lone occupied eigenstate only picks up phase; its population stays 1.
	for ti, pops := range result.Populations {
		assert.InDelta(t, 1.0, pops[0], 1e-12, "t=%d", ti)
		assert.InDelta(t, 0.0, pops[1], 1e-12, "t=%d", ti)
		assert.InDelta(t, 0.0, pops[2], 1e-12, "t=%d", ti)
	}
}

func TestEvolve_NormalizesInitialState(t *testing.T) {
	// Unnormalized equal superposition becomes 50/50.
	result, err := Evolve([]float64{0, 5}, []complex128{2, 2}, []float64{0, 1})
	require.NoError(t, err)

	for _, pops := range result.Populations {
		assert.InDelta(t, 0.5, pops[0], 1e-12)
		assert.InDelta(t, 0.5, pops[1], 1e-12)
	}
}

func TestEvolve_NormConservation(t *testing.T) {
	initial := []complex128{complex(0.3, 0.1), complex(0.5, -0.2), complex(0.1, 0.7)}
	result, err := Evolve([]float64{0.1, 4.9, 11.2}, initial, DefaultEvolutionTimes())
	require.NoError(t, err)

	for ti, pops := range result.Populations {
		var total float64
		for _, p := range pops {
			total += p
		}
		assert.InDelta(t, 1.0, total, 1e-9, "norm drifted at t index %d", ti)
	}
}

func TestEvolve_PhaseWinding(t *testing.T) {
	// With E1 = 1 GHz the excited amplitude winds a half turn in 0.5 ns:
	// exp(-i*2*pi*1*0.5) = -1.
	s := 1 / math.Sqrt2
	result, err := Evolve([]float64{0, 1}, []complex128{complex(s, 0), complex(s, 0)}, []float64{0, 0.5})
	require.NoError(t, err)

	at0 := result.States[0]
	assert.InDelta(t, s, real(at0[1]), 1e-12)

	atHalf := result.States[1]
	assert.InDelta(t, -s, real(atHalf[1]), 1e-9)
	assert.InDelta(t, 0, imag(atHalf[1]), 1e-9)
	// Ground amplitude is untouched at E0 = 0.
	assert.InDelta(t, s, real(atHalf[0]), 1e-12)
}

func TestEvolve_DefaultTimeGrid(t *testing.T) {
	result, err := Evolve([]float64{0, 5}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, result.Times, 1000)
	assert.Len(t, result.Populations, 1000)
}

func TestEvolve_InputErrors(t *testing.T) {
	_, err := Evolve(nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientLevels))

	_, err = Evolve([]float64{0, 5}, []complex128{1}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, circuit.ErrInvalidParameter))

	_, err = Evolve([]float64{0, 5}, []complex128{0, 0}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, circuit.ErrInvalidParameter))
}
