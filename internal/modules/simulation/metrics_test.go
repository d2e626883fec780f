package simulation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/simulation"
	simtest "github.com/aristath/rqlab/internal/testing"
)

func TestAnharmonicity(t *testing.T) {
	tests := []struct {
		name     string
		energies []float64
		want     float64
		wantErr  bool
	}{
		{"negative anharmonicity", []float64{0, 5, 9.5}, -0.5, false},
		{"harmonic spectrum", []float64{0, 5, 10}, 0, false},
		{"positive anharmonicity", []float64{1, 6, 12}, 1, false},
		{"offset ground state", []float64{2, 7, 11.5}, -0.5, false},
		{"two levels only", []float64{0, 5}, 0, true},
		{"empty", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := simulation.Anharmonicity(tt.energies)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, simulation.ErrInsufficientLevels))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestTransitionFrequencies(t *testing.T) {
	freqs, err := simulation.TransitionFrequencies([]float64{1, 6, 10.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 9.5}, freqs)

	_, err = simulation.TransitionFrequencies([]float64{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, simulation.ErrInsufficientLevels))
}

func TestCouplingStrength(t *testing.T) {
	got, err := simulation.CouplingStrength([]float64{0, 5.2}, []float64{0, 5.0})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, got, 1e-12)

	// Order of the two spectra does not matter.
	swapped, err := simulation.CouplingStrength([]float64{0, 5.0}, []float64{0, 5.2})
	require.NoError(t, err)
	assert.InDelta(t, got, swapped, 1e-12)

	_, err = simulation.CouplingStrength([]float64{0}, []float64{0, 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, simulation.ErrInsufficientLevels))
}

func TestComputeGateMetrics(t *testing.T) {
	m, err := simulation.ComputeGateMetrics([]float64{1, 6, 10.5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.GroundStateEnergy)
	require.NotNil(t, m.FirstExcitedEnergy)
	assert.Equal(t, 6.0, *m.FirstExcitedEnergy)
	require.NotNil(t, m.TransitionFrequency)
	assert.Equal(t, 5.0, *m.TransitionFrequency)
	require.NotNil(t, m.Anharmonicity)
	assert.InDelta(t, -0.5, *m.Anharmonicity, 1e-12)
}

func TestComputeGateMetrics_TwoLevels(t *testing.T) {
	m, err := simulation.ComputeGateMetrics([]float64{0, 5})
	require.NoError(t, err)
	assert.Nil(t, m.Anharmonicity, "anharmonicity needs a third level")
	require.NotNil(t, m.TransitionFrequency)
	assert.Equal(t, 5.0, *m.TransitionFrequency)

	_, err = simulation.ComputeGateMetrics([]float64{0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, simulation.ErrInsufficientLevels))
}

func TestMinimumGap(t *testing.T) {
	result := &simulation.SweepResult{
		Points: []simulation.SweepPoint{
			{Flux: 0.0, Status: simulation.PointOK, Energies: []float64{0, 3.0}},
			{Flux: 0.25, Status: simulation.PointOK, Energies: []float64{0, 1.2}},
			{Flux: 0.5, Status: simulation.PointFailed},
			{Flux: 0.75, Status: simulation.PointOK, Energies: []float64{0, 0.4}},
			{Flux: 1.0, Status: simulation.PointOK, Energies: []float64{0, 2.1}},
		},
	}

	flux, gap, err := simulation.MinimumGap(result, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.75, flux)
	assert.InDelta(t, 0.4, gap, 1e-12)
}

func TestMinimumGap_Errors(t *testing.T) {
	result := &simulation.SweepResult{
		Points: []simulation.SweepPoint{
			{Flux: 0.5, Status: simulation.PointOK, Energies: []float64{0, 1}},
		},
	}

	_, _, err := simulation.MinimumGap(result, 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, circuit.ErrInvalidParameter))

	// No point carries level 2.
	_, _, err = simulation.MinimumGap(result, 0, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, simulation.ErrInsufficientLevels))
}

func TestRefineAntiCrossing_InvalidGuess(t *testing.T) {
	svc := simulation.NewService(simtest.NewFakeSimulator(), nil, zerolog.Nop())
	spec, err := circuit.NewInverter(circuit.GateParameters{Ej: 15, Ec: 0.3, Flux: 0, NLevels: 3}, 0)
	require.NoError(t, err)

	_, _, err = svc.RefineAntiCrossing(context.Background(), spec, 0, 1, 1.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, circuit.ErrInvalidParameter))
}

func TestRefineAntiCrossing_ConstantGap(t *testing.T) {
	// The fake's levels are evenly spaced at every flux, so the gap surface
	// is flat and the refiner must settle at the flat minimum value.
	svc := simulation.NewService(simtest.NewFakeSimulator(), nil, zerolog.Nop())
	spec, err := circuit.NewInverter(circuit.GateParameters{Ej: 15, Ec: 0.3, Flux: 0, NLevels: 3}, 0)
	require.NoError(t, err)

	flux, gap, err := svc.RefineAntiCrossing(context.Background(), spec, 0, 1, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, gap, 1e-6)
	assert.GreaterOrEqual(t, flux, 0.0)
	assert.LessOrEqual(t, flux, 1.0)
}
