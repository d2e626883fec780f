package charts

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

func testPoints() []simulation.SweepPoint {
	return []simulation.SweepPoint{
		{Flux: 0.0, Status: simulation.PointOK, Energies: []float64{0, 2, 5}},
		{Flux: 0.25, Status: simulation.PointOK, Energies: []float64{0.1, 1.5, 4.8}},
		{Flux: 0.5, Status: simulation.PointFailed, Error: "singular"},
		{Flux: 0.75, Status: simulation.PointOK, Energies: []float64{0.1, 1.8, 4.9}},
	}
}

func TestSweepChart(t *testing.T) {
	svc := NewService(zerolog.Nop())

	chart := svc.SweepChart("run-1", circuit.TopologyInverter, testPoints(), 0)
	assert.Equal(t, "run-1", chart.RunID)
	assert.Equal(t, "inverter", chart.Topology)
	assert.Equal(t, 4, chart.TotalPoints)

	// Three levels present, each series skips the failed point.
	require.Len(t, chart.Levels, 3)
	for _, series := range chart.Levels {
		assert.Len(t, series.Points, 3)
		for _, p := range series.Points {
			assert.NotEqual(t, 0.5, p.Flux)
		}
	}

	assert.Equal(t, []float64{0.5}, chart.FailedFlux)
}

func TestSweepChart_MaxLevelsCap(t *testing.T) {
	svc := NewService(zerolog.Nop())
	chart := svc.SweepChart("run-1", circuit.TopologyLoop, testPoints(), 2)
	assert.Len(t, chart.Levels, 2)
}

func TestAntiCrossing(t *testing.T) {
	svc := NewService(zerolog.Nop())

	chart, err := svc.AntiCrossing("run-1", testPoints(), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, chart.LevelA)
	assert.Equal(t, 1, chart.LevelB)
	require.Len(t, chart.SeriesA, 3)
	require.Len(t, chart.SeriesB, 3)

	// Gaps are 2.0, 1.4 and 1.7; the minimum sits at flux 0.25.
	assert.InDelta(t, 1.4, chart.MinGap, 1e-12)
	assert.Equal(t, 0.25, chart.MinGapFlux)
}

func TestAntiCrossing_Errors(t *testing.T) {
	svc := NewService(zerolog.Nop())

	_, err := svc.AntiCrossing("run-1", testPoints(), 1, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, circuit.ErrInvalidParameter))

	_, err = svc.AntiCrossing("run-1", testPoints(), 0, 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, simulation.ErrInsufficientLevels))
}

func TestSpectrum(t *testing.T) {
	svc := NewService(zerolog.Nop())

	chart, err := svc.Spectrum(circuit.TopologyInverter, []float64{0, 5, 9.5})
	require.NoError(t, err)
	assert.Equal(t, "inverter", chart.Topology)
	require.NotNil(t, chart.Metrics.Anharmonicity)
	assert.InDelta(t, -0.5, *chart.Metrics.Anharmonicity, 1e-12)

	_, err = svc.Spectrum(circuit.TopologyInverter, []float64{0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, simulation.ErrInsufficientLevels))
}

func TestWriteSweepCSV(t *testing.T) {
	svc := NewService(zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, svc.WriteSweepCSV(&buf, testPoints(), 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5) // header + one row per point, failed included

	assert.Equal(t, "flux,status,E0,E1,E2", lines[0])
	assert.Equal(t, "0,ok,0,2,5", lines[1])
	// The failed point keeps its row with empty energy cells.
	assert.Equal(t, "0.5,failed,,,", lines[3])
}
