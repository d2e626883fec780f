// Package charts turns sweep results and spectra into plain chart data for
// the frontend. Pure consumer of the simulation layer's output: nothing in
// here feeds back into the core, and nothing here renders pixels.
package charts

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

// DefaultMaxLevels caps how many levels a sweep chart carries; matches the
// five-level default of the flux-sweep view.
const DefaultMaxLevels = 5

// ChartPoint is a single (flux, energy) sample of one level
type ChartPoint struct {
	Flux   float64 `json:"flux"`
	Energy float64 `json:"energy"` // GHz
}

// LevelSeries is the trace of one energy level across a sweep
type LevelSeries struct {
	Level  int          `json:"level"`
	Points []ChartPoint `json:"points"`
}

// SweepChart is the full energy-vs-flux view of a stored sweep
type SweepChart struct {
	RunID       string        `json:"run_id"`
	Topology    string        `json:"topology"`
	Levels      []LevelSeries `json:"levels"`
	FailedFlux  []float64     `json:"failed_flux,omitempty"` // flux values of failed points
	TotalPoints int           `json:"total_points"`
}

// AntiCrossingChart is the two-level view with the minimum gap annotated
type AntiCrossingChart struct {
	RunID      string       `json:"run_id"`
	LevelA     int          `json:"level_a"`
	LevelB     int          `json:"level_b"`
	SeriesA    []ChartPoint `json:"series_a"`
	SeriesB    []ChartPoint `json:"series_b"`
	MinGap     float64      `json:"min_gap"`      // GHz
	MinGapFlux float64      `json:"min_gap_flux"` // where the gap closes tightest
}

// SpectrumChart is the level-index-vs-energy view of a single spectrum
type SpectrumChart struct {
	Topology string                 `json:"topology"`
	Energies []float64              `json:"energies"`
	Metrics  simulation.GateMetrics `json:"metrics"`
}

// Service builds chart data from simulation output
type Service struct {
	log zerolog.Logger
}

// NewService creates a new charts service
func NewService(log zerolog.Logger) *Service {
	return &Service{
		log: log.With().Str("service", "charts").Logger(),
	}
}

// SweepChart converts sweep points into per-level series. Failed points are
// dropped from the series and reported separately so the frontend can mark
// them instead of plotting garbage.
func (s *Service) SweepChart(runID string, topology circuit.Topology, points []simulation.SweepPoint, maxLevels int) *SweepChart {
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}

	nLevels := 0
	for _, p := range points {
		if p.Status == simulation.PointOK && len(p.Energies) > nLevels {
			nLevels = len(p.Energies)
		}
	}
	if nLevels > maxLevels {
		nLevels = maxLevels
	}

	chart := &SweepChart{
		RunID:       runID,
		Topology:    string(topology),
		Levels:      make([]LevelSeries, 0, nLevels),
		TotalPoints: len(points),
	}

	for level := 0; level < nLevels; level++ {
		series := LevelSeries{Level: level}
		for _, p := range points {
			if p.Status != simulation.PointOK || level >= len(p.Energies) {
				continue
			}
			series.Points = append(series.Points, ChartPoint{Flux: p.Flux, Energy: p.Energies[level]})
		}
		chart.Levels = append(chart.Levels, series)
	}

	for _, p := range points {
		if p.Status == simulation.PointFailed {
			chart.FailedFlux = append(chart.FailedFlux, p.Flux)
		}
	}

	return chart
}

// AntiCrossing extracts two level traces and locates their minimum gap.
func (s *Service) AntiCrossing(runID string, points []simulation.SweepPoint, levelA, levelB int) (*AntiCrossingChart, error) {
	if levelA < 0 || levelB < 0 || levelA == levelB {
		return nil, fmt.Errorf("level pair (%d, %d) is not a valid anti-crossing view: %w",
			levelA, levelB, circuit.ErrInvalidParameter)
	}

	chart := &AntiCrossingChart{
		RunID:  runID,
		LevelA: levelA,
		LevelB: levelB,
		MinGap: math.Inf(1),
	}

	for _, p := range points {
		if p.Status != simulation.PointOK || levelA >= len(p.Energies) || levelB >= len(p.Energies) {
			continue
		}
		chart.SeriesA = append(chart.SeriesA, ChartPoint{Flux: p.Flux, Energy: p.Energies[levelA]})
		chart.SeriesB = append(chart.SeriesB, ChartPoint{Flux: p.Flux, Energy: p.Energies[levelB]})

		gap := math.Abs(p.Energies[levelB] - p.Energies[levelA])
		if gap < chart.MinGap {
			chart.MinGap = gap
			chart.MinGapFlux = p.Flux
		}
	}

	if len(chart.SeriesA) == 0 {
		return nil, fmt.Errorf("no sweep point carries levels %d and %d: %w",
			levelA, levelB, simulation.ErrInsufficientLevels)
	}

	return chart, nil
}

// Spectrum pairs a single spectrum with its derived metrics.
func (s *Service) Spectrum(topology circuit.Topology, energies []float64) (*SpectrumChart, error) {
	metrics, err := simulation.ComputeGateMetrics(energies)
	if err != nil {
		return nil, err
	}
	return &SpectrumChart{
		Topology: string(topology),
		Energies: energies,
		Metrics:  metrics,
	}, nil
}

// WriteSweepCSV streams a sweep as CSV: flux, status, then one column per
// level. Failed points keep their row with empty energy cells so row count
// matches point count.
func (s *Service) WriteSweepCSV(w io.Writer, points []simulation.SweepPoint, nLevels int) error {
	cw := csv.NewWriter(w)

	header := []string{"flux", "status"}
	for i := 0; i < nLevels; i++ {
		header = append(header, fmt.Sprintf("E%d", i))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Flux, 'g', -1, 64),
			string(p.Status),
		}
		for i := 0; i < nLevels; i++ {
			if p.Status == simulation.PointOK && i < len(p.Energies) {
				row = append(row, strconv.FormatFloat(p.Energies[i], 'g', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
