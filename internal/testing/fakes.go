// Package testing provides shared test doubles for the simulation layer.
package testing

import (
	"fmt"
	"sync"

	"github.com/aristath/rqlab/internal/modules/circuit"
	"github.com/aristath/rqlab/internal/modules/simulation"
)

// FakeSimulator is a deterministic stand-in for the charge-basis simulator.
// Spectra are synthesized from the spec's parameters, so identical inputs
// always yield identical outputs and sweep tests can assert exact values.
//
// Individual flux points can be forced to fail to exercise the sweep
// engine's per-point isolation.
type FakeSimulator struct {
	mu          sync.Mutex
	failAtFlux  map[float64]error
	buildErr    error
	buildCalls  int
	diagCalls   int
	levelWeight float64 // spacing between synthesized levels, default 1.0
}

// NewFakeSimulator creates a fake with harmonic unit spacing.
func NewFakeSimulator() *FakeSimulator {
	return &FakeSimulator{
		failAtFlux:  make(map[float64]error),
		levelWeight: 1.0,
	}
}

// FailAtFlux forces Diagonalize to fail for circuits built at this exact
// flux value.
func (f *FakeSimulator) FailAtFlux(flux float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAtFlux[flux] = fmt.Errorf("forced failure at flux %g: %w", flux, simulation.ErrDiagonalization)
}

// FailBuild forces every BuildCircuit call to fail.
func (f *FakeSimulator) FailBuild() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildErr = fmt.Errorf("forced construction failure: %w", simulation.ErrCircuitConstruction)
}

// BuildCalls returns how many circuits were assembled.
func (f *FakeSimulator) BuildCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buildCalls
}

// DiagCalls returns how many diagonalizations ran.
func (f *FakeSimulator) DiagCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.diagCalls
}

// BuildCircuit records the call and returns a circuit carrying the spec.
func (f *FakeSimulator) BuildCircuit(spec circuit.Spec) (*simulation.Circuit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildCalls++
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &simulation.Circuit{Spec: spec}, nil
}

// Diagonalize synthesizes an ascending spectrum: level k sits at
// flux + k*levelWeight, anchored at the circuit's flux bias so sweep tests
// can tell points apart.
func (f *FakeSimulator) Diagonalize(c *simulation.Circuit, nLevels int) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diagCalls++
	if err, ok := f.failAtFlux[c.Spec.Flux]; ok {
		return nil, err
	}
	energies := make([]float64, nLevels)
	for k := range energies {
		energies[k] = c.Spec.Flux + float64(k)*f.levelWeight
	}
	return energies, nil
}
