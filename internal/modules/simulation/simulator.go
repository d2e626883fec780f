// Package simulation owns the numerical side of the gate lab: assembling
// circuit Hamiltonians, diagonalizing them, sweeping flux bias, deriving
// gate metrics and propagating optional time evolution.
//
// The Hamiltonian/eigenvalue machinery is exposed as the Simulator
// capability so the sweep engine and metric derivation can be exercised
// against a deterministic fake in tests while production wires the
// gonum-backed charge-basis implementation.
package simulation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/rqlab/internal/modules/circuit"
)

// Simulator builds circuits and computes their energy spectra.
//
// Both operations are deterministic: identical specs yield identical
// Hamiltonians and identical (ascending) eigenvalues, which is what makes
// flux sweeps reproducible bit for bit.
type Simulator interface {
	// BuildCircuit assembles the Hamiltonian for a validated spec.
	// Failures wrap ErrCircuitConstruction.
	BuildCircuit(spec circuit.Spec) (*Circuit, error)

	// Diagonalize returns up to nLevels eigenvalues in ascending order,
	// in GHz. Fewer than nLevels are returned when the truncated basis is
	// smaller than the request. Failures wrap ErrDiagonalization.
	Diagonalize(c *Circuit, nLevels int) ([]float64, error)
}

// Circuit is an assembled circuit Hamiltonian. Opaque to callers outside
// this package; the presentation layer only ever sees spectra.
type Circuit struct {
	Spec circuit.Spec

	dim int
	h   *mat.SymDense
}

// Dim returns the dimension of the truncated Hilbert space.
func (c *Circuit) Dim() int {
	return c.dim
}

// ChargeBasisSimulator assembles gate Hamiltonians in the charge basis and
// diagonalizes them with gonum's symmetric eigendecomposition.
//
// Single-loop gates use the standard Cooper-pair-box form
//
//	H = sum_q 4*Ec*(q-ng)^2 |q><q|  -  (EjEff/2) * (|q><q+1| + h.c.)
//
// with the flux bias entering through the effective Josephson energy
// EjEff = Ej*|cos(pi*flux)| of the split junction. The ANB gate is the
// tensor product of two such modes plus a J*q1*q2 charge coupling. The RQL
// loop's shunt inductor is treated coarsely as an El/2*q^2 diagonal term;
// good enough for spectrum shapes, not for exact fluxonium physics.
type ChargeBasisSimulator struct {
	cutoff int // charge states run -cutoff..+cutoff per mode
	log    zerolog.Logger
}

// NewChargeBasisSimulator creates a simulator with the given charge cutoff.
func NewChargeBasisSimulator(cutoff int, log zerolog.Logger) (*ChargeBasisSimulator, error) {
	if cutoff < 1 {
		return nil, fmt.Errorf("charge cutoff must be at least 1, got %d: %w", cutoff, circuit.ErrInvalidParameter)
	}
	return &ChargeBasisSimulator{
		cutoff: cutoff,
		log:    log.With().Str("component", "charge_basis_simulator").Logger(),
	}, nil
}

// effectiveEj is the flux-tuned Josephson energy of a split junction.
func effectiveEj(ej, flux float64) float64 {
	return ej * math.Abs(math.Cos(math.Pi*flux))
}

// BuildCircuit assembles the Hamiltonian for the spec's topology.
func (s *ChargeBasisSimulator) BuildCircuit(spec circuit.Spec) (*Circuit, error) {
	if circuit.UnusuallyHighEnergy(spec.Ej) || circuit.UnusuallyHighEnergy(spec.Ec) {
		s.log.Warn().Str("spec", spec.String()).Msg("Energy values unusually high for a GHz-scale junction")
	}

	switch spec.Topology {
	case circuit.TopologyInverter, circuit.TopologyLoop:
		return s.buildSingleMode(spec)
	case circuit.TopologyANB:
		return s.buildTwoMode(spec)
	default:
		return nil, fmt.Errorf("topology %q: %w", spec.Topology, ErrCircuitConstruction)
	}
}

// buildSingleMode assembles a single-loop Hamiltonian of dimension 2*cutoff+1.
func (s *ChargeBasisSimulator) buildSingleMode(spec circuit.Spec) (*Circuit, error) {
	dim := 2*s.cutoff + 1
	h := mat.NewSymDense(dim, nil)

	ejEff := effectiveEj(spec.Ej, spec.Flux)
	for i := 0; i < dim; i++ {
		q := float64(i - s.cutoff)
		diag := 4 * spec.Ec * (q - spec.ChargeOffset) * (q - spec.ChargeOffset)
		if spec.Topology == circuit.TopologyLoop {
			diag += 0.5 * spec.El * q * q
		}
		h.SetSym(i, i, diag)
		if i+1 < dim {
			h.SetSym(i, i+1, -ejEff/2)
		}
	}

	s.log.Debug().Str("spec", spec.String()).Int("dim", dim).Msg("Circuit assembled")

	return &Circuit{Spec: spec, dim: dim, h: h}, nil
}

// buildTwoMode assembles the ANB gate Hamiltonian on the product basis of
// two charge modes.
func (s *ChargeBasisSimulator) buildTwoMode(spec circuit.Spec) (*Circuit, error) {
	modeDim := 2*s.cutoff + 1
	dim := modeDim * modeDim
	h := mat.NewSymDense(dim, nil)

	ej1 := effectiveEj(spec.Ej, spec.Flux)
	ej2 := effectiveEj(spec.Ej2, spec.Flux2)

	for a := 0; a < modeDim; a++ {
		q1 := float64(a - s.cutoff)
		for b := 0; b < modeDim; b++ {
			q2 := float64(b - s.cutoff)
			i := a*modeDim + b

			// Charging terms of both modes plus the charge-charge coupling
			// of the junction joining the loops.
			h.SetSym(i, i, 4*spec.Ec*q1*q1+4*spec.Ec*q2*q2+spec.J*q1*q2)

			// Tunneling of mode 1: (a, b) <-> (a+1, b)
			if a+1 < modeDim {
				h.SetSym(i, (a+1)*modeDim+b, -ej1/2)
			}
			// Tunneling of mode 2: (a, b) <-> (a, b+1)
			if b+1 < modeDim {
				h.SetSym(i, a*modeDim+b+1, -ej2/2)
			}
		}
	}

	s.log.Debug().Str("spec", spec.String()).Int("dim", dim).Msg("Circuit assembled")

	return &Circuit{Spec: spec, dim: dim, h: h}, nil
}

// Diagonalize computes the lowest nLevels eigenvalues of the circuit's
// Hamiltonian, ascending, in GHz.
func (s *ChargeBasisSimulator) Diagonalize(c *Circuit, nLevels int) ([]float64, error) {
	if c == nil || c.h == nil {
		return nil, fmt.Errorf("circuit is not assembled: %w", ErrDiagonalization)
	}
	if nLevels < 1 {
		return nil, fmt.Errorf("n_levels must be at least 1, got %d: %w", nLevels, circuit.ErrInvalidParameter)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(c.h, false); !ok {
		return nil, fmt.Errorf("eigendecomposition did not converge for %s: %w", c.Spec, ErrDiagonalization)
	}

	values := eig.Values(nil) // ascending
	if nLevels < len(values) {
		values = values[:nLevels]
	}

	out := make([]float64, len(values))
	copy(out, values)
	return out, nil
}
