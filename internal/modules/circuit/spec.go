package circuit

import "fmt"

// Topology identifies one of the supported RQL gate circuits.
type Topology string

const (
	// TopologyInverter is a single superconducting loop with one Josephson
	// junction, a shunt capacitor and an optional gate-charge offset.
	TopologyInverter Topology = "inverter"
	// TopologyANB is the A-NOT-B gate: two flux loops with their own
	// junctions, joined by a coupling junction.
	TopologyANB Topology = "anb"
	// TopologyLoop is a general-purpose RQL loop: junction, capacitor and
	// a shunt inductor with inductive energy El.
	TopologyLoop Topology = "loop"
)

// ParseTopology converts a user-supplied gate name into a Topology.
func ParseTopology(s string) (Topology, error) {
	switch Topology(s) {
	case TopologyInverter, TopologyANB, TopologyLoop:
		return Topology(s), nil
	}
	return "", fmt.Errorf("unknown gate topology %q (want inverter, anb or loop): %w", s, ErrInvalidParameter)
}

// Spec is a validated, immutable description of a gate circuit. It carries
// everything the simulation layer needs to assemble a Hamiltonian; it holds
// no numerics itself.
type Spec struct {
	Topology Topology

	Ej  float64 // Josephson energy of the (first) junction, GHz
	Ej2 float64 // Second junction, ANB only
	Ec  float64 // Charging energy, GHz
	El  float64 // Inductive energy, loop only
	J   float64 // Inter-loop coupling, ANB only

	Flux  float64 // Flux bias of the (first) loop
	Flux2 float64 // Second loop, ANB only

	ChargeOffset float64 // Gate charge ng, inverter only
}

// NewInverter builds the Spec for a basic RQL inverter gate.
// ng is the gate-charge offset; 0 is the symmetric operating point.
func NewInverter(p GateParameters, ng float64) (Spec, error) {
	if err := p.Validate(); err != nil {
		return Spec{}, fmt.Errorf("inverter: %w", err)
	}
	return Spec{
		Topology:     TopologyInverter,
		Ej:           p.Ej,
		Ec:           p.Ec,
		Flux:         p.Flux,
		ChargeOffset: ng,
	}, nil
}

// NewANBGate builds the Spec for the two-loop A-NOT-B gate.
func NewANBGate(p ANBParameters) (Spec, error) {
	if err := p.Validate(); err != nil {
		return Spec{}, fmt.Errorf("anb gate: %w", err)
	}
	return Spec{
		Topology: TopologyANB,
		Ej:       p.Ej1,
		Ej2:      p.Ej2,
		Ec:       p.Ec,
		J:        p.Coupling,
		Flux:     p.Flux1,
		Flux2:    p.Flux2,
	}, nil
}

// NewLoop builds the Spec for a general RQL loop with inductive energy El.
func NewLoop(p GateParameters, el float64) (Spec, error) {
	if err := p.Validate(); err != nil {
		return Spec{}, fmt.Errorf("rql loop: %w", err)
	}
	if err := ValidateEnergy("El", el); err != nil {
		return Spec{}, fmt.Errorf("rql loop: %w", err)
	}
	return Spec{
		Topology: TopologyLoop,
		Ej:       p.Ej,
		Ec:       p.Ec,
		El:       el,
		Flux:     p.Flux,
	}, nil
}

// Modes returns the number of circuit modes the topology carries.
func (s Spec) Modes() int {
	if s.Topology == TopologyANB {
		return 2
	}
	return 1
}

// WithFlux returns a copy of the spec with the primary flux bias replaced.
// Used by the sweep engine; the replacement value is validated so a sweep
// can never push a circuit out of domain.
func (s Spec) WithFlux(flux float64) (Spec, error) {
	if err := ValidateFlux(flux); err != nil {
		return Spec{}, err
	}
	out := s
	out.Flux = flux
	return out, nil
}

// String renders the spec for logs and error context.
func (s Spec) String() string {
	switch s.Topology {
	case TopologyANB:
		return fmt.Sprintf("anb{Ej1=%g Ej2=%g Ec=%g J=%g flux1=%g flux2=%g}",
			s.Ej, s.Ej2, s.Ec, s.J, s.Flux, s.Flux2)
	case TopologyLoop:
		return fmt.Sprintf("loop{Ej=%g Ec=%g El=%g flux=%g}", s.Ej, s.Ec, s.El, s.Flux)
	default:
		return fmt.Sprintf("inverter{Ej=%g Ec=%g flux=%g ng=%g}", s.Ej, s.Ec, s.Flux, s.ChargeOffset)
	}
}
