// Package circuit defines the physical parameter sets and topology
// descriptions for RQL (Reciprocal Quantum Logic) gates.
//
// The package owns parameter validation: every constructor validates flux
// and energy values before a topology description is produced, so the
// simulation layer never sees out-of-domain physics. Energies are in GHz,
// flux is in units of the flux quantum.
package circuit

import "fmt"

// Reasonable upper bound for junction energies. Values above it are
// accepted but flagged, matching lab hardware expectations.
const energyWarnThresholdGHz = 1000.0

// ValidateFlux checks that a flux bias is within [0, 1] flux quanta.
func ValidateFlux(flux float64) error {
	if flux < 0 || flux > 1 {
		return fmt.Errorf("flux must be between 0 and 1, got %g: %w", flux, ErrInvalidParameter)
	}
	return nil
}

// ValidateEnergy checks that an energy parameter is strictly positive.
// The name is included in the error so multi-junction gates report which
// energy was rejected.
func ValidateEnergy(name string, energy float64) error {
	if energy <= 0 {
		return fmt.Errorf("%s must be positive, got %g: %w", name, energy, ErrInvalidParameter)
	}
	return nil
}

// UnusuallyHighEnergy reports whether an energy value is suspiciously large
// for a GHz-scale junction. Not an error; callers log a warning.
func UnusuallyHighEnergy(energy float64) bool {
	return energy > energyWarnThresholdGHz
}

// GateParameters is the validated parameter set for single-loop gates.
// Immutable after construction: builders copy it into a Spec.
type GateParameters struct {
	Ej      float64 `json:"ej"`       // Josephson energy, GHz
	Ec      float64 `json:"ec"`       // Charging energy, GHz
	Flux    float64 `json:"flux"`     // External flux bias, flux quanta
	NLevels int     `json:"n_levels"` // Energy levels to compute
}

// Validate checks every field. All fields are validated before any circuit
// is built; the first violation is returned.
func (p GateParameters) Validate() error {
	if err := ValidateEnergy("Ej", p.Ej); err != nil {
		return err
	}
	if err := ValidateEnergy("Ec", p.Ec); err != nil {
		return err
	}
	if err := ValidateFlux(p.Flux); err != nil {
		return err
	}
	if p.NLevels < 1 {
		return fmt.Errorf("n_levels must be at least 1, got %d: %w", p.NLevels, ErrInvalidParameter)
	}
	return nil
}

// ANBParameters is the validated parameter set for the two-loop A-NOT-B gate.
type ANBParameters struct {
	Ej1      float64 `json:"ej1"`      // Josephson energy of the first junction, GHz
	Ej2      float64 `json:"ej2"`      // Josephson energy of the second junction, GHz
	Ec       float64 `json:"ec"`       // Charging energy (shared), GHz
	Coupling float64 `json:"coupling"` // Inter-loop coupling strength J, GHz
	Flux1    float64 `json:"flux1"`    // Flux bias of the first loop
	Flux2    float64 `json:"flux2"`    // Flux bias of the second loop
	NLevels  int     `json:"n_levels"`
}

// Validate checks every field of the two-loop parameter set.
func (p ANBParameters) Validate() error {
	if err := ValidateEnergy("Ej1", p.Ej1); err != nil {
		return err
	}
	if err := ValidateEnergy("Ej2", p.Ej2); err != nil {
		return err
	}
	if err := ValidateEnergy("Ec", p.Ec); err != nil {
		return err
	}
	if err := ValidateEnergy("J", p.Coupling); err != nil {
		return err
	}
	if err := ValidateFlux(p.Flux1); err != nil {
		return err
	}
	if err := ValidateFlux(p.Flux2); err != nil {
		return err
	}
	if p.NLevels < 1 {
		return fmt.Errorf("n_levels must be at least 1, got %d: %w", p.NLevels, ErrInvalidParameter)
	}
	return nil
}
