package simulation

import "errors"

// Error kinds surfaced by the simulation layer. All are wrapped with
// parameter values and point indices at the failure site so a caller can
// both classify (errors.Is) and reproduce.
var (
	// ErrCircuitConstruction marks a topology the Hamiltonian assembler
	// rejected (unknown gate, unusable truncation).
	ErrCircuitConstruction = errors.New("circuit construction failed")

	// ErrDiagonalization marks an eigendecomposition failure for an
	// otherwise well-formed circuit. Deterministic for fixed parameters,
	// so it is never retried.
	ErrDiagonalization = errors.New("diagonalization failed")

	// ErrInsufficientLevels marks a metric computation requested on a
	// spectrum with too few levels.
	ErrInsufficientLevels = errors.New("insufficient energy levels")

	// ErrSweepAborted marks a flux sweep that exceeded its failure
	// threshold. The partial result up to the aborting point is returned
	// alongside the error.
	ErrSweepAborted = errors.New("flux sweep aborted")
)
