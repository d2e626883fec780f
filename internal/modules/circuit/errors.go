package circuit

import "errors"

// ErrInvalidParameter marks physical parameters rejected before any circuit
// is assembled: flux outside [0, 1], non-positive energies, bad level counts.
// Callers distinguish it with errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")
