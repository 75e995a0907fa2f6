package dynamics

import (
	"errors"
	"fmt"
	"strings"
)

// Backend names a linear solver implementation.
type Backend string

const (
	// BackendLU is the dense LU factorization solver.
	BackendLU Backend = "lu"
	// BackendJacobi is the iterative Jacobi solver.
	BackendJacobi Backend = "jacobi"
)

// ErrUnknownBackend is returned when a backend name is not recognized.
var ErrUnknownBackend = errors.New("unknown solver backend")

// NormalizeBackend maps a user-facing backend name, including aliases, to
// its canonical form. The empty string selects the LU backend.
func NormalizeBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lu", "dense", "direct":
		return BackendLU, nil
	case "jacobi", "iterative":
		return BackendJacobi, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// SupportedBackends lists the canonical backend names.
func SupportedBackends() []Backend {
	return []Backend{BackendLU, BackendJacobi}
}

// NewSolverForBackend constructs the solver selected by name.
func NewSolverForBackend(name string) (LinearSolver, error) {
	backend, err := NormalizeBackend(name)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendJacobi:
		return NewJacobiSolver(), nil
	default:
		return &LUSolver{}, nil
	}
}
