package dynamics

import "gonum.org/v1/gonum/mat"

// LinearSolver solves the per-step system a*x = b, writing x into dst.
// Implementations must leave a and b untouched and must be safe for
// concurrent use, since one solver is shared across restart workers.
type LinearSolver interface {
	Solve(dst *mat.VecDense, a *mat.Dense, b *mat.VecDense) error
}
