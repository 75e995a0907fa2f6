package dynamics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiSolver solves the step system by Jacobi iteration. It avoids the
// cubic factorization cost of the LU backend but only converges when the
// system is close to diagonally dominant, which holds for small coupling
// strengths.
type JacobiSolver struct {
	// MaxSweeps bounds the number of iterations.
	MaxSweeps int
	// Tol is the L2 threshold on consecutive iterates.
	Tol float64
}

// NewJacobiSolver returns a solver with the default sweep budget.
func NewJacobiSolver() *JacobiSolver {
	return &JacobiSolver{MaxSweeps: 200, Tol: 1e-10}
}

func (s *JacobiSolver) Solve(dst *mat.VecDense, a *mat.Dense, b *mat.VecDense) error {
	n, _ := a.Dims()
	for i := 0; i < n; i++ {
		if a.At(i, i) == 0 {
			return fmt.Errorf("jacobi: zero diagonal at row %d", i)
		}
	}

	sweeps := s.MaxSweeps
	if sweeps <= 0 {
		sweeps = 200
	}
	tol := s.Tol
	if tol <= 0 {
		tol = 1e-10
	}

	x := make([]float64, n)
	next := make([]float64, n)

	for sweep := 0; sweep < sweeps; sweep++ {
		for i := 0; i < n; i++ {
			sum := b.AtVec(i)
			for j := 0; j < n; j++ {
				if j != i {
					sum -= a.At(i, j) * x[j]
				}
			}
			next[i] = sum / a.At(i, i)
		}

		var diff float64
		for i := range x {
			d := next[i] - x[i]
			diff += d * d
		}
		copy(x, next)

		if math.Sqrt(diff) <= tol {
			for i := range x {
				dst.SetVec(i, x[i])
			}
			return nil
		}
	}

	return fmt.Errorf("jacobi: no convergence after %d sweeps", sweeps)
}
