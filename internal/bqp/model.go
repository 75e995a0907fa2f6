package bqp

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Model is the dense matrix form of a boolean problem used by the
// relaxation dynamics. The linear terms are negated into the field vector H
// and each quadratic coefficient is split across the symmetric pair in Q,
// so that Energy at p=2 agrees exactly with the sparse Evaluate.
type Model struct {
	// N is the number of variables.
	N int
	// IDs maps dense index to variable id, in declaration order.
	IDs []int
	// Index maps variable id back to dense index.
	Index map[int]int

	// H holds the negated linear coefficients.
	H *mat.VecDense
	// Q holds half of each quadratic coefficient at both (i,j) and (j,i).
	Q *mat.SymDense

	Scale  float64
	Offset float64
}

// NewModel builds the dense form of p. The problem must be in the boolean
// domain.
func NewModel(p *Problem) (*Model, error) {
	if err := p.RequireBoolean(); err != nil {
		return nil, err
	}

	n := len(p.VariableIDs)
	m := &Model{
		N:      n,
		IDs:    make([]int, n),
		Index:  make(map[int]int, n),
		H:      mat.NewVecDense(n, nil),
		Q:      mat.NewSymDense(n, nil),
		Scale:  p.Scale,
		Offset: p.Offset,
	}
	copy(m.IDs, p.VariableIDs)
	for i, id := range m.IDs {
		m.Index[id] = i
	}

	for _, lt := range p.LinearTerms {
		m.H.SetVec(m.Index[lt.ID], -lt.Coeff)
	}
	for _, qt := range p.QuadraticTerms {
		i, j := m.Index[qt.IDTail], m.Index[qt.IDHead]
		m.Q.SetSym(i, j, qt.Coeff/2)
	}

	return m, nil
}

// Energy computes -H·w + (p/2)*wᵀQw for a dense weight vector. p is the
// interaction strength of the dynamics; at p=2 the value equals the sparse
// Evaluate of the same weights.
func (m *Model) Energy(p float64, w []float64) (float64, error) {
	if len(w) != m.N {
		return 0, &DimensionError{Want: m.N, Got: len(w)}
	}

	wv := mat.NewVecDense(m.N, w)
	qw := mat.NewVecDense(m.N, nil)
	qw.MulVec(m.Q, wv)

	return -mat.Dot(m.H, wv) + 0.5*p*mat.Dot(wv, qw), nil
}

// Assignment converts a dense weight vector back into a sparse assignment
// keyed by variable id.
func (m *Model) Assignment(w []float64) (map[int]float64, error) {
	if len(w) != m.N {
		return nil, &DimensionError{Want: m.N, Got: len(w)}
	}
	assignment := make(map[int]float64, m.N)
	for i, id := range m.IDs {
		assignment[id] = w[i]
	}
	return assignment, nil
}

func (m *Model) String() string {
	return fmt.Sprintf("model with %d variables", m.N)
}
