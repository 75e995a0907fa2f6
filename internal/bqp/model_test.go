package bqp

import (
	"errors"
	"math"
	"testing"
)

func TestNewModel(t *testing.T) {
	p := pairProblem()
	m, err := NewModel(p)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	if m.N != 2 {
		t.Fatalf("N = %d, want 2", m.N)
	}
	if m.H.AtVec(0) != 1.0 || m.H.AtVec(1) != 0.0 {
		t.Errorf("H = [%g, %g], want [1, 0]", m.H.AtVec(0), m.H.AtVec(1))
	}
	if m.Q.At(0, 1) != 1.0 || m.Q.At(1, 0) != 1.0 {
		t.Errorf("Q off-diagonal = %g/%g, want 1/1", m.Q.At(0, 1), m.Q.At(1, 0))
	}
	if m.Q.At(0, 0) != 0.0 || m.Q.At(1, 1) != 0.0 {
		t.Errorf("Q diagonal = %g/%g, want 0/0", m.Q.At(0, 0), m.Q.At(1, 1))
	}
}

func TestNewModelRejectsSpin(t *testing.T) {
	p := pairProblem()
	p.VariableDomain = DomainSpin
	if _, err := NewModel(p); !errors.Is(err, &SchemaError{}) {
		t.Errorf("NewModel() on spin problem = %v, want SchemaError", err)
	}
}

// The dense energy at interaction strength 2 must agree exactly with the
// sparse term-list evaluation, on corners and in the interior of the box.
func TestEnergyMatchesEvaluate(t *testing.T) {
	p := pairProblem()
	m, err := NewModel(p)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	weights := [][]float64{
		{0, 0},
		{1, 0},
		{0, 1},
		{1, 1},
		{0.5, 0.25},
		{0.9, 0.1},
	}

	for _, w := range weights {
		dense, err := m.Energy(2.0, w)
		if err != nil {
			t.Fatalf("Energy(%v) error = %v", w, err)
		}
		sparse := p.Evaluate(map[int]float64{0: w[0], 1: w[1]})
		if math.Abs(dense-sparse) > 1e-12 {
			t.Errorf("Energy(2, %v) = %g, Evaluate = %g", w, dense, sparse)
		}
	}
}

func TestEnergyInteractionStrength(t *testing.T) {
	p := pairProblem()
	m, err := NewModel(p)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	// At w = (1,1) the linear part contributes -1 and the full quadratic
	// coefficient is 2, so the energy is -1 + p.
	for _, strength := range []float64{0.5, 1.0, 2.0, 4.0} {
		got, err := m.Energy(strength, []float64{1, 1})
		if err != nil {
			t.Fatalf("Energy() error = %v", err)
		}
		want := -1 + strength
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("Energy(%g, [1 1]) = %g, want %g", strength, got, want)
		}
	}
}

func TestEnergyDimensionMismatch(t *testing.T) {
	m, err := NewModel(pairProblem())
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	if _, err := m.Energy(2.0, []float64{1}); !errors.Is(err, &DimensionError{}) {
		t.Errorf("Energy() with short vector = %v, want DimensionError", err)
	}
	if _, err := m.Assignment([]float64{1, 2, 3}); !errors.Is(err, &DimensionError{}) {
		t.Errorf("Assignment() with long vector = %v, want DimensionError", err)
	}
}

func TestAssignment(t *testing.T) {
	p := &Problem{
		VariableDomain: DomainBoolean,
		VariableIDs:    []int{10, 4, 7},
		Scale:          1.0,
	}
	m, err := NewModel(p)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}

	assignment, err := m.Assignment([]float64{0.1, 0.2, 0.3})
	if err != nil {
		t.Fatalf("Assignment() error = %v", err)
	}
	want := map[int]float64{10: 0.1, 4: 0.2, 7: 0.3}
	for id, v := range want {
		if assignment[id] != v {
			t.Errorf("assignment[%d] = %g, want %g", id, assignment[id], v)
		}
	}
}
