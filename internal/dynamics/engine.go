package dynamics

import (
	"math"

	"github.com/bqplab/memrelax/internal/bqp"
	"gonum.org/v1/gonum/mat"
)

// Trajectory records one relaxation run: the final weights, the energy
// after every step, and how the run stopped.
type Trajectory struct {
	// Weights is the final state, recorded after projection.
	Weights []float64
	// Energies holds the post-projection energy of every step taken.
	Energies []float64
	// Steps is the number of steps actually taken.
	Steps int
	// Converged is true when the run stopped on the update tolerance
	// rather than on the step budget.
	Converged bool
}

// Engine integrates the relaxation dynamics for one model. It owns scratch
// buffers for the step system, so an Engine must not be shared between
// goroutines; create one per worker.
type Engine struct {
	model  *bqp.Model
	params Params
	solver LinearSolver

	// xi scales the state-dependent coupling in the step system.
	xi float64
	// drive is the constant right-hand side of every step system.
	drive *mat.VecDense

	m *mat.Dense
	x *mat.VecDense
}

// NewEngine validates params and precomputes the step system constants.
// A nil solver selects the LU backend.
func NewEngine(model *bqp.Model, params Params, solver LinearSolver) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if solver == nil {
		solver = &LUSolver{}
	}

	n := model.N
	xi := params.P / (2 * params.Alpha)

	drive := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v := params.Alpha/2 + (params.P/2+params.Alpha*xi/3)*model.Q.At(i, i) - model.H.AtVec(i)
		drive.SetVec(i, params.Beta*v)
	}

	return &Engine{
		model:  model,
		params: params,
		solver: solver,
		xi:     xi,
		drive:  drive,
		m:      mat.NewDense(n, n, nil),
		x:      mat.NewVecDense(n, nil),
	}, nil
}

// Run integrates the dynamics from the given start weights. Each step
// assembles M = I + xi*Q*diag(w), solves M*x = drive, applies the update
// dt*(alpha*w - x/beta), and projects the result back onto the box. The
// run stops after TotalTime steps or once consecutive updates agree to
// within Tolerance.
//
// A solver failure is reported as a SingularError carrying the step index.
func (e *Engine) Run(start []float64) (*Trajectory, error) {
	n := e.model.N
	if len(start) != n {
		return nil, &bqp.DimensionError{Want: n, Got: len(start)}
	}

	w := make([]float64, n)
	copy(w, start)

	update := make([]float64, n)
	prev := make([]float64, n)

	traj := &Trajectory{
		Weights:  w,
		Energies: make([]float64, 0, e.params.TotalTime),
	}

	for t := 0; t < e.params.TotalTime; t++ {
		e.assemble(w)
		if err := e.solver.Solve(e.x, e.m, e.drive); err != nil {
			return nil, &SingularError{Step: t, Err: err}
		}

		for i := 0; i < n; i++ {
			update[i] = e.params.DT * (e.params.Alpha*w[i] - e.x.AtVec(i)/e.params.Beta)
			w[i] = project(w[i]+update[i], e.params.FloorThreshold)
		}

		energy, err := e.model.Energy(e.params.P, w)
		if err != nil {
			return nil, err
		}
		traj.Energies = append(traj.Energies, energy)
		traj.Steps = t + 1

		if e.params.Tolerance > 0 && t > 0 && normDiff(update, prev) <= e.params.Tolerance {
			traj.Converged = true
			break
		}
		copy(prev, update)
	}

	return traj, nil
}

// assemble writes I + xi*Q*diag(w) into the scratch matrix. Multiplying by
// diag(w) scales column j of Q by w[j].
func (e *Engine) assemble(w []float64) {
	n := e.model.N
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			v := e.xi * e.model.Q.At(i, j) * w[j]
			if i == j {
				v++
			}
			e.m.Set(i, j, v)
		}
	}
}

// project clamps v to the box top and zeroes it below the floor threshold.
// With the threshold at 0 this is the ordinary box projection.
func project(v, floor float64) float64 {
	if v > 1 {
		return 1
	}
	if v < floor {
		return 0
	}
	return v
}

func normDiff(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
