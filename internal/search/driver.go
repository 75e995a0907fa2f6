package search

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bqplab/memrelax/internal/bqp"
	"github.com/bqplab/memrelax/internal/dynamics"
)

// Options configure a solve.
type Options struct {
	// RuntimeLimit is the wall-clock budget. It is polled once per
	// restart, so the final restart may overrun it.
	RuntimeLimit time.Duration
	// MaxSteps overrides the integration step budget per restart when
	// positive.
	MaxSteps int
	// Seed seeds the restart streams; worker i draws from Seed+i. A
	// negative seed selects the clock.
	Seed int64
	// Workers is the number of concurrent restart workers. Values below
	// one mean one.
	Workers int
	// Params are the dynamics coefficients. The zero value selects the
	// defaults.
	Params dynamics.Params
	// Solver names the linear solver backend. Empty selects LU.
	Solver string
	// WarmStart seeds the incumbent with a known assignment before any
	// restart runs.
	WarmStart map[int]float64
	// OnRestart, when set, observes every restart outcome. Calls are
	// serialized.
	OnRestart func(RestartOutcome)
}

// RestartOutcome describes one finished restart.
type RestartOutcome struct {
	Restart   int64
	Energy    float64
	Steps     int
	Converged bool
	Improved  bool
	Err       error
}

// Result summarizes a completed solve.
type Result struct {
	BestEnergy     float64
	BestAssignment map[int]float64
	Restarts       int64
	Failures       int64
	Runtime        time.Duration
}

// Driver repeatedly runs the relaxation dynamics from random starts until
// the wall-clock budget is spent, keeping the best assignment found. The
// incumbent starts at the all-zero assignment, so with a zero budget the
// solve degenerates to evaluating that baseline.
type Driver struct {
	problem *bqp.Problem
	model   *bqp.Model
	opts    Options
	params  dynamics.Params
	solver  dynamics.LinearSolver
	reducer *Reducer

	restarts atomic.Int64
	failures atomic.Int64

	cbMu sync.Mutex
}

// NewDriver validates the problem and options and prepares a solve. The
// problem must be in the boolean domain.
func NewDriver(problem *bqp.Problem, opts Options) (*Driver, error) {
	if err := problem.RequireBoolean(); err != nil {
		return nil, err
	}
	model, err := bqp.NewModel(problem)
	if err != nil {
		return nil, err
	}

	params := opts.Params
	if params == (dynamics.Params{}) {
		params = dynamics.DefaultParams()
	}
	if opts.MaxSteps > 0 {
		params.TotalTime = opts.MaxSteps
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	solver, err := dynamics.NewSolverForBackend(opts.Solver)
	if err != nil {
		return nil, err
	}

	baseline := problem.UniformAssignment(0)
	reducer := NewReducer(baseline, problem.Evaluate(baseline))
	if opts.WarmStart != nil {
		reducer.Offer(opts.WarmStart, problem.Evaluate(opts.WarmStart))
	}

	return &Driver{
		problem: problem,
		model:   model,
		opts:    opts,
		params:  params,
		solver:  solver,
		reducer: reducer,
	}, nil
}

// Solve runs restarts until the budget is spent and returns the best
// result. Cancelling ctx stops the workers early; the partial result is
// still returned without error, so callers decide how to treat the
// truncation. Singular restarts are counted and skipped; any other engine
// failure aborts the solve.
func (d *Driver) Solve(ctx context.Context) (*Result, error) {
	start := time.Now()
	deadline := start.Add(d.opts.RuntimeLimit)

	seed := d.opts.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	workers := d.opts.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		g.Go(func() error {
			return d.worker(ctx, rng, deadline)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	assignment, energy := d.reducer.Best()
	return &Result{
		BestEnergy:     energy,
		BestAssignment: assignment,
		Restarts:       d.restarts.Load(),
		Failures:       d.failures.Load(),
		Runtime:        time.Since(start),
	}, nil
}

func (d *Driver) worker(ctx context.Context, rng *rand.Rand, deadline time.Time) error {
	engine, err := dynamics.NewEngine(d.model, d.params, d.solver)
	if err != nil {
		return err
	}

	start := make([]float64, d.model.N)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		for i := range start {
			start[i] = rng.Float64()
		}
		restart := d.restarts.Add(1)

		traj, err := engine.Run(start)
		if err != nil {
			if errors.Is(err, &dynamics.SingularError{}) {
				d.failures.Add(1)
				slog.Warn("Skipping restart after singular system", "restart", restart, "error", err)
				d.emit(RestartOutcome{Restart: restart, Err: err})
				continue
			}
			return err
		}

		assignment, err := d.model.Assignment(traj.Weights)
		if err != nil {
			return err
		}
		energy := d.problem.Evaluate(assignment)
		improved := d.reducer.Offer(assignment, energy)
		if improved {
			slog.Debug("Restart improved incumbent", "restart", restart, "energy", energy)
		}

		d.emit(RestartOutcome{
			Restart:   restart,
			Energy:    energy,
			Steps:     traj.Steps,
			Converged: traj.Converged,
			Improved:  improved,
		})
	}
	return nil
}

func (d *Driver) emit(outcome RestartOutcome) {
	if d.opts.OnRestart == nil {
		return
	}
	d.cbMu.Lock()
	defer d.cbMu.Unlock()
	d.opts.OnRestart(outcome)
}

// Best returns the current incumbent. Safe to call while a solve runs.
func (d *Driver) Best() (map[int]float64, float64) {
	return d.reducer.Best()
}

// Restarts returns the number of restarts begun so far.
func (d *Driver) Restarts() int64 {
	return d.restarts.Load()
}

// Failures returns the number of restarts skipped on singular systems.
func (d *Driver) Failures() int64 {
	return d.failures.Load()
}
