package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bqplab/memrelax/internal/bqp"
	"github.com/bqplab/memrelax/internal/dynamics"
)

// pairProblem is -w0 + 2*w0*w1, with the optimum -1 at w = (1, 0).
func pairProblem() *bqp.Problem {
	return &bqp.Problem{
		VariableDomain: bqp.DomainBoolean,
		VariableIDs:    []int{0, 1},
		Scale:          1.0,
		LinearTerms:    []bqp.LinearTerm{{ID: 0, Coeff: -1.0}},
		QuadraticTerms: []bqp.QuadraticTerm{{IDTail: 0, IDHead: 1, Coeff: 2.0}},
	}
}

func TestDriverZeroBudget(t *testing.T) {
	driver, err := NewDriver(pairProblem(), Options{RuntimeLimit: 0, Seed: 1})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	res, err := driver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.Restarts != 0 {
		t.Errorf("Restarts = %d, want 0", res.Restarts)
	}
	if res.BestEnergy != 0 {
		t.Errorf("BestEnergy = %g, want 0", res.BestEnergy)
	}
	for id, v := range res.BestAssignment {
		if v != 0 {
			t.Errorf("BestAssignment[%d] = %g, want 0", id, v)
		}
	}
}

func TestDriverSolve(t *testing.T) {
	driver, err := NewDriver(pairProblem(), Options{
		RuntimeLimit: 250 * time.Millisecond,
		MaxSteps:     20,
		Seed:         3,
	})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	res, err := driver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.Restarts < 1 {
		t.Fatalf("Restarts = %d, want at least 1", res.Restarts)
	}
	if res.BestEnergy > 0 {
		t.Errorf("BestEnergy = %g, want at most 0", res.BestEnergy)
	}
	if len(res.BestAssignment) != 2 {
		t.Errorf("len(BestAssignment) = %d, want 2", len(res.BestAssignment))
	}
	if res.Runtime <= 0 {
		t.Errorf("Runtime = %v, want positive", res.Runtime)
	}
}

func TestDriverWarmStart(t *testing.T) {
	warm := map[int]float64{0: 1, 1: 0}
	driver, err := NewDriver(pairProblem(), Options{RuntimeLimit: 0, Seed: 1, WarmStart: warm})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	res, err := driver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.BestEnergy != -1 {
		t.Errorf("BestEnergy = %g, want -1", res.BestEnergy)
	}
	if res.BestAssignment[0] != 1 || res.BestAssignment[1] != 0 {
		t.Errorf("BestAssignment = %v, want warm start", res.BestAssignment)
	}
}

// A warm start that does not beat the all-zero baseline must not displace
// it: acceptance is strict improvement only.
func TestDriverWarmStartNotImproving(t *testing.T) {
	warm := map[int]float64{0: 0, 1: 1}
	driver, err := NewDriver(pairProblem(), Options{RuntimeLimit: 0, Seed: 1, WarmStart: warm})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	res, err := driver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.BestAssignment[1] != 0 {
		t.Errorf("BestAssignment = %v, want all-zero baseline", res.BestAssignment)
	}
}

// A strong coupling makes the step system far from diagonally dominant, so
// the Jacobi backend diverges on nearly every restart. The driver must
// count those failures and keep going rather than abort.
func TestDriverSkipsSingularRestarts(t *testing.T) {
	params := dynamics.DefaultParams()
	params.P = 40

	driver, err := NewDriver(pairProblem(), Options{
		RuntimeLimit: 100 * time.Millisecond,
		MaxSteps:     5,
		Seed:         1,
		Solver:       "jacobi",
		Params:       params,
	})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	res, err := driver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.Failures < 1 {
		t.Errorf("Failures = %d, want at least 1", res.Failures)
	}
	if res.Restarts < res.Failures {
		t.Errorf("Restarts = %d below Failures = %d", res.Restarts, res.Failures)
	}
}

func TestDriverParallelWorkers(t *testing.T) {
	driver, err := NewDriver(pairProblem(), Options{
		RuntimeLimit: 100 * time.Millisecond,
		MaxSteps:     20,
		Seed:         7,
		Workers:      4,
	})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	res, err := driver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if res.Restarts < 1 {
		t.Errorf("Restarts = %d, want at least 1", res.Restarts)
	}
}

func TestDriverObserver(t *testing.T) {
	var outcomes []RestartOutcome
	driver, err := NewDriver(pairProblem(), Options{
		RuntimeLimit: 50 * time.Millisecond,
		MaxSteps:     10,
		Seed:         5,
		OnRestart: func(o RestartOutcome) {
			outcomes = append(outcomes, o)
		},
	})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	res, err := driver.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if int64(len(outcomes)) != res.Restarts {
		t.Errorf("observed %d outcomes, want %d", len(outcomes), res.Restarts)
	}
	for _, o := range outcomes {
		if o.Err == nil && o.Steps < 1 {
			t.Errorf("outcome %d has no steps", o.Restart)
		}
	}
}

func TestDriverContextCancel(t *testing.T) {
	driver, err := NewDriver(pairProblem(), Options{
		RuntimeLimit: time.Hour,
		MaxSteps:     10,
		Seed:         1,
	})
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	var res *Result
	var solveErr error
	go func() {
		res, solveErr = driver.Solve(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Solve() did not return after cancel")
	}
	if solveErr != nil {
		t.Fatalf("Solve() after cancel error = %v", solveErr)
	}
	if res == nil || res.BestAssignment == nil {
		t.Fatal("Solve() after cancel returned no result")
	}
}

func TestNewDriverRejectsSpin(t *testing.T) {
	p := pairProblem()
	p.VariableDomain = bqp.DomainSpin

	if _, err := NewDriver(p, Options{}); !errors.Is(err, &bqp.SchemaError{}) {
		t.Errorf("NewDriver() error = %v, want SchemaError", err)
	}
}

func TestNewDriverRejectsUnknownSolver(t *testing.T) {
	if _, err := NewDriver(pairProblem(), Options{Solver: "cholesky"}); !errors.Is(err, dynamics.ErrUnknownBackend) {
		t.Errorf("NewDriver() error = %v, want ErrUnknownBackend", err)
	}
}

func TestNewDriverRejectsBadParams(t *testing.T) {
	params := dynamics.DefaultParams()
	params.Alpha = -1

	if _, err := NewDriver(pairProblem(), Options{Params: params}); !errors.Is(err, &dynamics.ParamError{}) {
		t.Errorf("NewDriver() error = %v, want ParamError", err)
	}
}
