// Package dynamics implements the memristive relaxation engine: a damped
// continuous-time descent on the box [0,1]^n driven by a linear system
// solve per step.
package dynamics

// Defaults for the optional stopping and projection controls.
const (
	// DefaultTolerance is the convergence threshold on the L2 distance
	// between consecutive update vectors. Zero disables the check.
	DefaultTolerance = 1e-6

	// DefaultFloorThreshold reproduces the reference projection, which
	// zeroes every component strictly below 1 instead of below 0. The
	// effect is that weights snap to {0,1} after each step. Set the
	// threshold to 0 for the plain box projection.
	DefaultFloorThreshold = 1.0
)

// Params holds the coefficients of the relaxation dynamics.
type Params struct {
	// Alpha is the decay rate of the internal state.
	Alpha float64
	// Beta is the drive gain.
	Beta float64
	// DT is the integration step size.
	DT float64
	// P is the interaction strength applied to the coupling matrix.
	P float64
	// TotalTime is the number of integration steps per run.
	TotalTime int
	// Tolerance stops a run early once consecutive updates differ by no
	// more than this in L2 norm. Zero disables early stopping.
	Tolerance float64
	// FloorThreshold is the lower projection cutoff; components below it
	// are set to zero after each step.
	FloorThreshold float64
}

// DefaultParams returns the reference configuration of the dynamics.
func DefaultParams() Params {
	return Params{
		Alpha:          1.0,
		Beta:           1.0,
		DT:             0.05,
		P:              2.0,
		TotalTime:      100,
		Tolerance:      DefaultTolerance,
		FloorThreshold: DefaultFloorThreshold,
	}
}

// Validate checks that the coefficients admit a well-defined run.
func (p Params) Validate() error {
	if p.TotalTime < 1 {
		return &ParamError{Name: "total_time", Value: float64(p.TotalTime), Reason: "must be at least 1"}
	}
	if p.Alpha <= 0 {
		return &ParamError{Name: "alpha", Value: p.Alpha, Reason: "must be positive"}
	}
	if p.Beta <= 0 {
		return &ParamError{Name: "beta", Value: p.Beta, Reason: "must be positive"}
	}
	if p.DT <= 0 {
		return &ParamError{Name: "dt", Value: p.DT, Reason: "must be positive"}
	}
	return nil
}
