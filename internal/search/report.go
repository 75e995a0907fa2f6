package search

import (
	"fmt"

	"github.com/bqplab/memrelax/internal/bqp"
)

// Report is the solver summary in the conventional BQP_DATA shape. Scaled
// values apply the problem's scale and offset; the raw values are the term
// sums the solver works with. Cuts is always zero for a heuristic solver
// and is kept for line compatibility.
type Report struct {
	Nodes            int     `json:"nodes"`
	Edges            int     `json:"edges"`
	ScaledObjective  float64 `json:"scaled_objective"`
	ScaledLowerBound float64 `json:"scaled_lower_bound"`
	BestObjective    float64 `json:"best_objective"`
	LowerBound       float64 `json:"lower_bound"`
	RuntimeSeconds   float64 `json:"runtime_seconds"`
	Cuts             int     `json:"cuts"`
	Restarts         int64   `json:"restarts"`
}

// NewReport summarizes a solve of p.
func NewReport(p *bqp.Problem, res *Result) *Report {
	lower := p.LowerBound()
	return &Report{
		Nodes:            len(p.VariableIDs),
		Edges:            len(p.QuadraticTerms),
		ScaledObjective:  p.Scale * (res.BestEnergy + p.Offset),
		ScaledLowerBound: p.Scale * (lower + p.Offset),
		BestObjective:    res.BestEnergy,
		LowerBound:       lower,
		RuntimeSeconds:   res.Runtime.Seconds(),
		Restarts:         res.Restarts,
	}
}

// Line formats the report as the standard comma-separated summary line.
func (r *Report) Line() string {
	return fmt.Sprintf("BQP_DATA, %d, %d, %f, %f, %f, %f, %f, %d, %d",
		r.Nodes, r.Edges,
		r.ScaledObjective, r.ScaledLowerBound,
		r.BestObjective, r.LowerBound,
		r.RuntimeSeconds, r.Cuts, r.Restarts)
}
