package bqp

import "math"

// Evaluate computes the raw objective of an assignment by walking the
// sparse term lists: sum of c_i*w_i over linear terms plus c_ij*w_i*w_j
// over quadratic terms. Variables missing from the assignment contribute
// zero. Scale and Offset are not applied here.
func (p *Problem) Evaluate(assignment map[int]float64) float64 {
	var energy float64
	for _, lt := range p.LinearTerms {
		energy += lt.Coeff * assignment[lt.ID]
	}
	for _, qt := range p.QuadraticTerms {
		energy += qt.Coeff * assignment[qt.IDTail] * assignment[qt.IDHead]
	}
	return energy
}

// LowerBound returns a cheap bound on the raw objective: the negated sum of
// absolute coefficient magnitudes, divided by Scale. No assignment can score
// below it, though it is rarely attained.
func (p *Problem) LowerBound() float64 {
	var total float64
	for _, lt := range p.LinearTerms {
		total += math.Abs(lt.Coeff)
	}
	for _, qt := range p.QuadraticTerms {
		total += math.Abs(qt.Coeff)
	}
	return -total / p.Scale
}
