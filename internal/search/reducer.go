// Package search runs the multi-restart wall-clock driver on top of the
// relaxation dynamics and reduces restart results to a single best
// assignment.
package search

import "sync"

// Reducer tracks the best assignment seen so far. It is safe for
// concurrent use by restart workers.
type Reducer struct {
	mu         sync.Mutex
	energy     float64
	assignment map[int]float64
}

// NewReducer seeds the incumbent with a baseline assignment and its energy.
func NewReducer(assignment map[int]float64, energy float64) *Reducer {
	r := &Reducer{energy: energy}
	r.assignment = copyAssignment(assignment)
	return r
}

// Offer installs the candidate only when its energy strictly improves on
// the incumbent, and reports whether it did. Ties keep the incumbent.
func (r *Reducer) Offer(assignment map[int]float64, energy float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if energy >= r.energy {
		return false
	}
	r.energy = energy
	r.assignment = copyAssignment(assignment)
	return true
}

// Best returns a copy of the incumbent assignment and its energy.
func (r *Reducer) Best() (map[int]float64, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyAssignment(r.assignment), r.energy
}

func copyAssignment(assignment map[int]float64) map[int]float64 {
	out := make(map[int]float64, len(assignment))
	for id, v := range assignment {
		out[id] = v
	}
	return out
}
