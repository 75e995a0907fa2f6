package store

import (
	"fmt"
	"time"
)

// JobConfig holds the configuration of a solve job. It is embedded in every
// checkpoint so a resumed job can be checked for compatibility.
type JobConfig struct {
	// ProblemPath is the bqpjson file the job solves.
	ProblemPath string `json:"problemPath"`
	// RuntimeLimit is the wall-clock budget in seconds.
	RuntimeLimit float64 `json:"runtimeLimit"`
	// MaxSteps is the integration step budget per restart (0 = default).
	MaxSteps int `json:"maxSteps"`
	// Seed seeds the restart streams.
	Seed int64 `json:"seed"`
	// Workers is the number of concurrent restart workers.
	Workers int `json:"workers,omitempty"`
	// Solver names the linear solver backend.
	Solver string `json:"solver,omitempty"`
	// CheckpointInterval saves a checkpoint every N seconds (0 = disabled).
	CheckpointInterval int `json:"checkpointInterval,omitempty"`
}

// Checkpoint is a saved solve state that can be resumed later.
//
// The checkpoint holds the best assignment found and the restart count, not
// the random streams or any in-flight restart. Resuming therefore starts
// fresh restarts with the saved assignment warm-starting the incumbent: the
// best energy can only improve across a resume, but the restart sequence
// after the interruption differs from an uninterrupted run. Saving the
// random state would buy exact reproducibility at the cost of tying the
// format to the driver internals, which is not worth it for a heuristic
// solver.
type Checkpoint struct {
	// JobID identifies the solve job.
	JobID string `json:"jobId"`

	// Assignment is the best assignment found so far, keyed by variable id.
	Assignment map[int]float64 `json:"assignment"`

	// BestEnergy is the raw objective achieved by Assignment.
	BestEnergy float64 `json:"bestEnergy"`

	// BaselineEnergy is the energy of the all-zero assignment the solve
	// started from, for improvement tracking.
	BaselineEnergy float64 `json:"baselineEnergy"`

	// Restarts is the number of restarts completed when the checkpoint
	// was taken.
	Restarts int64 `json:"restarts"`

	// Timestamp records when the checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config is the job configuration, checked on resume.
	Config JobConfig `json:"config"`
}

// CheckpointInfo is checkpoint metadata without the assignment, for listing
// without loading full files.
type CheckpointInfo struct {
	JobID       string    `json:"jobId"`
	BestEnergy  float64   `json:"bestEnergy"`
	Restarts    int64     `json:"restarts"`
	Timestamp   time.Time `json:"timestamp"`
	Variables   int       `json:"variables"`
	ProblemPath string    `json:"problemPath"`
}

// NewCheckpoint captures the current solve state under a fresh timestamp.
func NewCheckpoint(jobID string, assignment map[int]float64, bestEnergy, baselineEnergy float64, restarts int64, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:          jobID,
		Assignment:     assignment,
		BestEnergy:     bestEnergy,
		BaselineEnergy: baselineEnergy,
		Restarts:       restarts,
		Timestamp:      time.Now(),
		Config:         config,
	}
}

// ToInfo strips the checkpoint down to its listing metadata.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:       c.JobID,
		BestEnergy:  c.BestEnergy,
		Restarts:    c.Restarts,
		Timestamp:   c.Timestamp,
		Variables:   len(c.Assignment),
		ProblemPath: c.Config.ProblemPath,
	}
}

// Validate checks that the checkpoint carries a usable solve state. Weights
// must lie in the unit box; energies may be any sign.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(c.Assignment) == 0 {
		return &ValidationError{Field: "Assignment", Reason: "cannot be empty"}
	}
	for id, v := range c.Assignment {
		if v < 0 || v > 1 {
			return &ValidationError{
				Field:  "Assignment",
				Reason: fmt.Sprintf("weight %g for variable %d outside [0,1]", v, id),
			}
		}
	}
	if c.Restarts < 0 {
		return &ValidationError{Field: "Restarts", Reason: "cannot be negative"}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if c.Config.ProblemPath == "" {
		return &ValidationError{Field: "Config.ProblemPath", Reason: "cannot be empty"}
	}
	if c.Config.RuntimeLimit < 0 {
		return &ValidationError{Field: "Config.RuntimeLimit", Reason: "cannot be negative"}
	}
	if c.Config.MaxSteps < 0 {
		return &ValidationError{Field: "Config.MaxSteps", Reason: "cannot be negative"}
	}
	return nil
}

// ValidationError reports a checkpoint field with invalid data.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether the checkpoint can seed a job with the given
// config. The problem file and solver backend must match; budgets and seeds
// are free to change across a resume.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.ProblemPath != config.ProblemPath {
		return &CompatibilityError{
			Field:    "ProblemPath",
			Expected: c.Config.ProblemPath,
			Actual:   config.ProblemPath,
		}
	}
	if c.Config.Solver != config.Solver {
		return &CompatibilityError{
			Field:    "Solver",
			Expected: c.Config.Solver,
			Actual:   config.Solver,
		}
	}
	return nil
}

// CompatibilityError reports a config field that differs from the
// checkpointed one.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
