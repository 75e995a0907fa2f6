// Package store persists solve checkpoints, solution artifacts, and restart
// traces on the filesystem, one directory per job.
package store

// Store is the interface for checkpoint persistence. Implementations must
// be safe for concurrent use.
//
// Error conventions:
//   - nil on success
//   - ErrNotFound when a checkpoint does not exist (Load/Delete)
//   - wrapped errors with context for I/O and serialization failures
type Store interface {
	// SaveCheckpoint saves a checkpoint for the given job, overwriting any
	// existing one. Implementations should write atomically (temp file and
	// rename) so an interrupted save never corrupts the previous state.
	SaveCheckpoint(jobID string, checkpoint *Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for the given job. Returns
	// ErrNotFound if none exists.
	LoadCheckpoint(jobID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for all available checkpoints. The
	// slice may be empty.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the checkpoint and every artifact stored
	// alongside it, currently checkpoint.json, solution.json, and
	// trace.jsonl. Returns ErrNotFound if no checkpoint exists.
	DeleteCheckpoint(jobID string) error
}

// ErrNotFound is returned when a requested checkpoint does not exist.
// Check with errors.Is(err, ErrNotFound).
var ErrNotFound = &NotFoundError{}

// NotFoundError is a missing-checkpoint error.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "checkpoint not found: " + e.JobID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
