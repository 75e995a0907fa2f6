package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bqplab/memrelax/internal/search"
	"github.com/bqplab/memrelax/internal/store"
)

// JobState represents the current state of a solve job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// JobConfig is an alias to avoid duplication with store.JobConfig
type JobConfig = store.JobConfig

// Job represents a solve job
type Job struct {
	ID             string          `json:"id"`
	State          JobState        `json:"state"`
	Config         JobConfig       `json:"config"`
	BestAssignment map[int]float64 `json:"bestAssignment,omitempty"`
	BestEnergy     float64         `json:"bestEnergy"`
	BaselineEnergy float64         `json:"baselineEnergy"`
	Restarts       int64           `json:"restarts"`
	Failures       int64           `json:"failures"`
	Report         *search.Report  `json:"report,omitempty"`
	StartTime      time.Time       `json:"startTime"`
	EndTime        *time.Time      `json:"endTime,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// snapshot returns a copy that is safe to read while the solve worker keeps
// updating the stored job.
func (j *Job) snapshot() *Job {
	c := *j
	if j.BestAssignment != nil {
		c.BestAssignment = make(map[int]float64, len(j.BestAssignment))
		for id, w := range j.BestAssignment {
			c.BestAssignment[id] = w
		}
	}
	return &c
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given configuration. The returned
// job is a copy; stored state is mutated through UpdateJob only.
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job.snapshot()
}

// GetJob retrieves a copy of a job by ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	return job.snapshot(), true
}

// ListJobs returns copies of all jobs
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// GetRunningJobs returns copies of all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			runningJobs = append(runningJobs, job.snapshot())
		}
	}
	return runningJobs
}
