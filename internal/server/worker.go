package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bqplab/memrelax/internal/bqp"
	"github.com/bqplab/memrelax/internal/search"
	"github.com/bqplab/memrelax/internal/store"
)

// runJob executes a solve job in the background. If checkpointStore is not
// nil, a final checkpoint is saved when the job finishes, plus periodic ones
// while it runs when the job has checkpointInterval > 0. If dataDir is not
// empty, every restart outcome is appended to the job's trace.jsonl.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, dataDir, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	config := job.Config
	slog.Info("Starting job", "job_id", jobID, "problem", config.ProblemPath)

	// Load the problem
	problem, err := bqp.Load(config.ProblemPath)
	if err != nil {
		err = fmt.Errorf("failed to load problem: %w", err)
		markJobFailed(jm, jobID, err)
		return err
	}

	// The dynamics operate on boolean weights; spin input is converted
	// up front, which leaves the scaled objective unchanged.
	if problem.VariableDomain == bqp.DomainSpin {
		problem, err = bqp.SwapDomain(problem)
		if err != nil {
			err = fmt.Errorf("failed to convert problem to boolean domain: %w", err)
			markJobFailed(jm, jobID, err)
			return err
		}
		slog.Info("Converted spin problem to boolean domain", "job_id", jobID, "variables", len(problem.VariableIDs))
	}

	baseline := problem.Evaluate(problem.UniformAssignment(0))
	jm.UpdateJob(jobID, func(j *Job) {
		j.BaselineEnergy = baseline
		j.BestEnergy = baseline
	})

	// Restart trace, best effort
	var trace *store.TraceWriter
	if dataDir != "" {
		trace, err = store.NewTraceWriter(dataDir, jobID, false)
		if err != nil {
			slog.Warn("Continuing without restart trace", "job_id", jobID, "error", err)
			trace = nil
		} else {
			defer trace.Close()
		}
	}

	opts := search.Options{
		RuntimeLimit: time.Duration(config.RuntimeLimit * float64(time.Second)),
		MaxSteps:     config.MaxSteps,
		Seed:         config.Seed,
		Workers:      config.Workers,
		Solver:       config.Solver,
		OnRestart: func(o search.RestartOutcome) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.Restarts++
				if o.Err != nil {
					j.Failures++
				} else if o.Improved {
					j.BestEnergy = o.Energy
				}
			})
			if trace == nil {
				return
			}
			entry := store.TraceEntry{
				Restart:   o.Restart,
				Energy:    o.Energy,
				Steps:     o.Steps,
				Converged: o.Converged,
				Improved:  o.Improved,
				Timestamp: time.Now(),
			}
			if o.Err != nil {
				entry.Error = o.Err.Error()
			}
			if err := trace.Write(entry); err != nil {
				slog.Warn("Failed to write trace entry", "job_id", jobID, "error", err)
			}
		},
	}

	driver, err := search.NewDriver(problem, opts)
	if err != nil {
		err = fmt.Errorf("failed to configure solve: %w", err)
		markJobFailed(jm, jobID, err)
		return err
	}

	// Check for cancellation before starting the solve
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	start := time.Now()

	// Start progress monitoring goroutine
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, start, progressDone)

	// Start checkpoint monitoring goroutine if enabled
	checkpointDone := make(chan struct{})
	checkpointing := checkpointStore != nil && config.CheckpointInterval > 0
	if checkpointing {
		go monitorCheckpoints(ctx, jm, checkpointStore, driver, dataDir, jobID, checkpointDone)
	} else {
		close(checkpointDone)
	}

	result, err := driver.Solve(ctx)

	close(progressDone)
	if checkpointing {
		close(checkpointDone)
	}
	elapsed := time.Since(start)

	if err != nil {
		err = fmt.Errorf("solve failed: %w", err)
		markJobFailed(jm, jobID, err)
		return err
	}

	// A cancelled solve still yields its best-so-far, so record the
	// partial result and leave a checkpoint before marking the job.
	if ctx.Err() != nil {
		jm.UpdateJob(jobID, func(j *Job) {
			j.BestAssignment = result.BestAssignment
			j.BestEnergy = result.BestEnergy
			j.Restarts = result.Restarts
			j.Failures = result.Failures
		})
		if checkpointStore != nil {
			if cerr := saveCheckpoint(jm, checkpointStore, driver, dataDir, jobID); cerr != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", cerr)
			}
		}
		markJobCancelled(jm, jobID)
		return ctx.Err()
	}

	// Update job with results
	report := search.NewReport(problem, result)
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.BestAssignment = result.BestAssignment
		j.BestEnergy = result.BestEnergy
		j.Restarts = result.Restarts
		j.Failures = result.Failures
		j.Report = report
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	rps := float64(0)
	if elapsed.Seconds() > 0 {
		rps = float64(result.Restarts) / elapsed.Seconds()
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"baseline_energy", baseline,
		"best_energy", result.BestEnergy,
		"restarts", result.Restarts,
		"failures", result.Failures,
		"restarts_per_second", rps,
	)

	// Leave a resumable checkpoint for every finished job
	if checkpointStore != nil {
		if err := saveCheckpoint(jm, checkpointStore, driver, dataDir, jobID); err != nil {
			slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
		}
	}

	// Broadcast final completion event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:      jobID,
		State:      StateCompleted,
		Restarts:   result.Restarts,
		BestEnergy: result.BestEnergy,
		RPS:        rps,
		Timestamp:  time.Now(),
	})

	return nil
}

// monitorProgress periodically broadcasts progress events during the solve
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, startTime time.Time, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}

			elapsed := time.Since(startTime).Seconds()
			var rps float64
			if elapsed > 0 {
				rps = float64(job.Restarts) / elapsed
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:      jobID,
				State:      job.State,
				Restarts:   job.Restarts,
				BestEnergy: job.BestEnergy,
				RPS:        rps,
				Timestamp:  time.Now(),
			})
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

// monitorCheckpoints periodically saves checkpoints during the solve
func monitorCheckpoints(ctx context.Context, jm *JobManager, checkpointStore store.Store, driver *search.Driver, dataDir, jobID string, done chan struct{}) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}

	interval := time.Duration(job.Config.CheckpointInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := saveCheckpoint(jm, checkpointStore, driver, dataDir, jobID); err != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
			}
		}
	}
}

// saveCheckpoint persists the driver's current incumbent for the given job,
// plus the solution.json artifact when a data directory is configured
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, driver *search.Driver, dataDir, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	assignment, energy := driver.Best()
	if len(assignment) == 0 {
		slog.Debug("Skipping checkpoint, no assignment yet", "job_id", jobID)
		return nil
	}

	checkpoint := store.NewCheckpoint(
		jobID,
		assignment,
		energy,
		job.BaselineEnergy,
		driver.Restarts(),
		job.Config,
	)

	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	// The artifact is a convenience copy; its failure must not fail the
	// checkpoint
	if dataDir != "" {
		if err := store.SaveSolution(dataDir, jobID, assignment); err != nil {
			slog.Warn("Failed to save solution artifact", "job_id", jobID, "error", err)
		}
	}

	slog.Info("Checkpoint saved",
		"job_id", jobID,
		"restarts", checkpoint.Restarts,
		"best_energy", energy,
	)
	return nil
}
