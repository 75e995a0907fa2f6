package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/bqplab/memrelax/internal/bqp"
	"github.com/bqplab/memrelax/internal/search"
	"github.com/bqplab/memrelax/internal/store"
)

var (
	resumeDataDir      string
	resumeRuntimeLimit float64
	resumeMaxSteps     int
	resumeSeed         int64
	resumeWorkers      int
	resumeSolver       string
	resumeShowSolution bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume a checkpointed solve",
	Long: `Resume loads the checkpoint of a previous job, warm-starts the incumbent
with its best assignment, and continues the search with fresh restarts.
The problem file and solver backend must match the checkpointed
configuration; budgets, seed, and workers may be overridden. The restart
count in the summary line is cumulative across resumes, and the checkpoint
is rewritten with the continued state.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for checkpoint storage")
	resumeCmd.Flags().Float64VarP(&resumeRuntimeLimit, "runtime-limit", "r", 10, "Wall-clock budget in seconds for the continued search")
	resumeCmd.Flags().IntVar(&resumeMaxSteps, "max-steps", 0, "Integration steps per restart (0 = checkpointed value)")
	resumeCmd.Flags().Int64Var(&resumeSeed, "seed", 0, "Random seed (negative derives from the clock)")
	resumeCmd.Flags().IntVar(&resumeWorkers, "workers", 0, "Concurrent restart workers (0 = checkpointed value)")
	resumeCmd.Flags().StringVar(&resumeSolver, "solver", "", "Linear solver backend (must match the checkpoint)")
	resumeCmd.Flags().BoolVar(&resumeShowSolution, "show-solution", false, "Print the best assignment after the summary line")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	checkpointStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	checkpoint, err := checkpointStore.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := checkpoint.Validate(); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	config := checkpoint.Config
	if cmd.Flags().Changed("runtime-limit") {
		config.RuntimeLimit = resumeRuntimeLimit
	}
	if cmd.Flags().Changed("max-steps") {
		config.MaxSteps = resumeMaxSteps
	}
	if cmd.Flags().Changed("seed") {
		config.Seed = resumeSeed
	}
	if cmd.Flags().Changed("workers") {
		config.Workers = resumeWorkers
	}
	if cmd.Flags().Changed("solver") {
		config.Solver = resumeSolver
	}
	if err := checkpoint.IsCompatible(config); err != nil {
		return err
	}

	problem, err := bqp.Load(config.ProblemPath)
	if err != nil {
		return fmt.Errorf("failed to load problem: %w", err)
	}
	if problem.VariableDomain == bqp.DomainSpin {
		// Checkpoint weights live in [0,1], so the warm start carries over.
		if problem, err = bqp.SwapDomain(problem); err != nil {
			return fmt.Errorf("failed to convert spin problem: %w", err)
		}
	}

	slog.Info("Resuming job",
		"job_id", jobID,
		"restarts", checkpoint.Restarts,
		"best_energy", checkpoint.BestEnergy,
	)

	driver, err := search.NewDriver(problem, search.Options{
		RuntimeLimit: time.Duration(config.RuntimeLimit * float64(time.Second)),
		MaxSteps:     config.MaxSteps,
		Seed:         config.Seed,
		Workers:      config.Workers,
		Solver:       config.Solver,
		WarmStart:    checkpoint.Assignment,
	})
	if err != nil {
		return fmt.Errorf("failed to configure solve: %w", err)
	}

	result, err := driver.Solve(cmd.Context())
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	result.Restarts += checkpoint.Restarts
	fmt.Println(search.NewReport(problem, result).Line())
	if resumeShowSolution {
		printAssignment(result.BestAssignment)
	}

	updated := store.NewCheckpoint(jobID, result.BestAssignment, result.BestEnergy, checkpoint.BaselineEnergy, result.Restarts, config)
	if err := checkpointStore.SaveCheckpoint(jobID, updated); err != nil {
		return fmt.Errorf("failed to update checkpoint: %w", err)
	}
	if err := store.SaveSolution(resumeDataDir, jobID, result.BestAssignment); err != nil {
		slog.Warn("Failed to save solution artifact", "job_id", jobID, "error", err)
	}
	slog.Info("Checkpoint updated",
		"job_id", jobID,
		"restarts", result.Restarts,
		"best_energy", result.BestEnergy,
	)
	return nil
}
