package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/bqplab/memrelax/internal/bqp"
	"github.com/bqplab/memrelax/internal/dynamics"
	"github.com/bqplab/memrelax/internal/search"
)

var (
	solveInputFile      string
	solveRuntimeLimit   float64
	solveMaxSteps       int
	solveSeed           int64
	solveWorkers        int
	solveSolver         string
	solveAlpha          float64
	solveBeta           float64
	solveDT             float64
	solveP              float64
	solveTolerance      float64
	solveFloorThreshold float64
	solveShowSolution   bool
	solveShowObjectives bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a bqpjson problem with relaxation dynamics",
	Long: `Solve reads a bqpjson document from a file or stdin, runs randomized
restarts of the memristive relaxation dynamics until the runtime limit is
spent, and prints the BQP_DATA summary line. Spin problems are converted
to the boolean domain before solving; the scaled objective is unchanged.`,
	RunE: runSolve,
}

func init() {
	defaults := dynamics.DefaultParams()

	solveCmd.Flags().StringVarP(&solveInputFile, "input-file", "f", "", "Problem file (default stdin)")
	solveCmd.Flags().Float64VarP(&solveRuntimeLimit, "runtime-limit", "r", 10, "Wall-clock budget in seconds")
	solveCmd.Flags().IntVar(&solveMaxSteps, "max-steps", defaults.TotalTime, "Integration steps per restart")
	solveCmd.Flags().Int64Var(&solveSeed, "seed", 42, "Random seed (negative derives from the clock)")
	solveCmd.Flags().IntVar(&solveWorkers, "workers", 1, "Concurrent restart workers")
	solveCmd.Flags().StringVar(&solveSolver, "solver", "lu", "Linear solver backend (lu, jacobi)")
	solveCmd.Flags().Float64Var(&solveAlpha, "alpha", defaults.Alpha, "Decay rate of the internal state")
	solveCmd.Flags().Float64Var(&solveBeta, "beta", defaults.Beta, "Drive gain")
	solveCmd.Flags().Float64Var(&solveDT, "dt", defaults.DT, "Integration step size")
	solveCmd.Flags().Float64Var(&solveP, "p", defaults.P, "Interaction strength of the coupling matrix")
	solveCmd.Flags().Float64Var(&solveTolerance, "tolerance", defaults.Tolerance, "Early-stop update tolerance (0 disables)")
	solveCmd.Flags().Float64Var(&solveFloorThreshold, "floor-threshold", defaults.FloorThreshold, "Lower projection cutoff")
	solveCmd.Flags().BoolVar(&solveShowSolution, "show-solution", false, "Print the best assignment after the summary line")
	solveCmd.Flags().BoolVar(&solveShowObjectives, "show-objectives", false, "Print each restart's scaled objective as it completes")

	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	problem, err := loadProblem(solveInputFile)
	if err != nil {
		return err
	}
	if problem.VariableDomain == bqp.DomainSpin {
		if problem, err = bqp.SwapDomain(problem); err != nil {
			return fmt.Errorf("failed to convert spin problem: %w", err)
		}
	}

	params := dynamics.DefaultParams()
	params.Alpha = solveAlpha
	params.Beta = solveBeta
	params.DT = solveDT
	params.P = solveP
	params.Tolerance = solveTolerance
	params.FloorThreshold = solveFloorThreshold

	opts := search.Options{
		RuntimeLimit: time.Duration(solveRuntimeLimit * float64(time.Second)),
		MaxSteps:     solveMaxSteps,
		Seed:         solveSeed,
		Workers:      solveWorkers,
		Params:       params,
		Solver:       solveSolver,
	}
	if solveShowObjectives {
		opts.OnRestart = func(o search.RestartOutcome) {
			if o.Err != nil {
				fmt.Fprintf(os.Stderr, "restart %d failed: %v\n", o.Restart, o.Err)
				return
			}
			fmt.Printf("%d, %f\n", o.Restart, problem.Scale*(o.Energy+problem.Offset))
		}
	}

	driver, err := search.NewDriver(problem, opts)
	if err != nil {
		return fmt.Errorf("failed to configure solve: %w", err)
	}
	result, err := driver.Solve(cmd.Context())
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	fmt.Println(search.NewReport(problem, result).Line())
	if solveShowSolution {
		printAssignment(result.BestAssignment)
	}
	return nil
}

// loadProblem reads a bqpjson document from path, or from stdin when path
// is empty or "-".
func loadProblem(path string) (*bqp.Problem, error) {
	if path == "" || path == "-" {
		problem, err := bqp.Decode(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read problem from stdin: %w", err)
		}
		return problem, nil
	}
	problem, err := bqp.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load problem: %w", err)
	}
	return problem, nil
}

func printAssignment(assignment map[int]float64) {
	ids := make([]int, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fmt.Printf("%d - %g\n", id, assignment[id])
	}
}
