package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the job server for status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}

	jobID := args[0]
	url := fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID)
	return getJobStatus(url, jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		config, _ := job["config"].(map[string]interface{})
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if config != nil {
			fmt.Printf("  Problem: %s\n", config["problemPath"])
		}
		if restarts, ok := job["restarts"].(float64); ok && restarts > 0 {
			fmt.Printf("  Energy: %.6f -> %.6f (%v restarts)\n",
				job["baselineEnergy"], job["bestEnergy"], restarts)
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if config, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Configuration:")
		fmt.Printf("  Problem: %s\n", config["problemPath"])
		fmt.Printf("  Runtime Limit: %vs\n", config["runtimeLimit"])
		fmt.Printf("  Max Steps: %v\n", config["maxSteps"])
		fmt.Printf("  Seed: %v\n", config["seed"])
		if config["workers"] != nil {
			fmt.Printf("  Workers: %v\n", config["workers"])
		}
		if config["solver"] != nil {
			fmt.Printf("  Solver: %s\n", config["solver"])
		}
		fmt.Println()
	}

	fmt.Println("Progress:")
	baseline, hasBaseline := status["baselineEnergy"].(float64)
	best, hasBest := status["bestEnergy"].(float64)
	if hasBaseline {
		fmt.Printf("  Baseline Energy: %.6f\n", baseline)
	}
	if hasBest {
		fmt.Printf("  Best Energy: %.6f\n", best)
		if hasBaseline {
			fmt.Printf("  Improvement: %.6f\n", baseline-best)
		}
	}
	fmt.Printf("  Restarts: %v\n", status["restarts"])
	if failures, ok := status["failures"].(float64); ok && failures > 0 {
		fmt.Printf("  Failures: %v\n", failures)
	}

	if elapsed, ok := status["elapsed"].(float64); ok {
		fmt.Printf("  Elapsed: %s\n", time.Duration(elapsed*float64(time.Second)).Round(time.Millisecond))
	}

	if rps, ok := status["rps"].(float64); ok && rps > 0 {
		fmt.Printf("  Throughput: %.0f restarts/sec\n", rps)
	}

	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}

	return nil
}
