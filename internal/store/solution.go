package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SaveSolution writes the assignment to <baseDir>/jobs/<jobID>/solution.json
// atomically, as a flat object keyed by decimal variable id. This is the
// form `eval --solution` consumes, so a saved artifact can be re-scored
// against its problem file directly.
func SaveSolution(baseDir, jobID string, assignment map[int]float64) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}

	out := make(map[string]float64, len(assignment))
	for id, value := range assignment {
		out[strconv.Itoa(id)] = value
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize solution: %w", err)
	}

	jobDir := filepath.Join(baseDir, "jobs", jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return fmt.Errorf("failed to create job directory: %w", err)
	}

	path := filepath.Join(jobDir, "solution.json")
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp solution file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename solution file: %w", err)
	}
	return nil
}
