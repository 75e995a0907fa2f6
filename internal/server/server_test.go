package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	s, err := NewServer(":8080", "")
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

func TestServer_CreateJob(t *testing.T) {
	problemPath := createTestProblem(t, t.TempDir())
	s := newTestServer(t)

	config := JobConfig{
		ProblemPath:  problemPath,
		RuntimeLimit: 0.2,
		MaxSteps:     10,
		Seed:         42,
	}

	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	// State should be pending or running (since worker starts immediately)
	if job.State != StatePending && job.State != StateRunning {
		t.Errorf("Expected pending or running state, got %s", job.State)
	}
}

func TestServer_CreateJob_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		config JobConfig
	}{
		{"missing problem path", JobConfig{RuntimeLimit: 1}},
		{"unknown solver", JobConfig{ProblemPath: "test.json", Solver: "qr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.config)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
			w := httptest.NewRecorder()

			s.handleCreateJob(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestServer_ListJobs(t *testing.T) {
	s := newTestServer(t)

	s.jobManager.CreateJob(JobConfig{ProblemPath: "a.json"})
	s.jobManager.CreateJob(JobConfig{ProblemPath: "b.json"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	w := httptest.NewRecorder()

	s.handleListJobs(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var jobs []*Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s := newTestServer(t)

	job := s.jobManager.CreateJob(JobConfig{ProblemPath: "test.json", RuntimeLimit: 10})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/status", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["id"] != job.ID {
		t.Error("Response should contain job ID")
	}

	if response["state"] != string(StatePending) {
		t.Errorf("Expected pending state, got %v", response["state"])
	}
}

func TestServer_GetJobStatus_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/status", nil)
	w := httptest.NewRecorder()

	s.handleGetJobStatus(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_GetJobResult(t *testing.T) {
	problemPath := createTestProblem(t, t.TempDir())
	s := newTestServer(t)

	job := s.jobManager.CreateJob(JobConfig{
		ProblemPath:  problemPath,
		RuntimeLimit: 0.2,
		MaxSteps:     10,
		Seed:         42,
	})

	// Run job and wait for completion
	if err := runJob(context.Background(), s.jobManager, nil, "", job.ID); err != nil {
		t.Fatalf("Job failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/result", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobResult(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Expected text/plain content type, got %s", ct)
	}

	if !strings.HasPrefix(w.Body.String(), "BQP_DATA, 2, 1, ") {
		t.Errorf("Expected BQP_DATA summary line, got %q", w.Body.String())
	}
}

func TestServer_GetJobResult_NotReady(t *testing.T) {
	s := newTestServer(t)

	job := s.jobManager.CreateJob(JobConfig{ProblemPath: "test.json"})

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/result", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobResult(w, req, job.ID)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_GetJobSolution(t *testing.T) {
	problemPath := createTestProblem(t, t.TempDir())
	s := newTestServer(t)

	job := s.jobManager.CreateJob(JobConfig{
		ProblemPath:  problemPath,
		RuntimeLimit: 0.2,
		MaxSteps:     10,
		Seed:         42,
	})

	if err := runJob(context.Background(), s.jobManager, nil, "", job.ID); err != nil {
		t.Fatalf("Job failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/solution", job.ID), nil)
	w := httptest.NewRecorder()

	s.handleGetJobSolution(w, req, job.ID)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var solution struct {
		ID         string             `json:"id"`
		Energy     float64            `json:"energy"`
		Assignment map[string]float64 `json:"assignment"`
	}
	if err := json.NewDecoder(w.Body).Decode(&solution); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if solution.ID != job.ID {
		t.Error("Response should contain job ID")
	}

	if len(solution.Assignment) != 2 {
		t.Errorf("Expected assignment over 2 variables, got %d", len(solution.Assignment))
	}
}

func TestServer_CancelJob(t *testing.T) {
	problemPath := createTestProblem(t, t.TempDir())
	s := newTestServer(t)

	config := JobConfig{
		ProblemPath:  problemPath,
		RuntimeLimit: 3600,
		MaxSteps:     50,
		Seed:         42,
	}

	body, _ := json.Marshal(config)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.handleCreateJob(w, req)

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+job.ID, nil)
	w = httptest.NewRecorder()
	s.handleJobsWithID(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		current, _ := s.jobManager.GetJob(job.ID)
		if current.State == StateCancelled {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Job was not cancelled, state %s", current.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_CancelJob_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/nonexistent", nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServer_Integration(t *testing.T) {
	// Skip in short mode
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	problemPath := createTestProblem(t, t.TempDir())
	s := newTestServer(t)

	srv := httptest.NewServer(s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/jobs" && r.Method == http.MethodPost {
			s.handleCreateJob(w, r)
		} else if r.URL.Path == "/api/v1/jobs" && r.Method == http.MethodGet {
			s.handleListJobs(w, r)
		} else {
			s.handleJobsWithID(w, r)
		}
	})))
	defer srv.Close()

	config := JobConfig{
		ProblemPath:  problemPath,
		RuntimeLimit: 0.3,
		MaxSteps:     20,
		Seed:         42,
	}

	body, _ := json.Marshal(config)
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	defer resp.Body.Close()

	var job Job
	json.NewDecoder(resp.Body).Decode(&job)

	// Poll status until completed
	maxAttempts := 50
	for i := 0; i < maxAttempts; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/status")
		if err != nil {
			t.Fatalf("Failed to get status: %v", err)
		}

		var status map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()

		if status["state"] == string(StateCompleted) {
			break
		}

		if status["state"] == string(StateFailed) {
			t.Fatalf("Job failed: %v", status["error"])
		}

		if i == maxAttempts-1 {
			t.Fatal("Job did not complete in time")
		}

		time.Sleep(100 * time.Millisecond)
	}

	// Fetch the summary line
	resp, err = http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/result")
	if err != nil {
		t.Fatalf("Failed to get result: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_JobStream_SSE(t *testing.T) {
	// Skip in short mode
	if testing.Short() {
		t.Skip("Skipping SSE test in short mode")
	}

	problemPath := createTestProblem(t, t.TempDir())
	s := newTestServer(t)

	job := s.jobManager.CreateJob(JobConfig{
		ProblemPath:  problemPath,
		RuntimeLimit: 1,
		MaxSteps:     20,
		Seed:         42,
	})

	go runJob(context.Background(), s.jobManager, nil, "", job.ID)

	// Give the job time to start
	time.Sleep(50 * time.Millisecond)

	// The stream handler runs until the request context expires
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/jobs/%s/stream", job.ID), nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.handleJobStream(w, req, job.ID)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stream handler did not return after context expiry")
	}

	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Error("Expected text/event-stream content type")
	}

	body := w.Body.String()
	if !strings.Contains(body, "data:") {
		t.Error("Expected SSE data in response")
	}
	if !strings.Contains(body, "jobId") {
		t.Error("Expected progress event payload in response")
	}
}

func TestServer_JobStream_NotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nonexistent/stream", nil)
	w := httptest.NewRecorder()

	s.handleJobStream(w, req, "nonexistent")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestEventBroadcaster(t *testing.T) {
	eb := NewEventBroadcaster()

	ch := eb.Subscribe("job1")
	defer eb.CleanupJob("job1")

	event := ProgressEvent{
		JobID:      "job1",
		State:      StateRunning,
		Restarts:   10,
		BestEnergy: -100.5,
		RPS:        1500.0,
		Timestamp:  time.Now(),
	}
	eb.Broadcast(event)

	select {
	case received := <-ch:
		if received.JobID != "job1" {
			t.Errorf("Expected jobID job1, got %s", received.JobID)
		}
		if received.Restarts != 10 {
			t.Errorf("Expected 10 restarts, got %d", received.Restarts)
		}
		if received.BestEnergy != -100.5 {
			t.Errorf("Expected best energy -100.5, got %f", received.BestEnergy)
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for event")
	}
}

func TestEventBroadcaster_ReplaysLastEvent(t *testing.T) {
	eb := NewEventBroadcaster()

	eb.Broadcast(ProgressEvent{JobID: "job1", State: StateRunning, Restarts: 3})

	// A late subscriber receives the cached event
	ch := eb.Subscribe("job1")
	defer eb.CleanupJob("job1")

	select {
	case received := <-ch:
		if received.Restarts != 3 {
			t.Errorf("Expected replayed event with 3 restarts, got %d", received.Restarts)
		}
	case <-time.After(1 * time.Second):
		t.Error("Timeout waiting for replayed event")
	}
}
