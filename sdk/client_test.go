package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orderly-agent/orderly/internals/logstream"
	"github.com/orderly-agent/orderly/internals/schemas"
)

func TestSubmitTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/task" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var request schemas.TaskSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if request.Task != "Create a new patient record" {
			t.Errorf("unexpected task %q", request.Task)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(schemas.TaskResponse{TaskID: "t1", Status: schemas.TaskStatusQueued})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	response, err := client.SubmitTask(context.Background(), "Create a new patient record")
	if err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	if response.TaskID != "t1" || response.Status != schemas.TaskStatusQueued {
		t.Fatalf("unexpected response %+v", response)
	}
}

func TestSubmitTaskBusy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(ErrorResponse{Status: "failed", Code: "busy", Message: "a task is already running"})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.SubmitTask(context.Background(), "anything"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestTaskStatusAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Status: "failed", Code: "not_found", Message: "task not found"})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.TaskStatus(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "not_found" || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
}

func TestStreamLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("task_id") != "t1" {
			t.Errorf("missing task_id query, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: step 0: something\n\n")
		fmt.Fprint(w, ": keepalive\n\n")
		fmt.Fprint(w, "data: step 1: something else\n\n")
		fmt.Fprintf(w, "data: %s\n\n", logstream.Sentinel)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	var lines []string
	err := client.StreamLogs(context.Background(), "t1", func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("StreamLogs: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 data lines before the terminal marker, got %v", lines)
	}
}

func TestStreamLogsTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: step 0: something\n\n")
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if err := client.StreamLogs(context.Background(), "", func(string) {}); err == nil {
		t.Fatal("expected error for stream without terminal marker")
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(schemas.HealthResponse{Status: "ok", Version: "test"})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestIsRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(schemas.HealthResponse{Status: "ok", Version: "test"})
	}))
	defer srv.Close()

	if !IsRunning(srv.URL) {
		t.Fatal("expected IsRunning true for healthy server")
	}
	srv.Close()
	if IsRunning(srv.URL) {
		t.Fatal("expected IsRunning false for closed server")
	}
}
