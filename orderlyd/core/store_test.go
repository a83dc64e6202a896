package core

import (
	"context"
	"errors"
	"testing"

	"github.com/orderly-agent/orderly/internals/schemas"
	"github.com/orderly-agent/orderly/internals/testutil"
)

func TestOpenStoreMigratesSchema(t *testing.T) {
	store, err := OpenStoreAt(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("OpenStoreAt: %v", err)
	}
	defer store.Close()

	row := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='tasks'")
	var name string
	if err := row.Scan(&name); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "tasks" {
		t.Fatalf("expected tasks table, got %q", name)
	}
}

func TestStoreRecordLifecycle(t *testing.T) {
	store, err := OpenStoreAt(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("OpenStoreAt: %v", err)
	}
	defer store.Close()

	record := NewRecord("task1", "Create a new patient record")
	if record.Status != schemas.TaskStatusQueued || record.CreatedAt == "" {
		t.Fatalf("unexpected fresh record %+v", record)
	}
	if err := store.Create(context.Background(), record); err != nil {
		t.Fatalf("Create: %v", err)
	}

	record.Status = schemas.TaskStatusFailed
	record.FailureTag = "StepBudgetExceeded"
	record.Error = "step budget of 50 exhausted"
	record.StepsJSON = `[{"index":0,"action":"click(1, 2, left)","result":"success","at":"2026-08-30T10:00:00Z"}]`
	if err := store.Update(context.Background(), record); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(context.Background(), "task1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != schemas.TaskStatusFailed || got.FailureTag != "StepBudgetExceeded" {
		t.Fatalf("unexpected record %+v", got)
	}

	response, err := got.ToResponse()
	if err != nil {
		t.Fatalf("ToResponse: %v", err)
	}
	if len(response.Steps) != 1 || response.Steps[0].Action != "click(1, 2, left)" {
		t.Fatalf("step history not decoded: %+v", response.Steps)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store, err := OpenStoreAt(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("OpenStoreAt: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := store.Latest(context.Background()); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound on empty store, got %v", err)
	}
}
