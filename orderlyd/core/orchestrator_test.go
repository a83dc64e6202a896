package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/orderly-agent/orderly/internals/agent"
	"github.com/orderly-agent/orderly/internals/logstream"
	"github.com/orderly-agent/orderly/internals/schemas"
	"github.com/orderly-agent/orderly/internals/testutil"
)

type fakeRunner struct {
	release chan struct{}
	outcome *agent.Outcome
	sink    agent.EventSink
}

func (r *fakeRunner) Run(ctx context.Context, instruction string) *agent.Outcome {
	if r.sink != nil {
		r.sink.Publish("step 0: saw \"something\" -> click(1, 2, left) -> success")
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
		}
	}
	return r.outcome
}

func completedOutcome() *agent.Outcome {
	now := time.Now().UTC()
	return &agent.Outcome{
		Status:    agent.OutcomeCompleted,
		Reason:    "record saved",
		StartedAt: now,
		Steps: []agent.Step{{
			Index:  0,
			Action: &agent.Action{Type: agent.ActionClick, X: 1, Y: 2},
			Result: agent.StepResultSuccess,
			At:     now,
		}},
		FinishedAt: now,
	}
}

func newTestOrchestrator(t *testing.T, runner *fakeRunner) *Orchestrator {
	t.Helper()
	store, err := OpenStoreAt(testutil.TempDBPath(t))
	if err != nil {
		t.Fatalf("OpenStoreAt: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(store, logger, func(sink agent.EventSink) TaskRunner {
		runner.sink = sink
		return runner
	})
}

func waitForStatus(t *testing.T, o *Orchestrator, taskID string, status schemas.TaskStatus) {
	t.Helper()
	ok := testutil.WaitFor(2*time.Second, func() bool {
		response, err := o.Get(context.Background(), taskID)
		return err == nil && response.Status == status
	})
	if !ok {
		t.Fatalf("timeout waiting for task %s to reach %s", taskID, status)
	}
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), outcome: completedOutcome()}
	o := newTestOrchestrator(t, runner)

	first, err := o.Submit(context.Background(), "Create a new patient record")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if first.Status != schemas.TaskStatusQueued {
		t.Fatalf("expected queued response, got %s", first.Status)
	}

	if _, err := o.Submit(context.Background(), "another task"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(runner.release)
	waitForStatus(t, o, first.TaskID, schemas.TaskStatusCompleted)

	// Slot free again after the run finishes.
	second, err := o.Submit(context.Background(), "next task")
	if err != nil {
		t.Fatalf("Submit after completion: %v", err)
	}
	waitForStatus(t, o, second.TaskID, schemas.TaskStatusCompleted)
}

func TestRunPersistsOutcome(t *testing.T) {
	runner := &fakeRunner{outcome: completedOutcome()}
	o := newTestOrchestrator(t, runner)

	response, err := o.Submit(context.Background(), "Create a new patient record")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, o, response.TaskID, schemas.TaskStatusCompleted)

	final, err := o.Get(context.Background(), response.TaskID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(final.Steps) != 1 || final.Steps[0].Result != "success" {
		t.Fatalf("step history not persisted: %+v", final.Steps)
	}
	if final.StartedAt == "" || final.FinishedAt == "" {
		t.Fatalf("timestamps missing: %+v", final)
	}
}

func TestRunPersistsFailureTag(t *testing.T) {
	runner := &fakeRunner{outcome: &agent.Outcome{
		Status:  agent.OutcomeFailed,
		Failure: agent.TagPerceptionUnavailable,
		Reason:  "perception unavailable after 3 attempts",
	}}
	o := newTestOrchestrator(t, runner)

	response, err := o.Submit(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, o, response.TaskID, schemas.TaskStatusFailed)

	final, _ := o.Get(context.Background(), response.TaskID)
	if final.FailureTag != string(agent.TagPerceptionUnavailable) {
		t.Fatalf("failure tag not persisted: %+v", final)
	}
}

func TestSubscribeSeesEventsAndSentinel(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), outcome: completedOutcome()}
	o := newTestOrchestrator(t, runner)

	if _, _, err := o.Subscribe(""); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound before any task, got %v", err)
	}

	response, err := o.Submit(context.Background(), "watch me")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	events, cancel, err := o.Subscribe(response.TaskID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()
	close(runner.release)

	var seen []string
	for event := range events {
		seen = append(seen, event.Text)
	}
	if len(seen) == 0 || seen[len(seen)-1] != logstream.Sentinel {
		t.Fatalf("expected sentinel-terminated event stream, got %v", seen)
	}
}

func TestSubscribeUnknownTask(t *testing.T) {
	runner := &fakeRunner{outcome: completedOutcome()}
	o := newTestOrchestrator(t, runner)

	response, err := o.Submit(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitForStatus(t, o, response.TaskID, schemas.TaskStatusCompleted)

	if _, _, err := o.Subscribe("some-other-task"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestStopCancelsRunningTask(t *testing.T) {
	runner := &fakeRunner{
		release: make(chan struct{}), // never released, run ends via ctx
		outcome: &agent.Outcome{
			Status:  agent.OutcomeFailed,
			Failure: agent.TagTimeBudgetExceeded,
			Reason:  "wall time budget elapsed",
		},
	}
	o := newTestOrchestrator(t, runner)

	response, err := o.Submit(context.Background(), "long haul")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !o.Busy() {
		t.Fatal("expected orchestrator busy")
	}

	o.Stop()
	waitForStatus(t, o, response.TaskID, schemas.TaskStatusFailed)
	if o.Busy() {
		t.Fatal("expected slot free after Stop")
	}
}
