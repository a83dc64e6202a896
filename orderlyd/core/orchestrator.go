package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderly-agent/orderly/internals/agent"
	"github.com/orderly-agent/orderly/internals/logstream"
	"github.com/orderly-agent/orderly/internals/schemas"
)

// ErrBusy is returned while the single execution slot is occupied. One
// agent drives one screen; concurrent tasks would fight over the mouse.
var ErrBusy = errors.New("a task is already queued or running")

// TaskRunner runs one instruction to completion. *agent.Loop satisfies
// it; tests swap in fakes.
type TaskRunner interface {
	Run(ctx context.Context, instruction string) *agent.Outcome
}

// RunnerFactory builds the runner for one task, bound to that task's
// event sink.
type RunnerFactory func(sink agent.EventSink) TaskRunner

// Orchestrator owns the execution slot: it admits at most one task at a
// time, runs the loop in its own goroutine, persists the record through
// its status edges and closes the log stream when the task ends.
type Orchestrator struct {
	store     *TaskStore
	logger    *slog.Logger
	newRunner RunnerFactory

	mu         sync.Mutex
	current    *slot
	lastStream *logstream.Stream
	lastTaskID string
}

type slot struct {
	taskID string
	stream *logstream.Stream
	cancel context.CancelFunc
	done   chan struct{}
}

func NewOrchestrator(store *TaskStore, logger *slog.Logger, factory RunnerFactory) *Orchestrator {
	return &Orchestrator{
		store:     store,
		logger:    logger,
		newRunner: factory,
	}
}

// Submit admits one instruction into the slot. It returns the queued
// record immediately; the loop runs in the background.
func (o *Orchestrator) Submit(ctx context.Context, instruction string) (*schemas.TaskResponse, error) {
	o.mu.Lock()
	if o.current != nil {
		o.mu.Unlock()
		return nil, ErrBusy
	}

	taskID := uuid.NewString()
	record := NewRecord(taskID, instruction)
	if err := o.store.Create(ctx, record); err != nil {
		o.mu.Unlock()
		return nil, err
	}

	stream := logstream.New(taskID)
	runCtx, cancel := context.WithCancel(context.Background())
	s := &slot{
		taskID: taskID,
		stream: stream,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	o.current = s
	o.lastStream = stream
	o.lastTaskID = taskID
	o.mu.Unlock()

	o.logger.Info("task accepted", "task_id", taskID, "instruction", instruction)
	go o.run(runCtx, s, record)

	return record.ToResponse()
}

func (o *Orchestrator) run(ctx context.Context, s *slot, record TaskRecord) {
	defer func() {
		s.stream.Close()
		o.mu.Lock()
		if o.current == s {
			o.current = nil
		}
		o.mu.Unlock()
		close(s.done)
	}()

	record.Status = schemas.TaskStatusRunning
	record.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := o.store.Update(ctx, record); err != nil {
		o.logger.Error("failed to mark task running", "task_id", s.taskID, "error", err)
	}
	s.stream.Publish(fmt.Sprintf("[SYSTEM] task started: %s", record.Instruction))

	runner := o.newRunner(s.stream)
	outcome := runner.Run(ctx, record.Instruction)

	record.FinishedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if outcome.Status == agent.OutcomeCompleted {
		record.Status = schemas.TaskStatusCompleted
	} else {
		record.Status = schemas.TaskStatusFailed
		record.FailureTag = string(outcome.Failure)
		record.Error = outcome.Reason
	}
	if stepsJSON, err := encodeSteps(outcome.Steps); err != nil {
		o.logger.Error("failed to encode step history", "task_id", s.taskID, "error", err)
	} else {
		record.StepsJSON = stepsJSON
	}

	if err := o.store.Update(context.Background(), record); err != nil {
		o.logger.Error("failed to finalize task", "task_id", s.taskID, "error", err)
	}

	duration := outcome.FinishedAt.Sub(outcome.StartedAt).Round(time.Millisecond)
	s.stream.Publish(fmt.Sprintf("[SYSTEM] task %s in %s, %d steps", record.Status, duration, len(outcome.Steps)))
	o.logger.Info("task finished", "task_id", s.taskID, "status", record.Status, "failure_tag", record.FailureTag, "steps", len(outcome.Steps))
}

// Subscribe attaches to a task's log stream. An empty taskID means the
// current (or most recent) task. Subscribing to a finished task yields
// the sentinel immediately; there is no replay of earlier events.
func (o *Orchestrator) Subscribe(taskID string) (<-chan logstream.Event, func(), error) {
	o.mu.Lock()
	stream := o.lastStream
	if o.current != nil {
		stream = o.current.stream
	}
	o.mu.Unlock()

	if stream == nil {
		return nil, nil, ErrTaskNotFound
	}
	if taskID != "" && stream.TaskID() != taskID {
		return nil, nil, ErrTaskNotFound
	}
	events, cancel := stream.Subscribe()
	return events, cancel, nil
}

// Get loads one task by ID.
func (o *Orchestrator) Get(ctx context.Context, taskID string) (*schemas.TaskResponse, error) {
	record, err := o.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return record.ToResponse()
}

// Snapshot returns the task occupying the slot, falling back to the
// most recent record.
func (o *Orchestrator) Snapshot(ctx context.Context) (*schemas.TaskResponse, error) {
	o.mu.Lock()
	taskID := o.lastTaskID
	o.mu.Unlock()

	if taskID != "" {
		return o.Get(ctx, taskID)
	}
	record, err := o.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return record.ToResponse()
}

// Busy reports whether the slot is occupied.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil
}

// Stop cancels the running task, if any, and waits for its goroutine to
// finish persisting.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	s := o.current
	o.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

func encodeSteps(steps []agent.Step) (string, error) {
	if len(steps) == 0 {
		return "", nil
	}
	payloads := make([]schemas.StepPayload, len(steps))
	for i, step := range steps {
		payloads[i] = schemas.StepPayload{
			Index:   step.Index,
			Summary: step.Summary,
			Action:  step.Action.String(),
			Result:  string(step.Result),
			Error:   step.Err,
			At:      step.At.Format(time.RFC3339Nano),
		}
	}
	data, err := json.Marshal(payloads)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
