// Package agent implements the perceive-plan-act loop that drives the
// hospital information system UI. The loop owns retries, budgets and step
// history; perception, planning and input injection are external services
// consumed through the adapter interfaces below.
package agent

import (
	"context"
	"time"
)

// Element is one piece of text the perception backend located on screen.
type Element struct {
	Text       string `json:"text"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	CenterX    int    `json:"center_x"`
	CenterY    int    `json:"center_y"`
	Confidence int    `json:"confidence"`
}

// Observation is a structured description of the current screen.
// Depending on the perception strategy it carries located text elements,
// a raw screenshot, or both.
type Observation struct {
	ImagePNG []byte
	Elements []Element
	Summary  string
	TakenAt  time.Time
}

type DecisionKind string

const (
	DecisionAct      DecisionKind = "act"
	DecisionComplete DecisionKind = "complete"
	DecisionFail     DecisionKind = "fail"
)

// Decision is the planner's verdict for one step: exactly one next action,
// or a terminal complete/fail signal with a rationale.
type Decision struct {
	Kind   DecisionKind
	Action *Action
	Reason string
}

// Perceptor captures the current screen state.
type Perceptor interface {
	Capture(ctx context.Context) (*Observation, error)
}

// Planner chooses the next action given the instruction, the current
// observation and the step history so far. A malformed or out-of-vocabulary
// plan is reported as an error wrapping ErrMalformedPlan.
type Planner interface {
	Plan(ctx context.Context, instruction string, obs *Observation, history []Step) (*Decision, error)
}

// Executor translates one action into OS-level input events.
type Executor interface {
	Execute(ctx context.Context, action Action) error
}

// EventSink receives the human-readable log line emitted for each step.
type EventSink interface {
	Publish(text string)
}
