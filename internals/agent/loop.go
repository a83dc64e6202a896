package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"
)

type Config struct {
	MaxSteps                    int
	MaxWallTime                 time.Duration
	SettleDelay                 time.Duration
	PerceptionAttempts          int
	Backoff                     BackoffConfig
	ConsecutiveFailureThreshold int
}

func DefaultConfig() Config {
	return Config{
		MaxSteps:                    50,
		MaxWallTime:                 20 * time.Minute,
		SettleDelay:                 time.Second,
		PerceptionAttempts:          3,
		Backoff:                     BackoffConfig{Base: 500 * time.Millisecond, Max: 8 * time.Second},
		ConsecutiveFailureThreshold: 3,
	}
}

// Step is one perceive-plan-act iteration. Steps are append-only and
// strictly ordered by Index with no gaps.
type Step struct {
	Index   int       `json:"index"`
	Summary string    `json:"summary,omitempty"`
	Action  *Action   `json:"action"`
	Result  string    `json:"result"`
	Err     string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

const (
	StepResultSuccess = "success"
	StepResultError   = "error"
)

type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

type Outcome struct {
	Status     OutcomeStatus
	Failure    FailureTag
	Reason     string
	Steps      []Step
	StartedAt  time.Time
	FinishedAt time.Time
}

// Loop runs one task to completion against the three adapters. A Loop
// instance is single-use: Run owns all state for its task.
type Loop struct {
	perceptor Perceptor
	planner   Planner
	executor  Executor
	sink      EventSink
	logger    *slog.Logger
	cfg       Config
}

func NewLoop(perceptor Perceptor, planner Planner, executor Executor, sink EventSink, logger *slog.Logger, cfg Config) *Loop {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultConfig().MaxSteps
	}
	if cfg.PerceptionAttempts <= 0 {
		cfg.PerceptionAttempts = DefaultConfig().PerceptionAttempts
	}
	if cfg.ConsecutiveFailureThreshold <= 0 {
		cfg.ConsecutiveFailureThreshold = DefaultConfig().ConsecutiveFailureThreshold
	}
	return &Loop{
		perceptor: perceptor,
		planner:   planner,
		executor:  executor,
		sink:      sink,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run executes the perceive-plan-act loop for one instruction until the
// planner signals completion or a budget/failure condition terminates the
// task. It always returns a terminal Outcome.
func (l *Loop) Run(ctx context.Context, instruction string) *Outcome {
	if l.cfg.MaxWallTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.MaxWallTime)
		defer cancel()
	}

	outcome := &Outcome{StartedAt: time.Now().UTC()}
	steps := []Step{}
	consecutiveFailures := 0

	fail := func(tag FailureTag, reason string) *Outcome {
		l.publish(fmt.Sprintf("[ERROR] task failed (%s): %s", tag, reason))
		outcome.Status = OutcomeFailed
		outcome.Failure = tag
		outcome.Reason = reason
		outcome.Steps = steps
		outcome.FinishedAt = time.Now().UTC()
		return outcome
	}

	for index := 0; ; index++ {
		if index >= l.cfg.MaxSteps {
			return fail(TagStepBudgetExceeded, fmt.Sprintf("step budget of %d exhausted", l.cfg.MaxSteps))
		}

		obs, err := l.capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return fail(TagTimeBudgetExceeded, "wall time budget elapsed during perception")
			}
			return fail(TagPerceptionUnavailable, err.Error())
		}

		decision, err := l.plan(ctx, instruction, obs, steps)
		if err != nil {
			if ctx.Err() != nil {
				return fail(TagTimeBudgetExceeded, "wall time budget elapsed during planning")
			}
			return fail(TagInvalidPlan, err.Error())
		}

		switch decision.Kind {
		case DecisionComplete:
			l.publish(fmt.Sprintf("[SYSTEM] task complete after %d steps: %s", len(steps), decision.Reason))
			outcome.Status = OutcomeCompleted
			outcome.Reason = decision.Reason
			outcome.Steps = steps
			outcome.FinishedAt = time.Now().UTC()
			return outcome
		case DecisionFail:
			return fail(TagPlannerFail, decision.Reason)
		}

		step := Step{
			Index:   index,
			Summary: shorten(obs.Summary, 120),
			Action:  decision.Action,
			At:      time.Now().UTC(),
		}

		execErr := l.executor.Execute(ctx, *decision.Action)
		if execErr != nil {
			step.Result = StepResultError
			step.Err = execErr.Error()
			consecutiveFailures++
		} else {
			step.Result = StepResultSuccess
			consecutiveFailures = 0
		}
		steps = append(steps, step)
		l.emitStep(step)

		if execErr != nil && consecutiveFailures >= l.cfg.ConsecutiveFailureThreshold {
			return fail(TagActionExecutionExhausted, fmt.Sprintf("%d consecutive action failures", consecutiveFailures))
		}
		if execErr != nil && ctx.Err() != nil {
			return fail(TagTimeBudgetExceeded, "wall time budget elapsed during action execution")
		}

		if err := l.settle(ctx); err != nil {
			return fail(TagTimeBudgetExceeded, "wall time budget elapsed")
		}
	}
}

// capture invokes the perception adapter with bounded retries and
// exponential backoff. Every failed attempt emits one log event.
func (l *Loop) capture(ctx context.Context) (*Observation, error) {
	delay := BackoffExponential(l.cfg.Backoff)
	var lastErr error
	for attempt := 1; attempt <= l.cfg.PerceptionAttempts; attempt++ {
		obs, err := l.perceptor.Capture(ctx)
		if err == nil {
			return obs, nil
		}
		lastErr = err
		l.publish(fmt.Sprintf("[ERROR] perception failed (attempt %d/%d): %v", attempt, l.cfg.PerceptionAttempts, err))
		if l.logger != nil {
			l.logger.Warn("perception attempt failed", "attempt", attempt, "error", err)
		}
		if attempt == l.cfg.PerceptionAttempts {
			break
		}
		select {
		case <-time.After(delay(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("perception unavailable after %d attempts: %w", l.cfg.PerceptionAttempts, lastErr)
}

// plan asks the planner for the next decision, validating that any returned
// action is inside the vocabulary. One retry is allowed for a malformed
// plan; a second malformed plan is the caller's InvalidPlan failure.
func (l *Loop) plan(ctx context.Context, instruction string, obs *Observation, history []Step) (*Decision, error) {
	decision, err := l.planOnce(ctx, instruction, obs, history)
	if err == nil {
		return decision, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	l.publish(fmt.Sprintf("[WARN] planner returned an unusable plan, retrying once: %v", err))
	if l.logger != nil {
		l.logger.Warn("planning retry", "error", err)
	}
	return l.planOnce(ctx, instruction, obs, history)
}

func (l *Loop) planOnce(ctx context.Context, instruction string, obs *Observation, history []Step) (*Decision, error) {
	decision, err := l.planner.Plan(ctx, instruction, obs, history)
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, fmt.Errorf("%w: planner returned no decision", ErrMalformedPlan)
	}
	if decision.Kind == DecisionAct {
		if decision.Action == nil {
			return nil, fmt.Errorf("%w: act decision without an action", ErrMalformedPlan)
		}
		if err := decision.Action.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPlan, err)
		}
	}
	return decision, nil
}

func (l *Loop) emitStep(step Step) {
	result := step.Result
	if step.Err != "" {
		result = result + ": " + step.Err
	}
	l.publish(fmt.Sprintf("step %d: saw %q -> %s -> %s", step.Index, step.Summary, step.Action, result))
}

// settle gives the target application time to react before the next
// observation. Electron-style UIs repaint noticeably late.
func (l *Loop) settle(ctx context.Context) error {
	if l.cfg.SettleDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(l.cfg.SettleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) publish(text string) {
	if l.sink != nil {
		l.sink.Publish(text)
	}
}

// shorten truncates on a rune boundary so non-ASCII OCR text stays
// valid UTF-8.
func shorten(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
