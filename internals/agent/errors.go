package agent

import "errors"

// FailureTag classifies why a task failed. Tags surface to clients through
// the task record and the final log events before the stream sentinel.
type FailureTag string

const (
	TagPerceptionUnavailable    FailureTag = "PerceptionUnavailable"
	TagInvalidPlan              FailureTag = "InvalidPlan"
	TagActionExecutionExhausted FailureTag = "ActionExecutionExhausted"
	TagStepBudgetExceeded       FailureTag = "StepBudgetExceeded"
	TagTimeBudgetExceeded       FailureTag = "TimeBudgetExceeded"
	TagPlannerFail              FailureTag = "PlannerFail"
)

// ErrMalformedPlan marks planner output that could not be turned into an
// in-vocabulary action. The loop retries planning once before failing the
// task with TagInvalidPlan.
var ErrMalformedPlan = errors.New("malformed plan")
