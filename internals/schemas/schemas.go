package schemas

import (
	z "github.com/Oudwins/zog"
)

type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

type TaskSubmitRequest struct {
	Task string `json:"task" zog:"task"`
}

var TaskSubmitSchema = z.Struct(z.Shape{
	"Task": z.String().Required().Trim(),
})

type StepPayload struct {
	Index   int    `json:"index"`
	Summary string `json:"summary,omitempty"`
	Action  string `json:"action"`
	Detail  string `json:"detail,omitempty"`
	Result  string `json:"result"`
	Error   string `json:"error,omitempty"`
	At      string `json:"at"`
}

type TaskResponse struct {
	TaskID      string        `json:"taskId"`
	Instruction string        `json:"instruction"`
	Status      TaskStatus    `json:"status"`
	FailureTag  string        `json:"failureTag,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   string        `json:"createdAt"`
	StartedAt   string        `json:"startedAt,omitempty"`
	FinishedAt  string        `json:"finishedAt,omitempty"`
	Steps       []StepPayload `json:"steps,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
