package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/orderly-agent/orderly/internals/agent"
)

// donePhrases are the completion markers accepted in a plain-text model
// reply when no action call is present.
var donePhrases = []string{
	"task is complete",
	"task has been completed",
	"successfully completed",
	"task completed",
	"finished the task",
	"all steps have been completed",
	"verification complete and successful",
}

func textSignalsCompletion(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range donePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// planDocument is the JSON contract the gemini backend prompts for:
// exactly one of action / complete / fail per reply.
type planDocument struct {
	Action   *agent.Action `json:"action,omitempty"`
	Complete bool          `json:"complete,omitempty"`
	Fail     bool          `json:"fail,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// parseDecision turns a model reply into a decision. Code fences are
// stripped and broken JSON goes through jsonrepair before the reply is
// rejected as malformed.
func parseDecision(reply string) (*agent.Decision, error) {
	raw := stripCodeFence(reply)

	var doc planDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, fmt.Errorf("%w: %v", agent.ErrMalformedPlan, err)
		}
		if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", agent.ErrMalformedPlan, err)
		}
	}

	switch {
	case doc.Complete:
		return &agent.Decision{Kind: agent.DecisionComplete, Reason: doc.Reason}, nil
	case doc.Fail:
		return &agent.Decision{Kind: agent.DecisionFail, Reason: doc.Reason}, nil
	case doc.Action != nil:
		if err := doc.Action.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", agent.ErrMalformedPlan, err)
		}
		return &agent.Decision{Kind: agent.DecisionAct, Action: doc.Action, Reason: doc.Reason}, nil
	default:
		return nil, fmt.Errorf("%w: reply carries neither action nor terminal signal", agent.ErrMalformedPlan)
	}
}

// stripCodeFence removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		first := strings.TrimSpace(trimmed[:newline])
		if first == "" || isFenceTag(first) {
			trimmed = trimmed[newline+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
