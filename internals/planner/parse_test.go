package planner

import (
	"errors"
	"testing"

	"github.com/orderly-agent/orderly/internals/agent"
)

func TestParseDecisionAction(t *testing.T) {
	decision, err := parseDecision(`{"action": {"type": "click", "x": 120, "y": 80, "button": "left"}}`)
	if err != nil {
		t.Fatalf("parseDecision: %v", err)
	}
	if decision.Kind != agent.DecisionAct {
		t.Fatalf("expected act, got %s", decision.Kind)
	}
	if decision.Action.Type != agent.ActionClick || decision.Action.X != 120 {
		t.Fatalf("unexpected action %+v", decision.Action)
	}
}

func TestParseDecisionCodeFence(t *testing.T) {
	reply := "```json\n{\"complete\": true, \"reason\": \"record saved\"}\n```"
	decision, err := parseDecision(reply)
	if err != nil {
		t.Fatalf("parseDecision: %v", err)
	}
	if decision.Kind != agent.DecisionComplete || decision.Reason != "record saved" {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestParseDecisionRepairsBrokenJSON(t *testing.T) {
	// Trailing comma and single quotes, the usual model damage.
	reply := `{'action': {'type': 'type_text', 'text': 'Hildegard',},}`
	decision, err := parseDecision(reply)
	if err != nil {
		t.Fatalf("expected jsonrepair to save the reply: %v", err)
	}
	if decision.Action.Text != "Hildegard" {
		t.Fatalf("unexpected action %+v", decision.Action)
	}
}

func TestParseDecisionFail(t *testing.T) {
	decision, err := parseDecision(`{"fail": true, "reason": "login wall"}`)
	if err != nil {
		t.Fatalf("parseDecision: %v", err)
	}
	if decision.Kind != agent.DecisionFail || decision.Reason != "login wall" {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestParseDecisionRejectsOutOfVocabulary(t *testing.T) {
	_, err := parseDecision(`{"action": {"type": "drag", "x": 1, "y": 1}}`)
	if !errors.Is(err, agent.ErrMalformedPlan) {
		t.Fatalf("expected ErrMalformedPlan, got %v", err)
	}
}

func TestParseDecisionRejectsEmptyDocument(t *testing.T) {
	_, err := parseDecision(`{"reason": "thinking about it"}`)
	if !errors.Is(err, agent.ErrMalformedPlan) {
		t.Fatalf("expected ErrMalformedPlan, got %v", err)
	}
}

func TestTextSignalsCompletion(t *testing.T) {
	if !textSignalsCompletion("The task has been completed and the record is visible.") {
		t.Fatal("expected completion phrase to match")
	}
	if textSignalsCompletion("I will now click the save button.") {
		t.Fatal("plain narration must not signal completion")
	}
}
