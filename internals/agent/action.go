package agent

import (
	"fmt"
	"strings"
)

type ActionType string

// The action vocabulary is closed. Anything else coming back from a planner
// is a malformed plan.
const (
	ActionMovePointer    ActionType = "move_pointer"
	ActionClick          ActionType = "click"
	ActionScroll         ActionType = "scroll"
	ActionTypeText       ActionType = "type_text"
	ActionKeyCombination ActionType = "key_combination"
)

type Action struct {
	Type   ActionType `json:"type"`
	X      int        `json:"x,omitempty"`
	Y      int        `json:"y,omitempty"`
	Button string     `json:"button,omitempty"`
	DeltaX int        `json:"deltaX,omitempty"`
	DeltaY int        `json:"deltaY,omitempty"`
	Text   string     `json:"text,omitempty"`
	Keys   []string   `json:"keys,omitempty"`
}

func (a *Action) Validate() error {
	switch a.Type {
	case ActionMovePointer, ActionClick, ActionScroll:
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("action %s has negative coordinates (%d, %d)", a.Type, a.X, a.Y)
		}
		return nil
	case ActionTypeText:
		if a.Text == "" {
			return fmt.Errorf("type_text action has no text")
		}
		return nil
	case ActionKeyCombination:
		if len(a.Keys) == 0 {
			return fmt.Errorf("key_combination action has no keys")
		}
		return nil
	default:
		return fmt.Errorf("action type %q is outside the vocabulary", a.Type)
	}
}

// String renders a short human-readable form used in log events.
func (a Action) String() string {
	switch a.Type {
	case ActionMovePointer:
		return fmt.Sprintf("move_pointer(%d, %d)", a.X, a.Y)
	case ActionClick:
		button := a.Button
		if button == "" {
			button = "left"
		}
		return fmt.Sprintf("click(%d, %d, %s)", a.X, a.Y, button)
	case ActionScroll:
		return fmt.Sprintf("scroll(%d, %d, dx=%d, dy=%d)", a.X, a.Y, a.DeltaX, a.DeltaY)
	case ActionTypeText:
		return fmt.Sprintf("type_text(%q)", shorten(a.Text, 40))
	case ActionKeyCombination:
		return fmt.Sprintf("key_combination(%s)", strings.Join(a.Keys, "+"))
	default:
		return string(a.Type)
	}
}
