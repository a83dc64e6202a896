package agent

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestActionValidate(t *testing.T) {
	cases := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"click", Action{Type: ActionClick, X: 10, Y: 20}, false},
		{"move", Action{Type: ActionMovePointer, X: 0, Y: 0}, false},
		{"scroll", Action{Type: ActionScroll, X: 5, Y: 5, DeltaY: -120}, false},
		{"type", Action{Type: ActionTypeText, Text: "Hildegard Meier"}, false},
		{"keys", Action{Type: ActionKeyCombination, Keys: []string{"ctrl", "s"}}, false},
		{"negative coords", Action{Type: ActionClick, X: -1, Y: 20}, true},
		{"empty text", Action{Type: ActionTypeText}, true},
		{"no keys", Action{Type: ActionKeyCombination}, true},
		{"unknown type", Action{Type: "double_tap", X: 1, Y: 1}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.action.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error for %+v", tc.action)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestActionString(t *testing.T) {
	if got := (Action{Type: ActionClick, X: 120, Y: 80}).String(); got != "click(120, 80, left)" {
		t.Fatalf("click: got %q", got)
	}
	if got := (Action{Type: ActionKeyCombination, Keys: []string{"ctrl", "p"}}).String(); got != "key_combination(ctrl+p)" {
		t.Fatalf("keys: got %q", got)
	}
	long := Action{Type: ActionTypeText, Text: "this instruction text is far longer than forty characters total"}
	if got := long.String(); got != `type_text("this instruction text is far longer than...")` {
		t.Fatalf("truncation: got %q", got)
	}
}

func TestShortenKeepsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("ü", 30)
	got := shorten(text, 41)
	if !utf8.ValidString(got) {
		t.Fatalf("shortened text is not valid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if got != strings.Repeat("ü", 20)+"..." {
		t.Fatalf("expected cut before the split rune, got %q", got)
	}
}

func TestActionStringTypeTextNonASCII(t *testing.T) {
	action := Action{Type: ActionTypeText, Text: strings.Repeat("Ärzteübersicht ", 5)}
	if got := action.String(); !utf8.ValidString(got) {
		t.Fatalf("rendered action is not valid UTF-8: %q", got)
	}
}
