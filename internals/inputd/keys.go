package inputd

import "strings"

// keyAliases folds the key names planners emit into the canonical names
// the input daemon understands. German layouts say "strg", browsers say
// "ArrowUp", models say whatever they feel like.
var keyAliases = map[string]string{
	"strg":       "ctrl",
	"ctrl":       "ctrl",
	"control":    "ctrl",
	"cmd":        "cmd",
	"command":    "cmd",
	"super":      "cmd",
	"alt":        "alt",
	"option":     "option",
	"shift":      "shift",
	"enter":      "enter",
	"return":     "enter",
	"space":      "space",
	"tab":        "tab",
	"backspace":  "backspace",
	"delete":     "delete",
	"esc":        "esc",
	"escape":     "esc",
	"arrowup":    "up",
	"arrowdown":  "down",
	"arrowleft":  "left",
	"arrowright": "right",
	"up":         "up",
	"down":       "down",
	"left":       "left",
	"right":      "right",
}

// NormalizeKey maps one key name to its canonical form. Unknown names
// pass through lowercased so plain letter keys keep working.
func NormalizeKey(key string) string {
	lower := strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := keyAliases[lower]; ok {
		return canonical
	}
	return lower
}

// NormalizeKeys maps a whole combination.
func NormalizeKeys(keys []string) []string {
	normalized := make([]string, len(keys))
	for i, key := range keys {
		normalized[i] = NormalizeKey(key)
	}
	return normalized
}
