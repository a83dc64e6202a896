package perception

import (
	"fmt"
	"strings"

	"github.com/orderly-agent/orderly/internals/agent"
)

// lineThreshold is the vertical distance (px) at which two word boxes are
// considered part of the same screen line. Tesseract emits one box per word
// even for multi-word buttons and labels.
const lineThreshold = 20

type line struct {
	text       string
	centerX    int
	centerY    int
	confidence int
}

// groupLines merges word boxes into screen lines by y-proximity, in the
// order the backend reported them. Each line gets the average center and
// confidence of its words, so a click on the line lands mid-label.
func groupLines(words []agent.Element) []line {
	if len(words) == 0 {
		return nil
	}

	var groups [][]agent.Element
	var current []agent.Element
	lastY := -1

	for _, word := range words {
		if lastY >= 0 && abs(word.Y-lastY) > lineThreshold {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = nil
		}
		current = append(current, word)
		lastY = word.Y
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	lines := make([]line, 0, len(groups))
	for _, group := range groups {
		var texts []string
		sumX, sumY, sumConf := 0, 0, 0
		for _, word := range group {
			texts = append(texts, word.Text)
			sumX += word.CenterX
			sumY += word.CenterY
			sumConf += word.Confidence
		}
		n := len(group)
		lines = append(lines, line{
			text:       strings.Join(texts, " "),
			centerX:    sumX / n,
			centerY:    sumY / n,
			confidence: sumConf / n,
		})
	}
	return lines
}

// Summarize renders located text into the prompt block the planner sees:
// one "'text' at (x, y) [conf%]" entry per screen line.
func Summarize(words []agent.Element) string {
	if len(words) == 0 {
		return "OCR DATA: No text detected"
	}

	var b strings.Builder
	b.WriteString("OCR DETECTED TEXT (with precise coordinates):\n")
	b.WriteString("Format: 'text' at (center_x, center_y) [confidence%]\n\n")
	for _, l := range groupLines(words) {
		fmt.Fprintf(&b, "'%s' at (%d, %d) [%d%%]\n", l.text, l.centerX, l.centerY, l.confidence)
	}
	fmt.Fprintf(&b, "\nTotal: %d words detected\n", len(words))
	b.WriteString("TIP: Use OCR coordinates for clicking text/buttons for maximum accuracy!")
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
