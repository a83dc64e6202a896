package planner

import "fmt"

// initialPrompt frames the task for the first planning turn. The OCR
// summary rides along so the model can click on exact text coordinates
// instead of estimating from the screenshot.
func initialPrompt(instruction, summary string) string {
	prompt := fmt.Sprintf(`You are an expert agent controlling a hospital information system UI through visual observation and automated actions.

=== YOUR TASK ===
%s

=== RULES ===
- Coordinates are pixels, (0, 0) top-left. Aim for the CENTER of UI elements.
- Input fields usually sit 20-50 pixels BELOW their label. Click below the label, never on it.
- Prefer the OCR coordinates over visual estimation when clicking text, buttons or links.
- After typing, verify the text actually appears before moving on.
- Do not declare the task complete until the WHOLE task is done and a success confirmation is visible.`, instruction)
	if summary != "" {
		prompt += "\n\n" + summary
	}
	return prompt
}

// continuationPrompt follows every executed action, pushing the model to
// keep acting until the whole task is verifiably done.
func continuationPrompt(summary string) string {
	prompt := `Action completed. Here is the updated screen state.`
	if summary != "" {
		prompt += "\n\n" + summary
	}
	prompt += `

Before returning NO action (which ends the task), verify that the COMPLETE task has been executed, a success confirmation is visible, and no error messages are present. If any of that is not true, continue with the next action.

What is your NEXT ACTION?`
	return prompt
}

// geminiPrompt states the strict JSON action contract for the gemini
// backend, which has no native computer-use tool.
func geminiPrompt(instruction, summary string) string {
	prompt := fmt.Sprintf(`You are an expert agent controlling a hospital information system UI. Decide the single next input action.

=== YOUR TASK ===
%s

Reply with ONE JSON object and nothing else, in exactly one of these forms:
  {"action": {"type": "move_pointer", "x": 0, "y": 0}}
  {"action": {"type": "click", "x": 0, "y": 0, "button": "left"}}
  {"action": {"type": "scroll", "x": 0, "y": 0, "deltaX": 0, "deltaY": 0}}
  {"action": {"type": "type_text", "text": "..."}}
  {"action": {"type": "key_combination", "keys": ["ctrl", "s"]}}
  {"complete": true, "reason": "..."}
  {"fail": true, "reason": "..."}

Coordinates are pixels, (0, 0) top-left. Aim for the CENTER of UI elements; input fields sit 20-50 pixels below their label. Use the OCR coordinates when given. Declare complete only when the whole task is done and a success confirmation is visible. Declare fail only when the task cannot proceed at all.`, instruction)
	if summary != "" {
		prompt += "\n\n" + summary
	}
	return prompt
}
