package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/orderly-agent/orderly/internals/timeouts"
	"github.com/orderly-agent/orderly/sdk"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)

// Run prompts for an instruction, submits it and follows the task log
// until the stream ends.
func Run(client *sdk.Client) error {
	instruction, submitted, err := runTaskForm()
	if err != nil {
		return err
	}
	if !submitted {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeouts.SecondShort)
	defer cancel()

	response, err := client.SubmitTask(ctx, instruction)
	if err != nil {
		return err
	}

	return runWatch(client, response.TaskID)
}

type taskFormModel struct {
	input     textinput.Model
	submitted bool
	cancelled bool
}

func runTaskForm() (string, bool, error) {
	model := newTaskFormModel()
	program := tea.NewProgram(model)
	result, err := program.Run()
	if err != nil {
		return "", false, err
	}
	finalModel, ok := result.(taskFormModel)
	if !ok {
		return "", false, nil
	}
	if finalModel.cancelled || !finalModel.submitted {
		return "", false, nil
	}
	instruction := strings.TrimSpace(finalModel.input.Value())
	if instruction == "" {
		return "", false, nil
	}
	return instruction, true, nil
}

func newTaskFormModel() taskFormModel {
	input := textinput.New()
	input.Prompt = "Task: "
	input.Placeholder = "e.g. register a new patient named John Smith"
	input.Focus()
	return taskFormModel{input: input}
}

func (m taskFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m taskFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m taskFormModel) View() string {
	lines := []string{
		titleStyle.Render("New task"),
		"",
		m.input.View(),
		"",
		dimStyle.Render("Enter: submit  Ctrl+C: cancel"),
	}
	return strings.Join(lines, "\n")
}

type logLineMsg string

type streamDoneMsg struct {
	err error
}

type watchModel struct {
	taskID   string
	viewport viewport.Model
	lines    []string
	events   <-chan string
	result   <-chan error
	finished bool
	err      error
	ready    bool
}

func runWatch(client *sdk.Client, taskID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan string, 64)
	result := make(chan error, 1)
	go func() {
		defer close(events)
		result <- client.StreamLogs(ctx, taskID, func(line string) {
			events <- line
		})
	}()

	model := watchModel{
		taskID:   taskID,
		viewport: viewport.New(80, 20),
		events:   events,
		result:   result,
	}

	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if finalModel, ok := final.(watchModel); ok && finalModel.err != nil {
		return finalModel.err
	}
	return nil
}

func (m watchModel) Init() tea.Cmd {
	return m.waitForLine()
}

func (m watchModel) waitForLine() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-m.events
		if !ok {
			return streamDoneMsg{err: <-m.result}
		}
		return logLineMsg(line)
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		if m.viewport.Height < 1 {
			m.viewport.Height = 1
		}
		m.ready = true
		m.refreshContent()
		return m, nil
	case logLineMsg:
		m.lines = append(m.lines, string(msg))
		m.refreshContent()
		return m, m.waitForLine()
	case streamDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *watchModel) refreshContent() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m watchModel) View() string {
	header := titleStyle.Render("orderly") + dimStyle.Render("  task "+m.taskID)

	footer := dimStyle.Render("q: quit")
	if m.finished {
		if m.err != nil {
			footer = errorStyle.Render("stream error: "+m.err.Error()) + "  " + dimStyle.Render("q: quit")
		} else {
			footer = doneStyle.Render("task finished") + "  " + dimStyle.Render("q: quit")
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		m.viewport.View(),
		"",
		footer,
	)
}
