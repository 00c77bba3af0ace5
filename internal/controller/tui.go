package controller

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// CommandFunc executes one interactive shell line and returns the text to
// show. Returning tea-level control (quitting) is signalled with ErrExit.
type CommandFunc func(line string) (string, error)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Shell is the interactive session front end: a Bubble Tea prompt that
// forwards lines to a CommandFunc while scheduler events stream in between
// keystrokes.
type Shell struct {
	program *tea.Program
}

// NewShell builds the shell around the given command executor.
func NewShell(exec CommandFunc) *Shell {
	s := &Shell{}
	s.program = tea.NewProgram(newShellModel(exec))

	return s
}

// Run blocks until the user exits the shell.
func (s *Shell) Run() error {
	_, err := s.program.Run()

	return err
}

// OpStarted implements UI by streaming the event into the shell transcript.
func (s *Shell) OpStarted(op m.Operation) {
	s.program.Send(eventMsg(fmt.Sprintf("started  %s", op.Key())))
}

// OpFinished implements UI.
func (s *Shell) OpFinished(op m.Operation, err error, elapsed time.Duration) {
	if err != nil {
		s.program.Send(eventMsg(fmt.Sprintf("FAILED   %s: %v", op.Key(), err)))
		return
	}

	s.program.Send(eventMsg(fmt.Sprintf("finished %s (%s)", op.Key(), elapsed.Round(time.Millisecond))))
}

// DisplayReport implements UI.
func (s *Shell) DisplayReport(report *m.RunReport) {
	s.program.Send(eventMsg(RenderReport(report)))
}

// DisplayStatus implements UI.
func (s *Shell) DisplayStatus(state *m.State) {
	s.program.Send(eventMsg(RenderStatus(state)))
}

type eventMsg string

type resultMsg struct {
	output string
	err    error
	quit   bool
}

type shellModel struct {
	input      textinput.Model
	transcript []string
	exec       CommandFunc
}

func newShellModel(exec CommandFunc) shellModel {
	input := textinput.New()
	input.Prompt = promptStyle.Render("coldstage> ")
	input.Placeholder = "stage <path> | add-target <source> <path> | status | help | exit"
	input.Focus()

	return shellModel{
		input: input,
		exec:  exec,
		transcript: []string{
			"coldstage interactive session. Staged work runs as soon as it is runnable.",
		},
	}
}

// Init implements tea.Model.
func (sm shellModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (sm shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		sm.transcript = append(sm.transcript, eventStyle.Render(string(msg)))
		return sm, nil

	case resultMsg:
		if msg.err != nil {
			sm.transcript = append(sm.transcript, errorStyle.Render("error: "+msg.err.Error()))
		}

		if msg.output != "" {
			sm.transcript = append(sm.transcript, strings.TrimRight(msg.output, "\n"))
		}

		if msg.quit {
			return sm, tea.Quit
		}

		return sm, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return sm, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(sm.input.Value())
			sm.input.SetValue("")

			if line == "" {
				return sm, nil
			}

			sm.transcript = append(sm.transcript, promptStyle.Render("> ")+line)

			return sm, sm.runLine(line)
		}
	}

	var cmd tea.Cmd
	sm.input, cmd = sm.input.Update(msg)

	return sm, cmd
}

func (sm shellModel) runLine(line string) tea.Cmd {
	return func() tea.Msg {
		if isExit(line) {
			return resultMsg{output: "waiting for running operations...", quit: true}
		}

		output, err := sm.exec(line)

		return resultMsg{output: output, err: err}
	}
}

func isExit(line string) bool {
	switch strings.Fields(line)[0] {
	case "exit", "quit":
		return true
	}

	return false
}

// View implements tea.Model.
func (sm shellModel) View() string {
	var b strings.Builder

	// Keep the transcript bounded so long sessions do not grow the frame
	// without limit.
	const maxLines = 200

	lines := sm.transcript
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}

	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString(sm.input.View())
	b.WriteString("\n")

	return b.String()
}
