package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/tensor-bridge/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// historySize bounds the entries shown above the prompt.
const historySize = 8

var errNotTerminal = errors.New("repl needs an interactive terminal")

func newReplCmd() *cobra.Command {
	var (
		f      engineFlags
		tagged bool
	)
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Forward JSON input lines interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return errNotTerminal
			}
			return runInteractive(cmd.Context(), f, tagged)
		},
	}
	addEngineFlags(cmd, &f)
	cmd.Flags().BoolVar(&tagged, "tagged", false, "lines use the tagged JSON form")
	return cmd
}

type entry struct {
	err    error
	input  string
	output string
}

type interactiveModel struct {
	ctx     context.Context
	err     error
	rt      *runtime.Runtime
	module  *runtime.Module
	flags   engineFlags
	input   textinput.Model
	history []entry
	recall  int
	tagged  bool
	busy    bool
}

type loadedMsg struct {
	err error
	rt  *runtime.Runtime
	mod *runtime.Module
}

type forwardResultMsg struct {
	entry entry
}

func newInteractiveModel(ctx context.Context, f engineFlags, tagged bool) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = `[1, "text", [0.5, 0.25]]`
	ti.Prompt = promptStyle.Render("inputs> ")
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{
		ctx:    ctx,
		flags:  f,
		input:  ti,
		tagged: tagged,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.loadModel, textinput.Blink)
}

func (m *interactiveModel) loadModel() tea.Msg {
	rt, err := newRuntime(m.ctx, m.flags)
	if err != nil {
		return loadedMsg{err: err}
	}
	mod, err := rt.Load(m.ctx, m.flags.model)
	if err != nil {
		rt.Close(m.ctx)
		return loadedMsg{err: err}
	}
	return loadedMsg{rt: rt, mod: mod}
}

func (m *interactiveModel) forward(line string) tea.Cmd {
	mod, ctx, tagged := m.module, m.ctx, m.tagged
	return func() tea.Msg {
		e := entry{input: line}
		result, err := forwardLine(ctx, mod, line, tagged)
		if err != nil {
			e.err = err
			return forwardResultMsg{entry: e}
		}
		out, err := json.Marshal(result)
		if err != nil {
			e.err = err
			return forwardResultMsg{entry: e}
		}
		e.output = string(out)
		return forwardResultMsg{entry: e}
	}
}

func (m *interactiveModel) close() {
	if m.rt != nil {
		m.rt.Close(m.ctx)
		m.rt = nil
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy || m.module == nil {
				return m, nil
			}
			m.busy = true
			m.input.SetValue("")
			return m, m.forward(line)

		case "up":
			if m.recall < len(m.history) {
				m.recall++
				m.input.SetValue(m.history[len(m.history)-m.recall].input)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall > 0 {
				m.recall--
				if m.recall == 0 {
					m.input.SetValue("")
				} else {
					m.input.SetValue(m.history[len(m.history)-m.recall].input)
				}
				m.input.CursorEnd()
			}
			return m, nil
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.module = msg.mod
		return m, nil

	case forwardResultMsg:
		m.busy = false
		m.recall = 0
		m.history = append(m.history, msg.entry)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit.", m.err))
	}
	if m.module == nil {
		return "Loading model..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("tensor-bridge"))
	b.WriteString(" ")
	b.WriteString(m.flags.model)
	b.WriteString("\n\n")

	start := max(0, len(m.history)-historySize)
	for _, e := range m.history[start:] {
		b.WriteString(promptStyle.Render("> " + e.input))
		b.WriteString("\n")
		if e.err != nil {
			b.WriteString(errorStyle.Render(e.err.Error()))
		} else {
			b.WriteString(resultStyle.Render(e.output))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	if m.busy {
		b.WriteString(helpStyle.Render("  running..."))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter forward • ↑/↓ history • esc quit"))
	return b.String()
}

func runInteractive(ctx context.Context, f engineFlags, tagged bool) error {
	m := newInteractiveModel(ctx, f, tagged)
	defer m.close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
