// Package progress shows status updates while a long operation runs: a
// bubbletea spinner on terminals, plain lines elsewhere.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// UpdateFunc reports a new status line.
type UpdateFunc func(status string)

// Options configures Run.
type Options struct {
	// Out receives the spinner or the status lines (usually stderr).
	Out io.Writer
	// Interactive selects the spinner.
	Interactive bool
	// Title is shown before the first update.
	Title string
}

type statusMsg string

type doneMsg struct{}

type model struct {
	spinner spinner.Model
	status  string
	done    bool
}

func newModel(title string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return model{spinner: s, status: title}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Interrupt
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m model) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.status + "\n"
}

// Run calls fn and shows its updates until it returns. On a terminal, an
// interrupt cancels the context passed to fn; Run still waits for fn.
func Run(ctx context.Context, opts Options, fn func(ctx context.Context, update UpdateFunc)) error {
	if !opts.Interactive || opts.Out == nil {
		update := func(status string) {
			if opts.Out != nil {
				_, _ = fmt.Fprintln(opts.Out, status)
			}
		}
		fn(ctx, update)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(opts.Title),
		tea.WithContext(ctx),
		tea.WithOutput(opts.Out),
		tea.WithInput(nil),
	)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		fn(ctx, func(status string) { p.Send(statusMsg(status)) })
		p.Send(doneMsg{})
	}()

	_, err := p.Run()
	if err != nil {
		cancel()
	}
	<-finished

	if errors.Is(err, tea.ErrInterrupted) {
		return context.Canceled
	}
	return err
}
