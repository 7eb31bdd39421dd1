package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const progressBarWidth = 30

// ProgressFunc reports that done of total units have finished; label names
// the unit that just completed.
type ProgressFunc func(label string, done, total int)

type actionMsg struct {
	details []string
	err     error
}

type progressMsg struct {
	label       string
	done, total int
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type model struct {
	title   string
	details []string
	err     error
	done    bool
	timeout time.Duration
	action  func(context.Context) ([]string, error)

	progress progressMsg
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		details, err := m.action(ctx)
		return actionMsg{details: details, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
	case progressMsg:
		m.progress = msg
	case actionMsg:
		m.details = msg.details
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	title := titleStyle.Render(m.title)
	if !m.done {
		if m.progress.total == 0 {
			return fmt.Sprintf("%s\n\nRunning...\n", title)
		}
		return fmt.Sprintf("%s\n\n%s\n%s\n", title, renderBar(m.progress.done, m.progress.total), dimStyle.Render(m.progress.label))
	}
	var b strings.Builder
	b.WriteString(title + "\n")
	if m.err != nil {
		fmt.Fprintf(&b, "%s: %v\n", failStyle.Render("FAILED"), m.err)
	} else {
		b.WriteString(okStyle.Render("OK") + "\n")
	}
	for _, d := range m.details {
		b.WriteString("- " + d + "\n")
	}
	return b.String()
}

func renderBar(done, total int) string {
	if total <= 0 {
		return ""
	}
	filled := done * progressBarWidth / total
	bar := okStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", progressBarWidth-filled))
	return fmt.Sprintf("%s %d/%d", bar, done, total)
}

func Run(title string, timeout time.Duration, action func(context.Context) ([]string, error)) ([]string, error) {
	return RunWithProgress(title, timeout, func(ctx context.Context, _ ProgressFunc) ([]string, error) {
		return action(ctx)
	})
}

// RunWithProgress runs action behind a bubbletea view that renders a
// progress bar from the updates action reports.
func RunWithProgress(title string, timeout time.Duration, action func(context.Context, ProgressFunc) ([]string, error)) ([]string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	var p *tea.Program
	report := func(label string, done, total int) {
		p.Send(progressMsg{label: label, done: done, total: total})
	}
	m := model{
		title:   title,
		timeout: timeout,
		action:  func(ctx context.Context) ([]string, error) { return action(ctx, report) },
	}
	p = tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	return res.details, res.err
}
