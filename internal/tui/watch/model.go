// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch implements the bubbletea view behind `runloom watch`: a
// poll-and-redraw display of one run's pipeline and step status, colored
// by tracker.Status.
package watch

import (
	"context"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runloom/runloom/internal/tracker"
)

// PollInterval matches the run controller's own poll cadence so the
// watcher never lags the tracker by more than one cycle.
const PollInterval = 250 * time.Millisecond

// PollMsg triggers a data fetch.
type PollMsg struct{}

// StepRow is one step's display row.
type StepRow struct {
	UUID   string
	Status tracker.Status
}

// DataMsg carries one fetch's worth of run state.
type DataMsg struct {
	PipelineStatus tracker.Status
	Steps          []StepRow
}

// Fetcher fetches the latest run state. Returning an error leaves the
// previously displayed state in place.
type Fetcher func(ctx context.Context) (*DataMsg, error)

// Model is the watch screen.
type Model struct {
	taskID  string
	fetcher Fetcher
	ctx     context.Context
	cancel  context.CancelFunc

	pipelineStatus tracker.Status
	steps          []StepRow
	quitting       bool
	err            error
}

// New creates a watch Model for taskID, polling via fetcher.
func New(taskID string, fetcher Fetcher) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		taskID:         taskID,
		fetcher:        fetcher,
		ctx:            ctx,
		cancel:         cancel,
		pipelineStatus: tracker.StatusPending,
	}
}

func (m Model) Init() tea.Cmd {
	return pollTick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			m.quitting = true
			return m, tea.Quit
		}

	case PollMsg:
		if m.pipelineStatus.IsTerminal() {
			return m, nil
		}
		if m.fetcher != nil {
			if data, err := m.fetcher(m.ctx); err != nil {
				m.err = err
			} else if data != nil {
				m.err = nil
				m.pipelineStatus = data.PipelineStatus
				m.steps = data.Steps
			}
		}
		if m.pipelineStatus.IsTerminal() {
			return m, tea.Quit
		}
		return m, pollTick()
	}

	return m, nil
}

func pollTick() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg {
		return PollMsg{}
	})
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	statusStyles = map[tracker.Status]lipgloss.Style{
		tracker.StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("239")),
		tracker.StatusStarted: lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		tracker.StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
		tracker.StatusFailure: lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		tracker.StatusAborted: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

func styleFor(s tracker.Status) lipgloss.Style {
	if style, ok := statusStyles[s]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b []string
	b = append(b, headerStyle.Render(fmt.Sprintf("run %s", m.taskID)))
	b = append(b, fmt.Sprintf("pipeline: %s", styleFor(m.pipelineStatus).Render(string(m.pipelineStatus))))
	b = append(b, "")

	steps := append([]StepRow(nil), m.steps...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].UUID < steps[j].UUID })
	for _, s := range steps {
		b = append(b, fmt.Sprintf("  %-36s  %s", s.UUID, styleFor(s.Status).Render(string(s.Status))))
	}

	if m.err != nil {
		b = append(b, "", dimStyle.Render(fmt.Sprintf("last fetch error: %v", m.err)))
	}
	b = append(b, "", dimStyle.Render("press q to quit"))

	out := ""
	for i, line := range b {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

// PipelineStatus returns the last-observed pipeline status, for use
// after the program exits.
func (m Model) PipelineStatus() tracker.Status {
	return m.pipelineStatus
}
