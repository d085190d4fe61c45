// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/runners"
)

const (
	padding             = 2
	viewportBorderColor = "62"
	minViewportHeight   = 5
)

// progressSource is the part of a running experiment the monitor observes.
type progressSource interface {
	ExperimentID() string
	ProgressEvents() <-chan float32
	MessageEvents() <-chan string
	Progress() (completed int, total int)
	Results() runners.Results
}

// progressModel represents the model for interactive experiment progress monitoring.
type progressModel struct {
	uiIsReady       bool
	progressBar     progress.Model // component for displaying progress
	viewport        viewport.Model // component for displaying scrollable messages
	run             progressSource
	progressPercent float64
	statusCounts    map[runners.Status]int
	messages        *ConsoleBuffer
	action          UserInputEvent
}

// progressMsg represents a UI event for task progress update.
// The value is between 0.0 and 1.0.
type progressMsg float32

// messageMsg represents a UI event carrying a new log message from the run.
type messageMsg string

func newProgressModel(consoleBuffer *ConsoleBuffer, run progressSource) progressModel {
	return progressModel{
		messages:        consoleBuffer,
		run:             run,
		progressPercent: 0.0,
		action:          Continue,
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		waitForProgress(m.run.ProgressEvents()),
		waitForMessage(m.run.MessageEvents()),
	)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.action = Exit
			return m, tea.Quit
		case "q", "esc":
			m.action = Quit
			return m, tea.Quit
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	case tea.WindowSizeMsg:
		titleHeight := 2    // title + spacing
		progressHeight := 5 // progress stats + status counts + progress bar + spacing
		helpHeight := 2     // help text + spacing
		borderHeight := 2   // viewport border
		totalReservedHeight := titleHeight + progressHeight + helpHeight + borderHeight + 2*padding

		viewportHeight := max(msg.Height-totalReservedHeight, minViewportHeight)
		componentWidth := msg.Width - 2*padding

		if !m.uiIsReady {
			m.progressBar = progress.New(
				progress.WithDefaultGradient(),
				progress.WithWidth(componentWidth),
			)

			m.viewport = viewport.New(componentWidth, viewportHeight)
			m.viewport.Style = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(viewportBorderColor)).
				PaddingRight(padding)
			m.viewport.SetContent(m.messages.String())
			m.uiIsReady = true
		} else {
			m.viewport.Width = componentWidth
			m.viewport.Height = viewportHeight
			m.progressBar.Width = componentWidth
		}

		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

	case progressMsg:
		m.progressPercent = float64(msg)
		m.statusCounts = countByStatus(m.run.Results())
		cmds = append(cmds, m.progressBar.SetPercent(m.progressPercent))
		cmds = append(cmds, waitForProgress(m.run.ProgressEvents()))

	case messageMsg:
		if m.uiIsReady {
			m.viewport.SetContent(m.messages.String()) // read all current messages directly from the buffer
			m.viewport.GotoBottom()
		}
		cmds = append(cmds, waitForMessage(m.run.MessageEvents()))

	case progress.FrameMsg:
		updated, cmd := m.progressBar.Update(msg)
		m.progressBar = updated.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m progressModel) View() string {
	if !m.uiIsReady {
		return initializingMsg
	}

	var s strings.Builder

	s.WriteString(lipgloss.NewStyle().Bold(true).Render("Experiment " + m.run.ExperimentID()))
	s.WriteString("\n\n")

	completed, total := m.run.Progress()
	s.WriteString(fmt.Sprintf("Progress: %d/%d tests (%.1f%%)\n", completed, total, m.progressPercent*100.0))
	s.WriteString(fmt.Sprintf("%s: %d • %s: %d • %s: %d\n\n",
		runners.Success, m.statusCounts[runners.Success],
		runners.Error, m.statusCounts[runners.Error],
		runners.Timeout, m.statusCounts[runners.Timeout]))

	s.WriteString(m.progressBar.View())
	s.WriteString("\n\n")

	s.WriteString(m.viewport.View())
	s.WriteString("\n\n")

	helpText := lipgloss.NewStyle().Foreground(lipgloss.Color(helpTextColor)).Render(
		"↑/↓: scroll log • q/esc: close • ctrl+c: exit",
	)
	s.WriteString(helpText)

	return lipgloss.NewStyle().Padding(1, 2).Render(s.String())
}

func countByStatus(results runners.Results) map[runners.Status]int {
	counts := make(map[runners.Status]int)
	for _, assistantResults := range results {
		for _, result := range assistantResults {
			counts[result.Status]++
		}
	}
	return counts
}

func waitForProgress(progressEvents <-chan float32) tea.Cmd {
	return func() tea.Msg {
		if progressEvents == nil {
			return nil
		}
		progress, ok := <-progressEvents
		if !ok {
			return tea.Quit() // channel closed
		}
		return progressMsg(progress)
	}
}

func waitForMessage(messageEvents <-chan string) tea.Cmd {
	return func() tea.Msg {
		if messageEvents == nil {
			return nil
		}
		message, ok := <-messageEvents
		if !ok {
			return tea.Quit() // channel closed
		}
		return messageMsg(message)
	}
}

// NewTaskMonitor initializes and returns a TaskMonitor.
// It accepts a pointer to a console buffer where an external logger writes during the experiment.
// The TaskMonitor reads directly from this buffer to update the UI console component.
func NewTaskMonitor(runner runners.Runner, console *ConsoleBuffer) *TaskMonitor {
	return &TaskMonitor{
		runner:  runner,
		console: console,
	}
}

// TaskMonitor represents an interactive terminal UI for monitoring an experiment.
// It displays real-time progress, logs, and handles user input during the run.
type TaskMonitor struct {
	runner  runners.Runner
	console *ConsoleBuffer
}

// Run starts the experiment and displays its progress and logs until it finishes or the user leaves.
// It returns the user action and the running experiment.
func (t *TaskMonitor) Run(ctx context.Context, cfg config.ExperimentConfig) (userAction UserInputEvent, run *runners.AsyncRun, err error) {
	if err := requireTerminal(); err != nil {
		return Exit, nil, err
	}

	run, err = t.runner.Start(ctx, cfg)
	if err != nil {
		return Exit, nil, err
	}

	finalModel, err := runScreen(newProgressModel(t.console, run), "progress monitor")
	if err != nil {
		return Exit, run, err
	}
	return finalModel.action, run, nil
}
