// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ThePhilAz/unique-benchmarking/config"
	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"github.com/ThePhilAz/unique-benchmarking/pkg/utils"
)

const (
	childIndentation = "    "
	parentIdx        = 0
)

// checkItem represents an item in a checklist.
type checkItem struct {
	label   string
	checked bool
}

// checklistModel is a model for an interactive checklist.
// The first item toggles all the others.
type checklistModel struct {
	uiIsReady bool
	title     string
	items     []checkItem
	cursor    int
	action    UserInputEvent
}

func newChecklistModel(title string, parentLabel string, labels []string) checklistModel {
	items := make([]checkItem, 0, len(labels)+1)
	items = append(items, checkItem{label: parentLabel, checked: true})
	for _, label := range labels {
		items = append(items, checkItem{label: label, checked: true})
	}
	return checklistModel{
		title:  title,
		items:  items,
		action: Continue,
	}
}

// selected returns the indices of the checked child items, counted from zero.
func (m checklistModel) selected() (indices []int) {
	for i, item := range m.items[parentIdx+1:] {
		if item.checked {
			indices = append(indices, i)
		}
	}
	return
}

func (m checklistModel) Init() tea.Cmd {
	return nil
}

func (m checklistModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.action = Exit
			return m, tea.Quit
		case "q", "esc":
			m.action = Quit
			return m, tea.Quit
		case "enter":
			m.action = Continue
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case " ":
			m.items = append([]checkItem(nil), m.items...)
			m.items[m.cursor].checked = !m.items[m.cursor].checked
			if m.cursor == parentIdx {
				for i := range m.items {
					m.items[i].checked = m.items[parentIdx].checked
				}
			} else {
				allChecked := true
				for _, item := range m.items[parentIdx+1:] {
					allChecked = allChecked && item.checked
				}
				m.items[parentIdx].checked = allChecked
			}
		}

	case tea.WindowSizeMsg:
		m.uiIsReady = true
	}
	return m, nil
}

func (m checklistModel) View() string {
	if !m.uiIsReady {
		return initializingMsg
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Margin(0, 0, 1, 0)
	s.WriteString(titleStyle.Render(m.title) + "\n")

	for i, item := range m.items {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		checked := "[ ]"
		if item.checked {
			checked = "[x]"
		}

		line := fmt.Sprintf("%s %s %s", cursor, checked, item.label)
		if i != parentIdx {
			line = childIndentation + line
		}

		if i == m.cursor {
			line = lipgloss.NewStyle().Foreground(lipgloss.Color(highlightColor)).Render(line)
		} else if i == parentIdx {
			line = lipgloss.NewStyle().Bold(true).Render(line)
		}

		s.WriteString(line + "\n")
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(helpTextColor)).Margin(1, 0, 0, 0)
	s.WriteString(helpStyle.Render("↑/↓: navigate • space: toggle • enter: confirm • q/esc: cancel • ctrl+c: exit"))

	return s.String()
}

func runChecklist(model checklistModel) (checklistModel, error) {
	if err := requireTerminal(); err != nil {
		return model, err
	}
	return runScreen(model, strings.ToLower(model.title))
}

// DisplayAssistantPicker displays a terminal UI for choosing which assistants the experiment targets.
// It returns the selected user action and an error if the selection fails.
// This function modifies the provided experiment configuration directly.
func DisplayAssistantPicker(cfg *config.ExperimentConfig) (UserInputEvent, error) {
	assistantIDs := cfg.AssistantIDs.Values()
	checklist, err := runChecklist(newChecklistModel("Select Assistants", "All Assistants", assistantIDs))
	if err != nil {
		return Exit, err
	}
	if checklist.action == Continue {
		applyAssistantSelection(cfg, assistantIDs, checklist.selected())
	}
	return checklist.action, nil // if dialog canceled, return without changes
}

// DisplayQuestionPicker displays a terminal UI for choosing which questions the experiment asks.
// It returns the selected user action and an error if the selection fails.
// This function modifies the provided experiment configuration directly.
func DisplayQuestionPicker(cfg *config.ExperimentConfig) (UserInputEvent, error) {
	labels := make([]string, 0, len(cfg.Questions))
	for _, question := range cfg.Questions {
		labels = append(labels, logging.FormatLogPreview(question))
	}
	checklist, err := runChecklist(newChecklistModel("Select Questions", "All Questions", labels))
	if err != nil {
		return Exit, err
	}
	if checklist.action == Continue {
		applyQuestionSelection(cfg, checklist.selected())
	}
	return checklist.action, nil
}

func applyAssistantSelection(cfg *config.ExperimentConfig, assistantIDs []string, selected []int) {
	kept := make([]string, 0, len(selected))
	for _, i := range selected {
		kept = append(kept, assistantIDs[i])
	}
	cfg.AssistantIDs = utils.NewStringSet(kept...)
}

func applyQuestionSelection(cfg *config.ExperimentConfig, selected []int) {
	kept := make([]string, 0, len(selected))
	for _, i := range selected {
		kept = append(kept, cfg.Questions[i])
	}
	cfg.Questions = kept
}
