// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

// Package tui provides the assistant and question pickers and the live progress
// monitor of the uniquebench CLI.
package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
)

const (
	highlightColor  = "170" // pink/magenta
	helpTextColor   = "240" // gray
	initializingMsg = "Preparing experiment view..."
)

var (
	// ErrInteractiveMode wraps every failure of an interactive screen.
	ErrInteractiveMode = errors.New("interactive mode error")

	// ErrTerminalRequired is returned when a picker or the progress monitor
	// is opened while the output is not a terminal.
	ErrTerminalRequired = errors.New("interactive mode requires a terminal environment")
)

// UserInputEvent is the way the user left an interactive screen.
type UserInputEvent int

const (
	// Exit stops the benchmark run altogether.
	Exit UserInputEvent = iota
	// Quit closes the screen; the experiment keeps running or proceeds with the previous selection.
	Quit
	// Continue proceeds with the current selection or keeps watching until the experiment finishes.
	Continue
)

// IsTerminal reports whether the current output is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(os.Stdout.Fd())
}

func requireTerminal() error {
	if !IsTerminal() {
		return fmt.Errorf("%w: %w", ErrInteractiveMode, ErrTerminalRequired)
	}
	return nil
}

// runScreen shows model on the alternate screen until the user leaves it.
func runScreen[M tea.Model](model M, screen string) (M, error) {
	finalModel, err := tea.NewProgram(model, tea.WithAltScreen()).Run() // blocking call
	if err != nil {
		return model, fmt.Errorf("%w: %s: %v", ErrInteractiveMode, screen, err)
	}
	return finalModel.(M), nil
}

// ConsoleBuffer collects the log output of a running experiment for the progress monitor.
// It is safe for concurrent use.
type ConsoleBuffer struct {
	sync.RWMutex
	buffer strings.Builder
}

// Write appends p to the buffer.
func (cb *ConsoleBuffer) Write(p []byte) (int, error) {
	cb.Lock()
	defer cb.Unlock()
	return cb.buffer.Write(p)
}

// String returns everything written so far.
func (cb *ConsoleBuffer) String() string {
	cb.RLock()
	defer cb.RUnlock()
	return cb.buffer.String()
}
