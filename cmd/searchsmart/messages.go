package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/searchsmart/pkg/research"
)

// inputSubmitMsg carries the text the user submitted from the input box.
type inputSubmitMsg struct {
	text string
}

// sendCompleteMsg is returned by the tea.Cmd that calls sess.Send.
type sendCompleteMsg struct {
	answer   research.Answer
	err      error
	duration time.Duration
}

// progressMsg delivers a research progress event from the bridge goroutine.
type progressMsg struct {
	event research.Event
}

// programReadyMsg passes the *tea.Program to the model so it can start the
// bridge goroutine.
type programReadyMsg struct {
	program *tea.Program
}

// initDrainMsg fires after a short delay so that stale terminal responses
// (e.g. OSC 11 background-color replies) are discarded before focusing input.
type initDrainMsg struct{}
