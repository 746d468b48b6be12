package main

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/germanamz/searchsmart/pkg/engine"
	"github.com/germanamz/searchsmart/pkg/modeladapter/usage"
	"github.com/germanamz/searchsmart/pkg/research"
)

// appState represents the application state machine.
type appState int

const (
	stateIdle appState = iota
	stateProcessing
)

// session is the part of engine.Session the TUI drives.
type session interface {
	ID() string
	Send(ctx context.Context, text string) (research.Answer, error)
	MaxResults() int
	Turns() int
}

// appModel is the root bubbletea model.
type appModel struct {
	ctx          context.Context
	sess         session
	events       *engine.EventBus
	inputBox     inputModel
	spinner      spinner.Model
	statusBar    statusBarModel
	state        appState
	progress     string
	cancelBridge context.CancelFunc
	width        int
	height       int
}

func newAppModel(ctx context.Context, sess session, events *engine.EventBus, tracker *usage.Tracker) appModel {
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle))

	return appModel{
		ctx:      ctx,
		sess:     sess,
		events:   events,
		inputBox: newInput(),
		spinner:  sp,
		statusBar: statusBarModel{
			tracker:    tracker,
			maxResults: sess.MaxResults(),
		},
		state: stateIdle,
	}
}

func (m appModel) Init() tea.Cmd {
	// Delay focusing the input so that stale terminal escape-sequence
	// responses (e.g. OSC 11 background-color) are drained first.
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return initDrainMsg{}
	})
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		initMarkdownRenderer(m.width - 4)
		m.inputBox.setWidth(m.width)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancelBridge != nil {
				m.cancelBridge()
			}
			return m, tea.Quit
		}

	case initDrainMsg:
		return m, m.inputBox.enable()

	case programReadyMsg:
		m.cancelBridge = startBridge(m.ctx, msg.program, m.sess.ID(), m.events)
		return m, nil

	case inputSubmitMsg:
		return m.handleSubmit(msg)

	case progressMsg:
		if text, ok := progressText(msg.event); ok {
			m.progress = text
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateProcessing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sendCompleteMsg:
		return m.handleSendComplete(msg)
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m appModel) handleSubmit(msg inputSubmitMsg) (tea.Model, tea.Cmd) {
	if m.state == stateProcessing {
		return m, nil
	}

	m.state = stateProcessing
	m.progress = "Thinking..."
	m.inputBox.disable()

	ctx, sess, text := m.ctx, m.sess, msg.text
	send := func() tea.Msg {
		start := time.Now()
		answer, err := sess.Send(ctx, text)
		return sendCompleteMsg{answer: answer, err: err, duration: time.Since(start)}
	}

	return m, tea.Batch(
		tea.Println(renderUserMessage(text)),
		m.spinner.Tick,
		send,
	)
}

func (m appModel) handleSendComplete(msg sendCompleteMsg) (tea.Model, tea.Cmd) {
	m.state = stateIdle
	m.progress = ""
	m.statusBar.duration = msg.duration
	m.statusBar.turns = m.sess.Turns()
	focus := m.inputBox.enable()

	if msg.err != nil {
		if m.ctx.Err() != nil {
			return m, focus
		}
		return m, tea.Batch(tea.Println(errorBlockStyle.Render("error: "+msg.err.Error())), focus)
	}

	return m, tea.Batch(tea.Println(renderAnswer(msg.answer, m.width)+"\n"), focus)
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var live string
	if m.state == stateProcessing {
		live = " " + m.spinner.View() + " " + spinnerStyle.Render(truncate(m.progress, max(m.width-4, 10)))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		live,
		m.inputBox.View(),
		m.statusBar.View(),
	)
}
