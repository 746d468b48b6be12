package main

import (
	"fmt"
	"time"

	"github.com/germanamz/searchsmart/pkg/modeladapter/usage"
)

// statusBarModel shows token usage, timing and the session settings.
type statusBarModel struct {
	tracker    *usage.Tracker
	duration   time.Duration
	maxResults int
	turns      int
}

func (m statusBarModel) View() string {
	line := fmt.Sprintf(" results/search: %d · turns: %d", m.maxResults, m.turns)

	if m.tracker != nil {
		total := m.tracker.Total()
		if total.Total() > 0 {
			line += fmt.Sprintf(" · tokens: ↑%s ↓%s · calls: %d",
				fmtTokens(total.InputTokens),
				fmtTokens(total.OutputTokens),
				m.tracker.Count(),
			)
		}
	}

	if m.duration > 0 {
		line += " · " + fmtDuration(m.duration)
	}

	return statusStyle.Render(line)
}
