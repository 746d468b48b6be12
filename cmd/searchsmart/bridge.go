package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/searchsmart/pkg/engine"
	"github.com/germanamz/searchsmart/pkg/research"
)

// startBridge forwards the session's progress events to the program. The
// goroutine only calls p.Send and never touches model state. The returned
// function stops it and waits for it to exit.
func startBridge(ctx context.Context, p *tea.Program, sessionID string, events *engine.EventBus) context.CancelFunc {
	bridgeCtx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	sub := events.Subscribe(64)

	wg.Go(func() {
		defer events.Unsubscribe(sub)
		for {
			select {
			case <-bridgeCtx.Done():
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if ev.SessionID != sessionID || ev.Kind != engine.EventProgress {
					continue
				}
				if re, ok := ev.Data.(research.Event); ok {
					p.Send(progressMsg{event: re})
				}
			}
		}
	})

	return func() {
		cancel()
		wg.Wait()
	}
}
