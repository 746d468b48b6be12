package modeladapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/chats/role"
	"github.com/germanamz/searchsmart/pkg/modeladapter/usage"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCompleter struct {
	tracker usage.Tracker
	errs    []error
	calls   int
}

func (s *scriptedCompleter) Complete(context.Context, *chat.Chat, []toolbox.Tool) (message.Message, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return message.Message{}, err
		}
	}
	return message.NewText("assistant", role.Assistant, "ok"), nil
}

func (s *scriptedCompleter) UsageTracker() *usage.Tracker { return &s.tracker }

// recordSleeps replaces the sleeper with one that records durations and
// returns immediately.
func recordSleeps(r *RateLimitedCompleter) *[]time.Duration {
	var slept []time.Duration
	r.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	r.randFunc = func() float64 { return 0.5 } // no jitter
	return &slept
}

func TestRateLimited_Passthrough(t *testing.T) {
	inner := &scriptedCompleter{}
	r := NewRateLimitedCompleter(inner, RateLimitOpts{})
	slept := recordSleeps(r)

	msg, err := r.Complete(context.Background(), chat.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.TextContent())
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, *slept)
}

func TestRateLimited_RetriesOn429(t *testing.T) {
	inner := &scriptedCompleter{errs: []error{&RateLimitError{}, &RateLimitError{RetryAfter: 10 * time.Second}}}
	r := NewRateLimitedCompleter(inner, RateLimitOpts{BaseDelay: time.Second})
	slept := recordSleeps(r)

	_, err := r.Complete(context.Background(), chat.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{time.Second, 10 * time.Second}, *slept)
}

func TestRateLimited_GivesUp(t *testing.T) {
	inner := &scriptedCompleter{errs: []error{&RateLimitError{}, &RateLimitError{}, &RateLimitError{}}}
	r := NewRateLimitedCompleter(inner, RateLimitOpts{MaxRetries: 2})
	recordSleeps(r)

	_, err := r.Complete(context.Background(), chat.New(), nil)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 3, inner.calls)
}

func TestRateLimited_OtherErrorsNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	inner := &scriptedCompleter{errs: []error{boom}}
	r := NewRateLimitedCompleter(inner, RateLimitOpts{})
	recordSleeps(r)

	_, err := r.Complete(context.Background(), chat.New(), nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimited_RPMWaitsForWindow(t *testing.T) {
	inner := &scriptedCompleter{}
	r := NewRateLimitedCompleter(inner, RateLimitOpts{RPM: 1})

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.nowFunc = func() time.Time { return now }
	var slept []time.Duration
	r.sleepFunc = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	_, err := r.Complete(context.Background(), chat.New(), nil)
	require.NoError(t, err)
	_, err = r.Complete(context.Background(), chat.New(), nil)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Minute}, slept)
}

func TestRateLimited_ContextCancelledWhileWaiting(t *testing.T) {
	inner := &scriptedCompleter{errs: []error{&RateLimitError{}}}
	r := NewRateLimitedCompleter(inner, RateLimitOpts{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Complete(ctx, chat.New(), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRateLimited_UsageTracker(t *testing.T) {
	inner := &scriptedCompleter{}
	r := NewRateLimitedCompleter(inner, RateLimitOpts{})

	assert.Same(t, &inner.tracker, r.UsageTracker())
}
