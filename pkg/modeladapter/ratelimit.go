package modeladapter

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/germanamz/searchsmart/pkg/chats/chat"
	"github.com/germanamz/searchsmart/pkg/chats/message"
	"github.com/germanamz/searchsmart/pkg/modeladapter/usage"
	"github.com/germanamz/searchsmart/pkg/tools/toolbox"
)

var _ Completer = (*RateLimitedCompleter)(nil)

// RateLimitedCompleter wraps a Completer with requests-per-minute throttling
// and 429 retry with exponential backoff and jitter. Any error other than a
// RateLimitError is returned immediately.
type RateLimitedCompleter struct {
	inner      Completer
	rpm        int
	maxRetries int
	baseDelay  time.Duration

	mu       sync.Mutex
	requests []time.Time

	fallbackTracker usage.Tracker

	// Overridable in tests.
	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
	randFunc  func() float64
}

// RateLimitOpts configures the RateLimitedCompleter.
type RateLimitOpts struct {
	RPM        int           // Requests per minute (0 = no limit).
	MaxRetries int           // Max retries on 429 (default 3).
	BaseDelay  time.Duration // Initial backoff delay (default 1s).
}

// NewRateLimitedCompleter wraps inner with rate limiting.
func NewRateLimitedCompleter(inner Completer, opts RateLimitOpts) *RateLimitedCompleter {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}

	return &RateLimitedCompleter{
		inner:      inner,
		rpm:        opts.RPM,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		nowFunc:    time.Now,
		sleepFunc:  contextSleep,
		randFunc:   rand.Float64,
	}
}

func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// reserve blocks until a request slot is free within the last minute and
// records the request.
func (r *RateLimitedCompleter) reserve(ctx context.Context) error {
	if r.rpm <= 0 {
		return nil
	}

	for {
		r.mu.Lock()
		now := r.nowFunc()
		cutoff := now.Add(-time.Minute)
		i := 0
		for i < len(r.requests) && !r.requests[i].After(cutoff) {
			i++
		}
		r.requests = r.requests[i:]

		if len(r.requests) < r.rpm {
			r.requests = append(r.requests, now)
			r.mu.Unlock()
			return nil
		}

		wait := max(r.requests[0].Add(time.Minute).Sub(now), 10*time.Millisecond)
		r.mu.Unlock()

		if err := r.sleepFunc(ctx, wait); err != nil {
			return err
		}
	}
}

// backoff returns baseDelay * 2^attempt (or retryAfter when larger) with ±25% jitter.
func (r *RateLimitedCompleter) backoff(attempt int, retryAfter time.Duration) time.Duration {
	d := max(r.baseDelay<<attempt, retryAfter)
	return time.Duration(float64(d) * (0.75 + r.randFunc()*0.5))
}

// Complete implements Completer.
func (r *RateLimitedCompleter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	var lastErr error

	for attempt := range r.maxRetries + 1 {
		if err := r.reserve(ctx); err != nil {
			return message.Message{}, err
		}

		msg, err := r.inner.Complete(ctx, c, tools)
		if err == nil {
			return msg, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return message.Message{}, err
		}
		lastErr = err

		if attempt == r.maxRetries {
			break
		}

		if err := r.sleepFunc(ctx, r.backoff(attempt, rle.RetryAfter)); err != nil {
			return message.Message{}, err
		}
	}

	return message.Message{}, lastErr
}

// UsageTracker forwards to the inner completer if it implements UsageReporter.
func (r *RateLimitedCompleter) UsageTracker() *usage.Tracker {
	if ur, ok := r.inner.(UsageReporter); ok {
		return ur.UsageTracker()
	}
	return &r.fallbackTracker
}
