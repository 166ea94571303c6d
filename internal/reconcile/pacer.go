package reconcile

import (
	"context"
	"time"
)

// Pacer spaces out batches of external calls. The reconciliation loop calls
// Pace between batches; the delay is rate-limiting courtesy toward upstream
// providers, not a performance knob.
type Pacer interface {
	// Pace blocks for the configured interval or until ctx is cancelled,
	// whichever comes first.
	Pace(ctx context.Context) error
}

// IntervalPacer pauses a fixed interval between batches.
type IntervalPacer struct {
	Interval time.Duration
}

// Pace waits the interval, returning early with ctx.Err() on cancellation.
func (p IntervalPacer) Pace(ctx context.Context) error {
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPacer disables pacing. Used in tests so runs take no real time.
type NopPacer struct{}

// Pace returns immediately.
func (NopPacer) Pace(context.Context) error { return nil }
