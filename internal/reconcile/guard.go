package reconcile

import (
	"context"
	"sync/atomic"
)

// Guard enforces at-most-one reconciliation run at a time. Concurrent sync
// triggers would only race harmlessly on last-write-wins upserts, but a
// second run doubles upstream call volume for no benefit.
type Guard interface {
	// TryAcquire takes the guard, returning false when a run is in flight.
	TryAcquire(ctx context.Context) (bool, error)
	// Release frees the guard.
	Release(ctx context.Context) error
}

// LocalGuard is an in-process Guard for single-instance deployments and
// tests. Multi-instance deployments use the Redis-backed guard instead.
type LocalGuard struct {
	held atomic.Bool
}

// TryAcquire takes the guard if it is free.
func (g *LocalGuard) TryAcquire(context.Context) (bool, error) {
	return g.held.CompareAndSwap(false, true), nil
}

// Release frees the guard.
func (g *LocalGuard) Release(context.Context) error {
	g.held.Store(false)
	return nil
}
