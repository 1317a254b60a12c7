// Package gate bounds how many downloads may run at once system-wide.
package gate

import "context"

// Gate is a counting permit pool shared by every supervisor. Only the active
// transfer is gated; liveness probing and backoff timers never hold a permit.
// Capacity is fixed at construction; configuration changes do not resize an
// in-flight pool.
type Gate struct {
	permits chan struct{}
}

// New returns a gate admitting at most capacity concurrent holders.
// A capacity below 1 is treated as 1.
func New(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{permits: make(chan struct{}, capacity)}
}

// Acquire blocks until a permit is available or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit. A stray release when no permit is held is a
// no-op rather than an error.
func (g *Gate) Release() {
	select {
	case <-g.permits:
	default:
	}
}

// Capacity reports the configured maximum.
func (g *Gate) Capacity() int {
	return cap(g.permits)
}

// InUse reports the number of currently held permits.
func (g *Gate) InUse() int {
	return len(g.permits)
}
