// Package pace enforces the minimum inter-request interval owed to the
// remote API. Every fetch attempt, successful or not, starts a new interval.
package pace

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks callers so that consecutive fetch attempts are at least one
// interval apart, measured start to start. Burst is fixed at 1: there is no
// catching up after a slow fetch, only the strict minimum cadence.
type Pacer struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

// New creates a Pacer with the given minimum interval between attempts.
func New(interval time.Duration) *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the next attempt is allowed or ctx is canceled. The
// pacing delay is the only intentional blocking in the ingestion path and
// must stay cancellable for graceful shutdown.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.limiter.Wait(ctx)
}

// SetInterval adjusts the minimum interval at runtime, e.g. after the remote
// signals throttling.
func (p *Pacer) SetInterval(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.SetLimit(rate.Every(interval))
}
