package mediawiki

import (
	"context"
	"sync"
	"time"
)

// pacer enforces a minimum gap between successive request start times.
// The gap is measured from the previous start, so a request that failed
// fast still holds the next one back for the full interval.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{interval: interval}
}

// wait blocks until a request may start and records its start time.
func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if d := p.interval - time.Since(p.last); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}
