package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer gates outbound extraction calls. Every path that reaches the
// backend acquires exactly one slot, retries included.
type Pacer interface {
	AcquireSlot(ctx context.Context) error
}

// JitterPacer enforces a minimum, randomly redrawn delay between
// acquisitions. The lock covers only the timestamp/delay pair; the wait
// itself happens outside it so slow callers do not serialize unrelated
// checks.
type JitterPacer struct {
	mu    sync.Mutex
	last  time.Time
	delay time.Duration

	min, max time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer returns a pacer drawing delays uniformly from [min, max].
func NewPacer(min, max time.Duration) *JitterPacer {
	if min <= 0 {
		min = 1500 * time.Millisecond
	}
	if max < min {
		max = 2 * min
	}
	p := &JitterPacer{
		min:   min,
		max:   max,
		now:   time.Now,
		sleep: sleepWithContext,
	}
	p.delay = p.redraw()
	return p
}

// AcquireSlot blocks until the current delay has elapsed since the last
// acquisition, stamps "now", and redraws the delay for the next caller.
func (p *JitterPacer) AcquireSlot(ctx context.Context) error {
	p.mu.Lock()
	wait := p.delay - p.now().Sub(p.last)
	p.mu.Unlock()

	if wait > 0 {
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.last = p.now()
	p.delay = p.redraw()
	p.mu.Unlock()
	return nil
}

func (p *JitterPacer) redraw() time.Duration {
	span := int64(p.max - p.min)
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(rand.Int63n(span+1)) //nolint:gosec
}

// NopPacer never waits. Used by tests and metadata-only tooling.
type NopPacer struct{}

func (NopPacer) AcquireSlot(context.Context) error { return nil }
