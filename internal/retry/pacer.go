package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// JitterPacer sleeps a uniform duration in [Min, Max] before each attempt.
type JitterPacer struct {
	Min  time.Duration
	Max  time.Duration
	Rand func() float64
}

func NewJitterPacer() JitterPacer {
	return JitterPacer{Min: time.Second, Max: 3 * time.Second}
}

func (p JitterPacer) Wait(ctx context.Context) error {
	r := p.Rand
	if r == nil {
		r = rand.Float64
	}
	d := p.Min
	if p.Max > p.Min {
		d += time.Duration(r() * float64(p.Max-p.Min))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
