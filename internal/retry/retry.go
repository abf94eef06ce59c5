// Package retry runs an operation against a flaky upstream a bounded number of
// times, pacing every attempt and backing off exponentially between failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned once every attempt has failed. The last cause is wrapped alongside it.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Pacer is awaited before every attempt. *rate.Limiter satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	// AttemptTimeout bounds a single operation call; zero disables it.
	AttemptTimeout time.Duration
	Pacer          Pacer
	// Rand returns a uniform value in [0,1).
	Rand func() float64
	// Notify is called after a failed attempt that will be retried.
	Notify func(attempt int, err error, wait time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxJitter:   time.Second,
	}
}

// Permanent marks err as not worth retrying. Do still reports it as ErrExhausted.
func Permanent(err error) error { return backoff.Permanent(err) }

// Do invokes op up to p.MaxAttempts times. Success returns immediately; after the
// final failure the returned error wraps both ErrExhausted and the last cause.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Rand == nil {
		p.Rand = rand.Float64
	}

	attempt := 0
	run := func() (T, error) {
		var zero T
		if p.Pacer != nil {
			if err := p.Pacer.Wait(ctx); err != nil {
				return zero, backoff.Permanent(fmt.Errorf("pacer: %w", err))
			}
		}
		attempt++
		actx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}
		return op(actx)
	}

	var b backoff.BackOff = &schedule{base: p.BaseDelay, maxJitter: p.MaxJitter, rand: p.Rand}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)

	notify := func(err error, wait time.Duration) {
		if p.Notify != nil {
			p.Notify(attempt, err, wait)
		}
	}
	out, err := backoff.RetryNotifyWithData(run, b, notify)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w after %d attempt(s): %w", ErrExhausted, attempt, err)
	}
	return out, nil
}

// schedule yields base*2^n + uniform(0, maxJitter) for the n-th retry, n starting at 0.
type schedule struct {
	base      time.Duration
	maxJitter time.Duration
	rand      func() float64
	n         int
}

func (s *schedule) NextBackOff() time.Duration {
	d := s.base<<s.n + time.Duration(s.rand()*float64(s.maxJitter))
	s.n++
	return d
}

func (s *schedule) Reset() { s.n = 0 }
