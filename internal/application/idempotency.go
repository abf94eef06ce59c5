package application

import "context"

// IdempotencyStore deduplicates retried position submissions.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	// Returns false if the key already exists (duplicate).
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release frees a reservation whose request did not complete.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency accepts every key; used when no shared store is configured.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }

func (NoopIdempotency) Release(context.Context, string) error { return nil }
