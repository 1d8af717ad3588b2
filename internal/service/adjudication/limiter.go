package adjudication

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultConcurrency is the process-wide bound on in-flight reasoning calls.
const DefaultConcurrency = 15

// Limiter bounds in-flight reasoning calls and optionally their request rate.
// One Limiter is shared by every resolution in the process; callers over
// capacity wait rather than fail.
type Limiter struct {
	sem      *semaphore.Weighted
	rate     *rate.Limiter
	capacity int64
	inFlight atomic.Int64
}

// NewLimiter returns a limiter admitting at most concurrency calls at once.
// A nil rate limiter disables request pacing.
func NewLimiter(concurrency int, pacing *rate.Limiter) (*Limiter, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("adjudication concurrency must be positive, got %d", concurrency)
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(concurrency)),
		rate:     pacing,
		capacity: int64(concurrency),
	}, nil
}

// Acquire blocks until a slot is free and the rate allows another call. The
// returned release func must be called exactly once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	if l.rate != nil {
		if err := l.rate.Wait(ctx); err != nil {
			l.sem.Release(1)
			return nil, err
		}
	}
	l.inFlight.Add(1)
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			l.inFlight.Add(-1)
			l.sem.Release(1)
		}
	}, nil
}

// InFlight reports the number of calls currently holding a slot.
func (l *Limiter) InFlight() int64 {
	return l.inFlight.Load()
}

// Capacity reports the configured concurrency bound.
func (l *Limiter) Capacity() int64 {
	return l.capacity
}
