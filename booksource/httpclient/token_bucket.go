package httpclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBucketClosed is returned by Acquire after the bucket is closed.
var ErrBucketClosed = errors.New("token bucket is closed")

// TokenBucket throttles requests against one book source. It starts full
// with capacity permits and refills one permit per fill period, capped at
// capacity; permits are consumed by Acquire and never returned.
type TokenBucket struct {
	limiter *rate.Limiter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewTokenBucket creates a bucket with the given capacity and refill
// period. A capacity below one is treated as one.
func NewTokenBucket(capacity int, fill time.Duration) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(fill), capacity),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Acquire blocks until a permit is available, the caller's context is
// done, or the bucket is closed.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	if b.ctx.Err() != nil {
		return ErrBucketClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(b.ctx, cancel)
	defer stop()

	if err := b.limiter.Wait(ctx); err != nil {
		if b.ctx.Err() != nil {
			return ErrBucketClosed
		}
		return err
	}
	return nil
}

// Close releases all waiters with ErrBucketClosed and refuses further
// acquires. It is idempotent.
func (b *TokenBucket) Close() {
	b.closeOnce.Do(b.cancel)
}
