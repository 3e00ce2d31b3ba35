package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited paces calls to the wrapped qualifier with a token bucket.
type RateLimited struct {
	next    Qualifier
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute calls per minute with the given burst.
// perMinute <= 0 disables pacing.
func NewRateLimited(next Qualifier, perMinute, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Qualify(ctx context.Context, req Request) (Qualification, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Qualification{}, fmt.Errorf("ai rate limit: %w", err)
	}
	return r.next.Qualify(ctx, req)
}

// Burst implements RateBudget.
func (r *RateLimited) Burst() int {
	return r.limiter.Burst()
}

// Unwrap returns the paced qualifier.
func (r *RateLimited) Unwrap() Qualifier {
	return r.next
}

var (
	_ Qualifier  = (*RateLimited)(nil)
	_ RateBudget = (*RateLimited)(nil)
)
