package ratelimit

import "context"

// RateLimiter controls catalog request throughput per operation.
type RateLimiter interface {
	Allow(ctx context.Context, operation string) (bool, error)
	Wait(ctx context.Context, operation string) error
}
