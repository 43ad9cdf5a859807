// Package cache holds the Redis-backed rate limiting for verification
// emails.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResendLimiter allows one verification email per (email, upload link) pair
// per window. The claim is a single SET NX so concurrent requests cannot
// both win.
type ResendLimiter struct {
	client *redis.Client
	window time.Duration
}

func NewResendLimiter(client *redis.Client, window time.Duration) *ResendLimiter {
	return &ResendLimiter{client: client, window: window}
}

// Allow claims the send slot for the pair. Returns false while a prior
// claim is still inside the window.
func (l *ResendLimiter) Allow(ctx context.Context, email, uploadLink string) (bool, error) {
	key := fmt.Sprintf("verify:resend:%s:%s", uploadLink, strings.ToLower(strings.TrimSpace(email)))
	return l.client.SetNX(ctx, key, 1, l.window).Result()
}

// Reset releases the pair's slot. Used when the email could not be sent so
// the traveler is not locked out for the full window.
func (l *ResendLimiter) Reset(ctx context.Context, email, uploadLink string) error {
	key := fmt.Sprintf("verify:resend:%s:%s", uploadLink, strings.ToLower(strings.TrimSpace(email)))
	return l.client.Del(ctx, key).Err()
}
