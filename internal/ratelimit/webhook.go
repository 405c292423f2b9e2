package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/smallbiznis/chargeway/internal/config"
)

const keyWebhookSource = "webhook:source:%s"

// WebhookLimiter throttles inbound webhook deliveries per source address.
// When Redis is not configured the limiter is disabled and every delivery
// is allowed.
type WebhookLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewWebhookLimiter(cfg config.Config) *WebhookLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return &WebhookLimiter{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &WebhookLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    cfg.WebhookRate,
		burst:   cfg.WebhookBurst,
	}
}

func (l *WebhookLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *WebhookLimiter) Allow(ctx context.Context, source string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyWebhookSource, strings.TrimSpace(source)), l.rate, l.burst)
}
