package auth

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "taskmind:idtoken:"

// HashToken returns the SHA-256 hex digest of a bearer token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

// CachedVerifier caches successful verifications in Redis. Failures are never
// cached, and a cached identity is never served past its token expiry.
type CachedVerifier struct {
	inner Verifier
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time

	// OnLookup, if set, observes every cache lookup.
	OnLookup func(hit bool)
}

// NewCachedVerifier wraps inner. If rdb is nil, all calls pass through.
func NewCachedVerifier(inner Verifier, rdb *redis.Client, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{inner: inner, redis: rdb, ttl: ttl, now: time.Now}
}

func (v *CachedVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	key := redisKeyPrefix + HashToken(token)

	// Check Redis cache first
	if v.redis != nil {
		cached, err := v.redis.Get(ctx, key).Bytes()
		if err == nil {
			var identity Identity
			if err := json.Unmarshal(cached, &identity); err == nil && v.fresh(&identity) {
				v.observe(true)
				return &identity, nil
			}
		} else if err != redis.Nil {
			slog.Warn("identity cache read failed", "error", err)
		}
		v.observe(false)
	}

	identity, err := v.inner.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if v.redis != nil {
		if ttl := v.cacheTTL(identity); ttl > 0 {
			data, err := json.Marshal(identity)
			if err == nil {
				if err := v.redis.Set(ctx, key, data, ttl).Err(); err != nil {
					slog.Warn("identity cache write failed", "error", err)
				}
			}
		}
	}

	return identity, nil
}

func (v *CachedVerifier) observe(hit bool) {
	if v.OnLookup != nil {
		v.OnLookup(hit)
	}
}

func (v *CachedVerifier) fresh(identity *Identity) bool {
	if identity.UID == "" {
		return false
	}
	return identity.ExpiresAt.IsZero() || v.now().Before(identity.ExpiresAt)
}

// cacheTTL is the configured TTL clipped to the token's remaining lifetime.
func (v *CachedVerifier) cacheTTL(identity *Identity) time.Duration {
	ttl := v.ttl
	if !identity.ExpiresAt.IsZero() {
		if remaining := identity.ExpiresAt.Sub(v.now()); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}
