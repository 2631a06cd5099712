package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked tokens until they would have expired anyway.
// Entries go to Redis when the cache is enabled and to process memory otherwise.
type TokenBlacklist struct {
	cache *Cache
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewTokenBlacklist builds a blacklist backed by cache (which may be nil).
func NewTokenBlacklist(cache *Cache) *TokenBlacklist {
	return &TokenBlacklist{cache: cache, now: time.Now, entries: map[string]time.Time{}}
}

// Revoke blacklists token until expiresAt.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) {
	ttl := expiresAt.Sub(b.now())
	if ttl <= 0 {
		return
	}
	if b.cache.SetFlag(ctx, blacklistPrefix+token, ttl) {
		return
	}
	b.mu.Lock()
	b.entries[token] = expiresAt
	b.mu.Unlock()
}

// IsRevoked reports whether token was revoked and has not yet expired.
// A Redis error falls back to the in-memory set rather than rejecting the token.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	if exists, ok := b.cache.HasFlag(ctx, blacklistPrefix+token); ok && exists {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[token]
	if !ok {
		return false
	}
	if b.now().After(exp) {
		delete(b.entries, token)
		return false
	}
	return true
}
