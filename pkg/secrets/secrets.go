// Package secrets resolves named secrets such as API keys from the
// environment or from AWS Secrets Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("secrets: not found")

// Provider resolves a secret by key.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
}

// Env reads secrets from environment variables. The key is upper-cased.
type Env struct{}

func (Env) Get(_ context.Context, key string) (string, error) {
	if v := os.Getenv(strings.ToUpper(key)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

type cached struct {
	value   string
	expires time.Time
}

// Cache memoizes another provider's answers for ttl. Errors are not cached.
type Cache struct {
	next Provider
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cached
}

// NewCache wraps next.
func NewCache(next Provider, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{next: next, ttl: ttl, now: time.Now, entries: make(map[string]cached)}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Before(e.expires) {
		return e.value, nil
	}
	v, err := c.next.Get(ctx, key)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.entries[key] = cached{value: v, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return v, nil
}
