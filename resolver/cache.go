package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/becomeliminal/nim-wallet/core"
)

// DefaultUserCacheTTL bounds how stale a cached profile may be.
const DefaultUserCacheTTL = 30 * time.Second

// CachedUsers is a UserFinder that remembers found profiles for a short
// time. Misses and errors are never cached, so a user who registers a
// wallet becomes resolvable on the next lookup.
type CachedUsers struct {
	next  UserFinder
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedUsers wraps next with a cache. A non-positive ttl uses
// DefaultUserCacheTTL.
func NewCachedUsers(next UserFinder, ttl time.Duration) (*CachedUsers, error) {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &CachedUsers{next: next, cache: cache, ttl: ttl}, nil
}

// Get returns the profile with userID.
func (c *CachedUsers) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	return c.lookup("id:"+userID, func() (*core.UserProfile, error) {
		return c.next.Get(ctx, userID)
	})
}

// FindByEmail returns the profile registered with email.
func (c *CachedUsers) FindByEmail(ctx context.Context, email string) (*core.UserProfile, error) {
	return c.lookup("email:"+core.NormalizeEmail(email), func() (*core.UserProfile, error) {
		return c.next.FindByEmail(ctx, email)
	})
}

// Close stops the cache's background goroutines.
func (c *CachedUsers) Close() {
	c.cache.Close()
}

func (c *CachedUsers) lookup(key string, load func() (*core.UserProfile, error)) (*core.UserProfile, error) {
	if cached, ok := c.cache.Get(key); ok {
		profile := cached.(core.UserProfile)
		return &profile, nil
	}

	profile, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, *profile, 1, c.ttl)
	c.cache.Wait()
	return profile, nil
}
