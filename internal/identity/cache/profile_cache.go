package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

const (
	// profileKeyPrefix namespaces cached profiles: identity:profile:{principal_id}
	profileKeyPrefix = "identity:profile:"

	// DefaultTTL is how long a cached profile stays valid.
	DefaultTTL = 5 * time.Minute
)

// entry wraps a cached profile with its own expiry timestamp, so expiry is
// honored even if the backing medium ignores TTLs.
type entry struct {
	Profile   *domain.Profile `json:"profile"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ProfileCache is the TTL cache in front of the profile row store.
type ProfileCache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewProfileCache(store Store, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProfileCache{store: store, ttl: ttl, now: time.Now}
}

func (c *ProfileCache) key(id string) string {
	return profileKeyPrefix + id
}

// Set stores a profile under the principal id with the cache TTL.
func (c *ProfileCache) Set(ctx context.Context, id string, p *domain.Profile) error {
	e := entry{Profile: p, ExpiresAt: c.now().Add(c.ttl)}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	return c.store.Set(ctx, c.key(id), b, c.ttl)
}

// Get returns the cached profile, or nil when absent or expired. An expired
// entry is evicted on detection.
func (c *ProfileCache) Get(ctx context.Context, id string) (*domain.Profile, error) {
	b, err := c.store.Get(ctx, c.key(id))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		// Unreadable entries are treated as misses and dropped.
		_ = c.store.Remove(ctx, c.key(id))
		return nil, nil
	}

	if !c.now().Before(e.ExpiresAt) {
		_ = c.store.Remove(ctx, c.key(id))
		return nil, nil
	}

	return e.Profile, nil
}

// Clear removes the given principals' entries, or the entire profile
// namespace when called with no ids. The full wipe runs on sign-out so a
// previous user's profile can never leak into a new session on a shared
// device.
func (c *ProfileCache) Clear(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return c.store.Clear(ctx, profileKeyPrefix)
	}

	for _, id := range ids {
		if err := c.store.Remove(ctx, c.key(id)); err != nil {
			return err
		}
	}
	return nil
}
