package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/cache"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

// snapshotKeyPrefix namespaces offline snapshots: identity:snapshot:{principal_id}
const snapshotKeyPrefix = "identity:snapshot:"

// Snapshot is the last-known-good identity state, used as a fallback when
// the provider is unreachable during bootstrap.
type Snapshot struct {
	ID      string          `json:"id"`
	Session *domain.Session `json:"session"`
	SavedAt time.Time       `json:"saved_at"`
}

// SnapshotStore persists offline snapshots in the engine's KV namespace.
type SnapshotStore struct {
	store  cache.Store
	maxAge time.Duration
	now    func() time.Time
}

func NewSnapshotStore(store cache.Store, maxAge time.Duration) *SnapshotStore {
	return &SnapshotStore{store: store, maxAge: maxAge, now: time.Now}
}

// Save records the session as the principal's last-known-good state.
func (s *SnapshotStore) Save(ctx context.Context, sess *domain.Session) error {
	if sess == nil || sess.Principal == nil {
		return fmt.Errorf("snapshot requires a session with a principal")
	}

	snap := Snapshot{
		ID:      uuid.New().String(),
		Session: sess,
		SavedAt: s.now(),
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := snapshotKeyPrefix + sess.Principal.ID
	return s.store.Set(ctx, key, b, s.maxAge)
}

// Load returns the freshest non-stale snapshot, or nil when none qualifies.
func (s *SnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	keys, err := s.store.Keys(ctx, snapshotKeyPrefix)
	if err != nil {
		return nil, err
	}

	var newest *Snapshot
	cutoff := s.now().Add(-s.maxAge)

	for _, key := range keys {
		b, err := s.store.Get(ctx, key)
		if err != nil || b == nil {
			continue
		}

		var snap Snapshot
		if err := json.Unmarshal(b, &snap); err != nil {
			_ = s.store.Remove(ctx, key)
			continue
		}

		if snap.SavedAt.Before(cutoff) {
			_ = s.store.Remove(ctx, key)
			continue
		}

		if newest == nil || snap.SavedAt.After(newest.SavedAt) {
			newest = &snap
		}
	}

	return newest, nil
}

// Clear removes every stored snapshot. Called on sign-out.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, snapshotKeyPrefix)
}

// Sweep removes snapshots past the staleness bound and reports how many
// went. Scheduled by the janitor.
func (s *SnapshotStore) Sweep(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, snapshotKeyPrefix)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0

	for _, key := range keys {
		b, err := s.store.Get(ctx, key)
		if err != nil || b == nil {
			continue
		}

		var snap Snapshot
		if err := json.Unmarshal(b, &snap); err != nil || snap.SavedAt.Before(cutoff) {
			if err := s.store.Remove(ctx, key); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}
