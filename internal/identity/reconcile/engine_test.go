package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/cache"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/registry"
)

// fakeStore counts calls and can simulate conflicts and failures.
type fakeStore struct {
	mu          sync.Mutex
	profiles    map[string]*domain.Profile
	fetchCalls  int
	insertCalls int

	fetchErr  error
	insertErr error
	// loseRaceTo simulates another writer winning the insert: the insert
	// reports a conflict and the winner's row becomes visible.
	loseRaceTo *domain.Profile
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*domain.Profile)}
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if p, ok := s.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrProfileNotFound
}

func (s *fakeStore) Insert(ctx context.Context, draft domain.ProfileDraft) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertCalls++
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if s.loseRaceTo != nil {
		s.profiles[s.loseRaceTo.ID] = s.loseRaceTo
		return nil, domain.ErrProfileExists
	}
	if _, ok := s.profiles[draft.ID]; ok {
		return nil, domain.ErrProfileExists
	}

	now := time.Now().UTC().Truncate(time.Second)
	p := &domain.Profile{
		ID:         draft.ID,
		Email:      draft.Email,
		FirstName:  draft.FirstName,
		LastName:   draft.LastName,
		Phone:      draft.Phone,
		Role:       draft.Role,
		IsVerified: draft.IsVerified,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.profiles[draft.ID] = p
	cp := *p
	return &cp, nil
}

func (s *fakeStore) counts() (fetches, inserts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls, s.insertCalls
}

func setupEngine(t *testing.T, store *fakeStore) (*Engine, *cache.ProfileCache, *registry.Registry) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewProfileCache(cache.NewRedisStore(client), 5*time.Minute)
	reg := registry.New(5 * time.Millisecond)
	t.Cleanup(reg.Stop)

	return New(store, c, reg, false), c, reg
}

func principal(id string, role domain.Role) domain.Principal {
	return domain.Principal{
		ID:    id,
		Email: id + "@example.com",
		Meta:  domain.PrincipalMeta{Role: role},
	}
}

func TestEnsureProfile_ProvisionsMissingRow(t *testing.T) {
	store := newFakeStore()
	eng, _, reg := setupEngine(t, store)

	p, err := eng.EnsureProfile(context.Background(), principal("u1", domain.RoleStudent))
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "u1@example.com", p.Email)
	assert.Equal(t, domain.RoleStudent, p.Role)
	assert.False(t, p.IsVerified)

	_, inserts := store.counts()
	assert.Equal(t, 1, inserts)
	assert.Equal(t, registry.StateIdle, reg.State("u1"))
}

func TestEnsureProfile_ExistingRowUnchanged(t *testing.T) {
	store := newFakeStore()
	existing := &domain.Profile{
		ID:    "u2",
		Email: "u2@example.com",
		Role:  domain.RoleInstitution,
	}
	store.profiles["u2"] = existing

	eng, _, _ := setupEngine(t, store)

	p, err := eng.EnsureProfile(context.Background(), principal("u2", domain.RoleStudent))
	require.NoError(t, err)
	require.NotNil(t, p)

	// The stored row wins over the metadata defaults.
	assert.Equal(t, domain.RoleInstitution, p.Role)

	fetches, inserts := store.counts()
	assert.Equal(t, 1, fetches)
	assert.Zero(t, inserts)
}

func TestEnsureProfile_ConcurrentCallersDeduplicate(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := setupEngine(t, store)

	const callers = 10
	results := make([]*domain.Profile, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = eng.EnsureProfile(context.Background(), principal("u1", domain.RoleStudent))
		}(i)
	}
	wg.Wait()

	fetches, inserts := store.counts()
	assert.Equal(t, 1, fetches, "exactly one fetch for the whole burst")
	assert.Equal(t, 1, inserts, "exactly one create for the whole burst")

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, results[0], results[i], "all callers observe the same profile")
	}
}

func TestEnsureProfile_ConflictRecovery(t *testing.T) {
	store := newFakeStore()
	winner := &domain.Profile{
		ID:         "u1",
		Email:      "u1@example.com",
		FirstName:  "First",
		Role:       domain.RoleStudent,
		IsVerified: true,
	}
	store.loseRaceTo = winner

	eng, _, reg := setupEngine(t, store)

	p, err := eng.EnsureProfile(context.Background(), principal("u1", domain.RoleStudent))
	require.NoError(t, err)
	require.NotNil(t, p)

	// The losing writer adopts the winner's row instead of failing.
	assert.Equal(t, winner.FirstName, p.FirstName)
	assert.Equal(t, winner.IsVerified, p.IsVerified)

	store.mu.Lock()
	rows := len(store.profiles)
	store.mu.Unlock()
	assert.Equal(t, 1, rows, "no second row may exist")

	_, inserts := store.counts()
	assert.Equal(t, 1, inserts)
	assert.Equal(t, registry.StateIdle, reg.State("u1"))
}

func TestEnsureProfile_LastFetchShortcut(t *testing.T) {
	store := newFakeStore()
	store.profiles["u1"] = &domain.Profile{ID: "u1", Email: "u1@example.com", Role: domain.RoleStudent}

	eng, _, _ := setupEngine(t, store)
	ctx := context.Background()

	_, err := eng.EnsureProfile(ctx, principal("u1", domain.RoleStudent))
	require.NoError(t, err)

	_, err = eng.EnsureProfile(ctx, principal("u1", domain.RoleStudent))
	require.NoError(t, err)

	fetches, _ := store.counts()
	assert.Equal(t, 1, fetches, "second call must not touch the store")
}

func TestEnsureProfile_CacheHitSkipsStore(t *testing.T) {
	store := newFakeStore()
	eng, c, _ := setupEngine(t, store)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", &domain.Profile{ID: "u1", Role: domain.RoleStudent}))

	p, err := eng.EnsureProfile(ctx, principal("u1", domain.RoleStudent))
	require.NoError(t, err)
	require.NotNil(t, p)

	fetches, inserts := store.counts()
	assert.Zero(t, fetches)
	assert.Zero(t, inserts)
}

func TestEnsureProfile_FetchFailure(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = assert.AnError

	eng, _, reg := setupEngine(t, store)

	p, err := eng.EnsureProfile(context.Background(), principal("u1", domain.RoleStudent))
	assert.Nil(t, p)
	require.Error(t, err)
	assert.Equal(t, registry.StateError, reg.State("u1"))

	_, inserts := store.counts()
	assert.Zero(t, inserts, "a failed fetch must not fall through to create")
}

func TestEnsureProfile_InsertFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = assert.AnError

	eng, _, reg := setupEngine(t, store)

	p, err := eng.EnsureProfile(context.Background(), principal("u1", domain.RoleStudent))
	assert.Nil(t, p)
	require.Error(t, err)
	assert.Equal(t, registry.StateError, reg.State("u1"))
}

func TestEnsureProfile_BusyWithoutHandleBacksOff(t *testing.T) {
	store := newFakeStore()
	eng, _, reg := setupEngine(t, store)

	reg.SetState("u1", registry.StateCreating)

	p, err := eng.EnsureProfile(context.Background(), principal("u1", domain.RoleStudent))
	assert.Nil(t, p)
	assert.NoError(t, err)

	fetches, inserts := store.counts()
	assert.Zero(t, fetches)
	assert.Zero(t, inserts)
}

func TestEnsureProfile_RequiresPrincipalID(t *testing.T) {
	store := newFakeStore()
	eng, _, _ := setupEngine(t, store)

	_, err := eng.EnsureProfile(context.Background(), domain.Principal{})
	assert.Error(t, err)
}

func TestForget(t *testing.T) {
	store := newFakeStore()
	store.profiles["u1"] = &domain.Profile{ID: "u1", Role: domain.RoleStudent}

	eng, c, _ := setupEngine(t, store)
	ctx := context.Background()

	_, err := eng.EnsureProfile(ctx, principal("u1", domain.RoleStudent))
	require.NoError(t, err)

	eng.Forget("")
	require.NoError(t, c.Clear(ctx))

	_, err = eng.EnsureProfile(ctx, principal("u1", domain.RoleStudent))
	require.NoError(t, err)

	fetches, _ := store.counts()
	assert.Equal(t, 2, fetches, "forget must drop the shortcut")
}
