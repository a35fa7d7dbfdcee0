package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/cache"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/connectivity"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/listener"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/provider"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/reconcile"
)

// Config carries the manager's time bounds.
type Config struct {
	// ProbeTimeout bounds the one-shot session probe.
	ProbeTimeout time.Duration
	// LoadingDeadline unconditionally clears the loading flag when it
	// elapses, whatever the probe and reconciliation are still doing.
	LoadingDeadline time.Duration
}

// Manager is the identity engine facade: it owns the current
// session/principal/profile/loading state, runs the bootstrap, and wires the
// listener into the provider stream. Constructed explicitly with a defined
// lifecycle so tests can instantiate isolated copies.
type Manager struct {
	provider provider.Provider
	engine   *reconcile.Engine
	cache    *cache.ProfileCache
	monitor  *connectivity.Monitor
	snaps    *SnapshotStore
	cfg      Config

	mu        sync.Mutex
	session   *domain.Session
	principal *domain.Principal
	profile   *domain.Profile
	loading   bool

	listener    *listener.Listener
	unsubscribe func()
	fallback    *time.Timer
	closeOnce   sync.Once
}

func NewManager(
	p provider.Provider,
	engine *reconcile.Engine,
	profileCache *cache.ProfileCache,
	monitor *connectivity.Monitor,
	snaps *SnapshotStore,
	cfg Config,
) *Manager {
	m := &Manager{
		provider: p,
		engine:   engine,
		cache:    profileCache,
		monitor:  monitor,
		snaps:    snaps,
		cfg:      cfg,
		loading:  true,
	}
	m.listener = listener.New(m, engine, monitor)
	return m
}

// Start arms the loading fallback timer, subscribes the listener to the
// provider stream, and runs the one-shot bootstrap. The returned error is
// non-nil only for connectivity-class probe failures with no usable offline
// snapshot; the caller's error boundary decides what to show for those.
func (m *Manager) Start(ctx context.Context) error {
	m.SetLoading(true)

	// Hard upper bound on the loading state, independent of every other
	// path. Not a retry.
	m.fallback = time.AfterFunc(m.cfg.LoadingDeadline, func() {
		log.Printf("[identity] loading deadline reached, forcing loading=false")
		m.SetLoading(false)
	})

	m.unsubscribe = m.provider.Subscribe(m.listener.Handle)

	return m.bootstrap(ctx)
}

// Close tears down the subscription and timers.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		if m.fallback != nil {
			m.fallback.Stop()
		}
	})
}

// Session returns the current session, or nil when signed out.
func (m *Manager) Session() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Principal returns the current principal, or nil when signed out.
func (m *Manager) Principal() *domain.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.principal
}

// Profile returns the reconciled profile, or nil while none exists yet.
func (m *Manager) Profile() *domain.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// Loading reports whether the engine is still deriving its initial state.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// HasRole reports whether the current profile carries the given role.
func (m *Manager) HasRole(r domain.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile != nil && m.profile.Role == r
}

// EnsureProfile reconciles the current principal's profile on demand.
func (m *Manager) EnsureProfile(ctx context.Context) (*domain.Profile, error) {
	m.mu.Lock()
	pr := m.principal
	m.mu.Unlock()

	if pr == nil {
		return nil, domain.ErrNoSession
	}

	p, err := m.engine.EnsureProfile(ctx, *pr)
	if err != nil {
		return nil, err
	}
	if p != nil {
		m.SetProfile(p)
	}
	return p, nil
}

// SignOut clears every piece of engine state plus the entire cache and
// snapshot namespace, so nothing from this user survives for the next one.
func (m *Manager) SignOut(ctx context.Context) error {
	m.ClearIdentity()
	m.engine.Forget("")

	if err := m.snaps.Clear(ctx); err != nil {
		return err
	}
	return nil
}

// --- listener.StateSink ---

func (m *Manager) CurrentSession() *domain.Session {
	return m.Session()
}

// AdoptSession replaces the session and principal wholesale and persists the
// offline snapshot best-effort.
func (m *Manager) AdoptSession(s *domain.Session) {
	m.adoptLocal(s)

	if s != nil && s.Principal != nil {
		if err := m.snaps.Save(context.Background(), s); err != nil {
			log.Printf("[identity] snapshot save failed principal=%s: %v", s.Principal.ID, err)
		}
	}
}

// adoptLocal replaces the in-memory session/principal without touching the
// snapshot store. Used when the session itself came from a snapshot.
func (m *Manager) adoptLocal(s *domain.Session) {
	m.mu.Lock()
	m.session = s
	if s != nil {
		m.principal = s.Principal
	} else {
		m.principal = nil
	}
	m.mu.Unlock()
}

func (m *Manager) SetProfile(p *domain.Profile) {
	m.mu.Lock()
	m.profile = p
	m.mu.Unlock()
}

// ClearIdentity nils the session, principal, and profile and wipes the whole
// cache namespace, not just the current principal's entry.
func (m *Manager) ClearIdentity() {
	m.mu.Lock()
	m.session = nil
	m.principal = nil
	m.profile = nil
	m.mu.Unlock()

	if err := m.cache.Clear(context.Background()); err != nil {
		log.Printf("[identity] cache clear failed: %v", err)
	}
}

func (m *Manager) SetLoading(loading bool) {
	m.mu.Lock()
	changed := m.loading != loading
	m.loading = loading
	m.mu.Unlock()

	if changed && !loading && m.fallback != nil {
		m.fallback.Stop()
	}
}
