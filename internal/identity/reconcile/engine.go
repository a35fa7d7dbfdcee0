package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/cache"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/registry"
)

// ProfileStore is the external row store the engine reconciles against.
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	Insert(ctx context.Context, draft domain.ProfileDraft) (*domain.Profile, error)
}

// Engine guarantees exactly-once profile provisioning per principal under
// concurrent callers, overlapping lifecycle events, and remote uniqueness
// races.
type Engine struct {
	store ProfileStore
	cache *cache.ProfileCache
	reg   *registry.Registry

	emailVerificationDisabled bool

	mu          sync.Mutex
	lastID      string
	lastProfile *domain.Profile
}

func New(store ProfileStore, c *cache.ProfileCache, reg *registry.Registry, emailVerificationDisabled bool) *Engine {
	return &Engine{
		store: store,
		cache: c,
		reg:   reg,

		emailVerificationDisabled: emailVerificationDisabled,
	}
}

// EnsureProfile returns the profile for the given principal, provisioning it
// on first sight. Each step short-circuits on success:
//
//  1. an existing in-flight operation for the id is awaited, not duplicated;
//  2. a busy state with no awaitable handle backs off with (nil, nil);
//  3. the most recent successful fetch for this exact id is reused;
//  4. an unexpired cache entry is returned without I/O;
//  5. the row store is consulted; a missing row selects the create path;
//  6. the create is coalesced per id and recovers idempotently from
//     uniqueness conflicts by re-fetching the winner's row.
//
// Absence of a profile is a normal intermediate state, so expected signals
// (not-found, conflict) never escape; only unexpected store failures do.
func (e *Engine) EnsureProfile(ctx context.Context, pr domain.Principal) (*domain.Profile, error) {
	if pr.ID == "" {
		return nil, fmt.Errorf("principal id required")
	}

	op, owner := e.reg.Begin(pr.ID)
	if op == nil {
		// Busy with no handle to join. The caller that owns the in-flight
		// work will update shared state; racing it would risk a second create.
		return nil, nil
	}
	if !owner {
		return op.Await(ctx)
	}

	var result *domain.Profile
	var resultErr error
	defer func() {
		e.reg.Finish(pr.ID, op, result, resultErr)
	}()

	if p := e.lastFetched(pr.ID); p != nil {
		result = p
		return result, nil
	}

	if p, err := e.cache.Get(ctx, pr.ID); err != nil {
		log.Printf("[identity] cache read failed principal=%s: %v", pr.ID, err)
	} else if p != nil {
		e.remember(p)
		result = p
		return result, nil
	}

	p, err := e.store.FindByID(ctx, pr.ID)
	if err == nil {
		if cacheErr := e.cache.Set(ctx, pr.ID, p); cacheErr != nil {
			log.Printf("[identity] cache write failed principal=%s: %v", pr.ID, cacheErr)
		}
		e.remember(p)
		result = p
		return result, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		log.Printf("[identity] fetch failed principal=%s: %v", pr.ID, err)
		resultErr = err
		return nil, resultErr
	}

	// No row yet: provision one. The insert itself is coalesced so a burst
	// of ensure calls within the debounce window shares a single attempt.
	e.reg.SetState(pr.ID, registry.StateCreating)

	// Once started, the create runs to completion even if this caller's
	// context ends first.
	createCtx := context.WithoutCancel(ctx)
	res := <-e.reg.Coalesce(pr.ID, func() registry.Result {
		return e.create(createCtx, pr)
	})

	if res.Err != nil {
		if errors.Is(res.Err, domain.ErrNoSession) {
			// The batch was torn down by a sign-out; no profile is fine.
			return nil, nil
		}
		log.Printf("[identity] create failed principal=%s: %v", pr.ID, res.Err)
		resultErr = res.Err
		return nil, resultErr
	}

	e.remember(res.Profile)
	result = res.Profile
	return result, nil
}

// create inserts the default-derived profile row, treating a uniqueness
// conflict as the expected sign that another writer (concurrent process or
// server-side trigger) provisioned first.
func (e *Engine) create(ctx context.Context, pr domain.Principal) registry.Result {
	draft := domain.NewProfileDraft(pr.ID, pr.Email, pr.Meta, e.emailVerificationDisabled)

	p, err := e.store.Insert(ctx, draft)
	if err == nil {
		if cacheErr := e.cache.Set(ctx, pr.ID, p); cacheErr != nil {
			log.Printf("[identity] cache write failed principal=%s: %v", pr.ID, cacheErr)
		}
		return registry.Result{Profile: p}
	}

	if errors.Is(err, domain.ErrProfileExists) {
		existing, refetchErr := e.store.FindByID(ctx, pr.ID)
		if refetchErr != nil {
			return registry.Result{Err: fmt.Errorf("refetch after conflict: %w", refetchErr)}
		}
		if cacheErr := e.cache.Set(ctx, pr.ID, existing); cacheErr != nil {
			log.Printf("[identity] cache write failed principal=%s: %v", pr.ID, cacheErr)
		}
		return registry.Result{Profile: existing}
	}

	return registry.Result{Err: err}
}

// Forget drops the last-fetch shortcut and the principal's registry entry.
// Called on sign-out.
func (e *Engine) Forget(id string) {
	e.mu.Lock()
	if e.lastID == id || id == "" {
		e.lastID = ""
		e.lastProfile = nil
	}
	e.mu.Unlock()

	if id != "" {
		e.reg.Clear(id)
	} else {
		e.reg.Reset()
	}
}

func (e *Engine) lastFetched(id string) *domain.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastID == id && e.lastProfile != nil && e.lastProfile.ID == id {
		return e.lastProfile
	}
	return nil
}

func (e *Engine) remember(p *domain.Profile) {
	if p == nil {
		return
	}
	e.mu.Lock()
	e.lastID = p.ID
	e.lastProfile = p
	e.mu.Unlock()
}
