package registry

import (
	"context"
	"sync"
	"time"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

// State is the per-principal bookkeeping state of the reconciliation engine.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateCreating State = "creating"
	StateError    State = "error"
)

// Result is the outcome of one reconciliation or coalesced create attempt.
type Result struct {
	Profile *domain.Profile
	Err     error
}

// Operation is the awaitable handle for one in-flight fetch-or-create.
// All callers that join it observe the same result.
type Operation struct {
	done    chan struct{}
	profile *domain.Profile
	err     error
}

// Await blocks until the operation completes or ctx is done.
func (o *Operation) Await(ctx context.Context) (*domain.Profile, error) {
	select {
	case <-o.done:
		return o.profile, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type batch struct {
	subs []chan Result
}

// Registry tracks per-principal operation state, in-flight handles, and the
// create coalescer. It is constructed explicitly and passed in; tests get
// isolated copies, and Stop tears down all timers at shutdown.
type Registry struct {
	mu       sync.Mutex
	states   map[string]State
	inflight map[string]*Operation
	batches  map[string]*batch
	timers   map[string]*time.Timer
	window   time.Duration
	stopped  bool
}

func New(debounceWindow time.Duration) *Registry {
	return &Registry{
		states:   make(map[string]State),
		inflight: make(map[string]*Operation),
		batches:  make(map[string]*batch),
		timers:   make(map[string]*time.Timer),
		window:   debounceWindow,
	}
}

// State returns the recorded state for id, defaulting to idle.
func (r *Registry) State(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.states[id]; ok {
		return s
	}
	return StateIdle
}

// SetState records a state transition for id.
func (r *Registry) SetState(id string, s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[id] = s
}

// Begin claims the in-flight slot for id and marks it fetching.
//
// Returns (op, true) when the caller became the owner and must eventually
// call Finish. Returns (op, false) when another operation is already live:
// the caller should Await it instead of starting new work. Returns
// (nil, false) in the degenerate case where the state is busy but no handle
// exists; callers must back off rather than race.
func (r *Registry) Begin(id string) (*Operation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if op, ok := r.inflight[id]; ok {
		return op, false
	}

	if s := r.states[id]; s == StateFetching || s == StateCreating {
		return nil, false
	}

	op := &Operation{done: make(chan struct{})}
	r.inflight[id] = op
	r.states[id] = StateFetching
	return op, true
}

// Finish publishes the operation's result, releases the in-flight handle,
// and lands the state in idle or error. Safe to call exactly once per
// owned operation; it is the owner's deferred release path, so a failed
// attempt can never wedge an id in fetching/creating.
func (r *Registry) Finish(id string, op *Operation, p *domain.Profile, err error) {
	r.mu.Lock()
	if r.inflight[id] == op {
		delete(r.inflight, id)
	}
	if err != nil {
		r.states[id] = StateError
	} else {
		r.states[id] = StateIdle
	}
	r.mu.Unlock()

	op.profile = p
	op.err = err
	close(op.done)
}

// Coalesce joins the current create batch for id, starting one (and its
// flush timer) if none is pending. Every caller that joins before the flush
// receives the result of the single underlying fn execution.
func (r *Registry) Coalesce(id string, fn func() Result) <-chan Result {
	sub := make(chan Result, 1)

	r.mu.Lock()

	if r.stopped || r.window <= 0 {
		r.mu.Unlock()
		sub <- fn()
		return sub
	}

	if b, ok := r.batches[id]; ok {
		b.subs = append(b.subs, sub)
		r.mu.Unlock()
		return sub
	}

	b := &batch{subs: []chan Result{sub}}
	r.batches[id] = b
	r.timers[id] = time.AfterFunc(r.window, func() {
		r.flush(id, fn)
	})

	r.mu.Unlock()
	return sub
}

func (r *Registry) flush(id string, fn func() Result) {
	r.mu.Lock()
	b, ok := r.batches[id]
	delete(r.batches, id)
	delete(r.timers, id)
	r.mu.Unlock()

	if !ok {
		return
	}

	res := fn()
	for _, sub := range b.subs {
		sub <- res
	}
}

// Clear drops all bookkeeping for id, cancelling any pending batch. Joined
// batch callers receive an ErrNoSession result rather than hanging.
func (r *Registry) Clear(id string) {
	r.mu.Lock()
	delete(r.states, id)
	delete(r.inflight, id)
	b := r.batches[id]
	delete(r.batches, id)
	if t, ok := r.timers[id]; ok {
		t.Stop()
		delete(r.timers, id)
	}
	r.mu.Unlock()

	if b != nil {
		for _, sub := range b.subs {
			sub <- Result{Err: domain.ErrNoSession}
		}
	}
}

// ClearErrors resets every id currently parked in the error state back to
// idle and reports how many were cleared. Run by the janitor so a failed
// attempt does not block reconciliation forever.
func (r *Registry) ClearErrors() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.states {
		if s == StateError {
			delete(r.states, id)
			n++
		}
	}
	return n
}

// Reset clears every id. Used on sign-out.
func (r *Registry) Reset() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	for id := range r.batches {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			r.Clear(id)
		}
	}
}

// Stop tears the registry down: pending batches flush to their callers with
// ErrNoSession and no new batches are accepted.
func (r *Registry) Stop() {
	r.mu.Lock()
	r.stopped = true
	ids := make([]string, 0, len(r.batches))
	for id := range r.batches {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Clear(id)
	}
}
