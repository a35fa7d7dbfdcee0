package listener

import (
	"context"
	"log"
	"sync"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/connectivity"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/reconcile"
)

// StateSink is the shared identity state the listener reconciles into.
// Implemented by session.Manager.
type StateSink interface {
	CurrentSession() *domain.Session
	AdoptSession(s *domain.Session)
	SetProfile(p *domain.Profile)
	ClearIdentity()
	SetLoading(loading bool)
}

// Listener consumes the provider's session-change stream and funnels
// principal ids into the reconciliation engine.
type Listener struct {
	sink    StateSink
	engine  *reconcile.Engine
	monitor *connectivity.Monitor

	// busy is the re-entrancy guard: events arriving while one is being
	// processed are dropped, not queued. The next natural event reconciles
	// to the correct end state, so dropping cannot lose identity changes
	// but does prevent event cascades.
	busy sync.Mutex
}

func New(sink StateSink, engine *reconcile.Engine, monitor *connectivity.Monitor) *Listener {
	return &Listener{
		sink:    sink,
		engine:  engine,
		monitor: monitor,
	}
}

// Handle processes one session-change event. It is the handler passed to
// Provider.Subscribe.
func (l *Listener) Handle(ev domain.ChangeEvent) {
	if !l.busy.TryLock() {
		log.Printf("[identity] dropping %s event: another event in flight", ev.Kind)
		return
	}
	defer l.busy.Unlock()

	// Whatever else happens, an event means the provider is responsive:
	// the loading flag comes down.
	defer l.sink.SetLoading(false)

	switch ev.Kind {
	case domain.EventInitial:
		// Bootstrap already derived this state; re-deriving it here would
		// duplicate or loop the work.
		return
	case domain.EventSignedOut:
		l.sink.ClearIdentity()
		l.engine.Forget("")
		return
	}

	if ev.Session == nil || ev.Session.Principal == nil {
		return
	}

	if l.isNoop(ev.Session) {
		return
	}

	if ev.Kind == domain.EventTokenRefreshed && !l.monitor.Online() {
		// A refreshed token cannot be meaningfully validated offline.
		log.Printf("[identity] ignoring token refresh while offline principal=%s", ev.Session.Principal.ID)
		return
	}

	l.sink.AdoptSession(ev.Session)

	profile, err := l.engine.EnsureProfile(context.Background(), *ev.Session.Principal)
	if err != nil {
		// Absence of a profile is a normal intermediate state; the next
		// event or explicit ensure will try again.
		log.Printf("[identity] reconcile failed principal=%s event=%s: %v", ev.Session.Principal.ID, ev.Kind, err)
		return
	}
	if profile != nil {
		l.sink.SetProfile(profile)
	}
}

// isNoop reports whether the event's session matches the held one in both
// principal id and credential token. Such events skip all downstream work,
// including cache and registry access.
func (l *Listener) isNoop(next *domain.Session) bool {
	cur := l.sink.CurrentSession()
	if cur == nil || cur.Principal == nil {
		return false
	}
	return cur.Principal.ID == next.Principal.ID && cur.AccessToken == next.AccessToken
}
