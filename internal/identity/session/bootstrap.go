package session

import (
	"context"
	"fmt"
	"log"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

// bootstrap performs the one-shot initial load: a single session probe under
// a hard timeout, falling back to the offline snapshot on connectivity-class
// failures. Whatever happens, loading ends up false.
func (m *Manager) bootstrap(ctx context.Context) error {
	defer m.SetLoading(false)

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	type probeResult struct {
		sess *domain.Session
		err  error
	}

	// The probe runs in its own goroutine so a transport that ignores
	// context deadlines still cannot pin the bootstrap past the timeout.
	results := make(chan probeResult, 1)
	go func() {
		sess, err := m.provider.ProbeSession(probeCtx)
		results <- probeResult{sess: sess, err: err}
	}()

	var sess *domain.Session
	select {
	case r := <-results:
		if r.err != nil {
			if domain.IsConnectivityErr(r.err) {
				return m.bootstrapOffline(ctx, r.err)
			}
			return fmt.Errorf("session probe: %w", r.err)
		}
		sess = r.sess
	case <-probeCtx.Done():
		return m.bootstrapOffline(ctx, probeCtx.Err())
	}

	if sess == nil || sess.Principal == nil {
		// Definitively signed out.
		return nil
	}

	m.AdoptSession(sess)

	profile, err := m.engine.EnsureProfile(ctx, *sess.Principal)
	if err != nil {
		// "No profile yet" is a normal intermediate state; the listener's
		// next event will reconcile again.
		log.Printf("[identity] bootstrap reconcile failed principal=%s: %v", sess.Principal.ID, err)
		return nil
	}
	if profile != nil {
		m.SetProfile(profile)
	}
	return nil
}

// bootstrapOffline adopts the last-known-good snapshot when the provider is
// unreachable. With no usable snapshot the connectivity error propagates so
// a higher-level error boundary can present recovery UI.
func (m *Manager) bootstrapOffline(ctx context.Context, cause error) error {
	m.monitor.SetOnline(false)

	snap, err := m.snaps.Load(ctx)
	if err != nil {
		log.Printf("[identity] snapshot load failed: %v", err)
	}
	if snap == nil || snap.Session == nil || snap.Session.Principal == nil {
		return fmt.Errorf("session probe unreachable and no offline snapshot: %w", cause)
	}

	log.Printf("[identity] provider unreachable, adopting offline snapshot principal=%s", snap.Session.Principal.ID)
	m.adoptLocal(snap.Session)

	// Best-effort: allowed to fail silently into "no profile yet".
	if profile, err := m.engine.EnsureProfile(ctx, *snap.Session.Principal); err == nil && profile != nil {
		m.SetProfile(profile)
	}
	return nil
}
