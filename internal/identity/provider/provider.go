package provider

import (
	"context"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

// Provider is the identity-provider contract the engine consumes: a one-shot
// session probe and a subscribable stream of session-change notifications.
type Provider interface {
	// ProbeSession asks the provider for the current session. (nil, nil)
	// means "definitively signed out"; an error means the answer is unknown.
	ProbeSession(ctx context.Context) (*domain.Session, error)

	// Subscribe registers a change handler and returns its unsubscribe func.
	// New subscribers immediately receive a synthetic initial event carrying
	// the current session.
	Subscribe(handler func(domain.ChangeEvent)) func()
}
