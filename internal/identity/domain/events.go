package domain

// EventKind classifies a session-change notification from the provider.
type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventSignedOut      EventKind = "signed_out"
	// EventInitial is the synthetic event a provider emits to new
	// subscribers describing the already-current session.
	EventInitial EventKind = "initial"
	EventOther   EventKind = "other"
)

// ChangeEvent is one entry in the provider's session-change stream.
// Session is nil for sign-out events.
type ChangeEvent struct {
	Kind    EventKind
	Session *Session
}
