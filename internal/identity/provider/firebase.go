package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/PathFinder-25-26J-118/path-finder-backend/config"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

// TokenVerifier is the slice of the Firebase Auth client the provider needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// InitFirebase initializes the Firebase Admin SDK and returns an Auth client.
func InitFirebase(cfg *config.FirebaseConfig) (*auth.Client, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return authClient, nil
}

// Firebase adapts the Firebase Auth client to the Provider contract. The
// transport layer feeds it tokens via SignIn/Refresh/SignOut; it tracks the
// resulting session and fans change events out to subscribers.
type Firebase struct {
	verifier TokenVerifier

	mu      sync.Mutex
	session *domain.Session
	subs    map[int]func(domain.ChangeEvent)
	nextID  int
}

func NewFirebase(verifier TokenVerifier) *Firebase {
	return &Firebase{
		verifier: verifier,
		subs:     make(map[int]func(domain.ChangeEvent)),
	}
}

// ProbeSession re-verifies the held token against Firebase. With no held
// token it reports signed-out; a verification failure is surfaced so the
// caller can distinguish "unreachable" from "signed out".
func (f *Firebase) ProbeSession(ctx context.Context) (*domain.Session, error) {
	f.mu.Lock()
	held := f.session
	f.mu.Unlock()

	if held == nil {
		return nil, nil
	}

	token, err := f.verifier.VerifyIDToken(ctx, held.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("verify held token: %w", err)
	}

	sess := f.sessionFromToken(token, held.AccessToken, held.RefreshToken)
	f.mu.Lock()
	f.session = sess
	f.mu.Unlock()

	return sess, nil
}

// SignIn verifies a freshly presented ID token, adopts the session, and
// emits a signed_in event.
func (f *Firebase) SignIn(ctx context.Context, idToken, refreshToken string) (*domain.Session, error) {
	return f.adopt(ctx, idToken, refreshToken, domain.EventSignedIn)
}

// Refresh verifies a refreshed ID token and emits a token_refreshed event.
func (f *Firebase) Refresh(ctx context.Context, idToken string) (*domain.Session, error) {
	f.mu.Lock()
	refresh := ""
	if f.session != nil {
		refresh = f.session.RefreshToken
	}
	f.mu.Unlock()

	return f.adopt(ctx, idToken, refresh, domain.EventTokenRefreshed)
}

// SignOut drops the session and emits a signed_out event.
func (f *Firebase) SignOut() {
	f.mu.Lock()
	f.session = nil
	handlers := f.handlersLocked()
	f.mu.Unlock()

	f.emit(handlers, domain.ChangeEvent{Kind: domain.EventSignedOut})
}

// Subscribe registers a handler and immediately hands it the synthetic
// initial event describing the current session.
func (f *Firebase) Subscribe(handler func(domain.ChangeEvent)) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = handler
	current := f.session
	f.mu.Unlock()

	handler(domain.ChangeEvent{Kind: domain.EventInitial, Session: current})

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *Firebase) adopt(ctx context.Context, idToken, refreshToken string, kind domain.EventKind) (*domain.Session, error) {
	token, err := f.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	sess := f.sessionFromToken(token, idToken, refreshToken)

	f.mu.Lock()
	f.session = sess
	handlers := f.handlersLocked()
	f.mu.Unlock()

	f.emit(handlers, domain.ChangeEvent{Kind: kind, Session: sess})
	return sess, nil
}

func (f *Firebase) handlersLocked() []func(domain.ChangeEvent) {
	handlers := make([]func(domain.ChangeEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		handlers = append(handlers, fn)
	}
	return handlers
}

func (f *Firebase) emit(handlers []func(domain.ChangeEvent), ev domain.ChangeEvent) {
	for _, fn := range handlers {
		fn(ev)
	}
}

func (f *Firebase) sessionFromToken(token *auth.Token, idToken, refreshToken string) *domain.Session {
	return &domain.Session{
		AccessToken:  idToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Unix(token.Expires, 0),
		Principal:    PrincipalFromToken(token),
	}
}

// PrincipalFromToken maps Firebase token claims onto the typed principal.
// Custom claims (first_name, last_name, phone, role) are set by the
// onboarding flow; absent claims stay zero and pick up defaults at
// provisioning time.
func PrincipalFromToken(token *auth.Token) *domain.Principal {
	return &domain.Principal{
		ID:    token.UID,
		Email: claimString(token.Claims, "email"),
		Meta: domain.PrincipalMeta{
			FirstName: claimString(token.Claims, "first_name"),
			LastName:  claimString(token.Claims, "last_name"),
			Phone:     claimString(token.Claims, "phone"),
			Role:      domain.Role(claimString(token.Claims, "role")),
		},
	}
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
