package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

// stubVerifier resolves tokens from a fixed table.
type stubVerifier struct {
	tokens map[string]*auth.Token
	err    error
}

func (v *stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if v.err != nil {
		return nil, v.err
	}
	tok, ok := v.tokens[idToken]
	if !ok {
		return nil, errors.New("token not recognized")
	}
	return tok, nil
}

func fbToken(uid string, claims map[string]interface{}) *auth.Token {
	if claims == nil {
		claims = map[string]interface{}{}
	}
	return &auth.Token{
		UID:     uid,
		Claims:  claims,
		Expires: time.Now().Add(time.Hour).Unix(),
	}
}

func TestFirebase_SignInEmitsEvent(t *testing.T) {
	v := &stubVerifier{tokens: map[string]*auth.Token{
		"id-1": fbToken("u1", map[string]interface{}{"email": "u1@example.com"}),
	}}
	f := NewFirebase(v)

	var events []domain.ChangeEvent
	unsub := f.Subscribe(func(ev domain.ChangeEvent) { events = append(events, ev) })
	defer unsub()

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventInitial, events[0].Kind)
	assert.Nil(t, events[0].Session)

	sess, err := f.SignIn(context.Background(), "id-1", "refresh-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "u1", sess.Principal.ID)
	assert.Equal(t, "u1@example.com", sess.Principal.Email)
	assert.Equal(t, "refresh-1", sess.RefreshToken)

	require.Len(t, events, 2)
	assert.Equal(t, domain.EventSignedIn, events[1].Kind)
	assert.Same(t, sess, events[1].Session)
}

func TestFirebase_SignInRejectsBadToken(t *testing.T) {
	f := NewFirebase(&stubVerifier{err: errors.New("expired")})

	sess, err := f.SignIn(context.Background(), "bad", "")
	assert.Nil(t, sess)
	assert.Error(t, err)
}

func TestFirebase_RefreshKeepsRefreshToken(t *testing.T) {
	v := &stubVerifier{tokens: map[string]*auth.Token{
		"id-1": fbToken("u1", nil),
		"id-2": fbToken("u1", nil),
	}}
	f := NewFirebase(v)

	_, err := f.SignIn(context.Background(), "id-1", "refresh-1")
	require.NoError(t, err)

	var got domain.ChangeEvent
	unsub := f.Subscribe(func(ev domain.ChangeEvent) { got = ev })
	defer unsub()

	sess, err := f.Refresh(context.Background(), "id-2")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", sess.RefreshToken, "refresh reuses the held refresh token")
	assert.Equal(t, domain.EventTokenRefreshed, got.Kind)
}

func TestFirebase_SignOut(t *testing.T) {
	v := &stubVerifier{tokens: map[string]*auth.Token{"id-1": fbToken("u1", nil)}}
	f := NewFirebase(v)

	_, err := f.SignIn(context.Background(), "id-1", "")
	require.NoError(t, err)

	var got domain.ChangeEvent
	unsub := f.Subscribe(func(ev domain.ChangeEvent) { got = ev })
	defer unsub()

	f.SignOut()

	assert.Equal(t, domain.EventSignedOut, got.Kind)
	assert.Nil(t, got.Session)

	sess, err := f.ProbeSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess, "after sign-out the probe reports signed out")
}

func TestFirebase_ProbeSession(t *testing.T) {
	t.Run("no held token means signed out", func(t *testing.T) {
		f := NewFirebase(&stubVerifier{})

		sess, err := f.ProbeSession(context.Background())
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("re-verifies the held token", func(t *testing.T) {
		v := &stubVerifier{tokens: map[string]*auth.Token{"id-1": fbToken("u1", nil)}}
		f := NewFirebase(v)

		_, err := f.SignIn(context.Background(), "id-1", "")
		require.NoError(t, err)

		sess, err := f.ProbeSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, "u1", sess.Principal.ID)
	})

	t.Run("verification failure surfaces as error", func(t *testing.T) {
		v := &stubVerifier{tokens: map[string]*auth.Token{"id-1": fbToken("u1", nil)}}
		f := NewFirebase(v)

		_, err := f.SignIn(context.Background(), "id-1", "")
		require.NoError(t, err)

		v.err = errors.New("service unavailable")

		sess, err := f.ProbeSession(context.Background())
		assert.Nil(t, sess)
		assert.Error(t, err)
	})
}

func TestFirebase_UnsubscribeStopsEvents(t *testing.T) {
	v := &stubVerifier{tokens: map[string]*auth.Token{"id-1": fbToken("u1", nil)}}
	f := NewFirebase(v)

	count := 0
	unsub := f.Subscribe(func(domain.ChangeEvent) { count++ })
	require.Equal(t, 1, count)

	unsub()

	_, err := f.SignIn(context.Background(), "id-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPrincipalFromToken(t *testing.T) {
	tok := fbToken("u9", map[string]interface{}{
		"email":      "u9@example.com",
		"first_name": "Sahan",
		"last_name":  "Jayasuriya",
		"phone":      "+94771234567",
		"role":       "admin",
		"aud":        12345, // non-string claims are ignored
	})

	p := PrincipalFromToken(tok)
	assert.Equal(t, "u9", p.ID)
	assert.Equal(t, "u9@example.com", p.Email)
	assert.Equal(t, "Sahan", p.Meta.FirstName)
	assert.Equal(t, "Jayasuriya", p.Meta.LastName)
	assert.Equal(t, "+94771234567", p.Meta.Phone)
	assert.Equal(t, domain.RoleAdmin, p.Meta.Role)
}
