package domain

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProfileDraft(t *testing.T) {
	t.Run("defaults apply when metadata is empty", func(t *testing.T) {
		draft := NewProfileDraft("u1", "u1@example.com", PrincipalMeta{}, false)

		assert.Equal(t, "u1", draft.ID)
		assert.Equal(t, "u1@example.com", draft.Email)
		assert.Equal(t, RoleStudent, draft.Role)
		assert.Empty(t, draft.FirstName)
		assert.Empty(t, draft.LastName)
		assert.Empty(t, draft.Phone)
		assert.False(t, draft.IsVerified)
	})

	t.Run("metadata values carry through", func(t *testing.T) {
		draft := NewProfileDraft("u2", "u2@example.com", PrincipalMeta{
			FirstName: "Amara",
			LastName:  "Perera",
			Phone:     "+94771234567",
			Role:      RoleInstitution,
		}, false)

		assert.Equal(t, "Amara", draft.FirstName)
		assert.Equal(t, "Perera", draft.LastName)
		assert.Equal(t, "+94771234567", draft.Phone)
		assert.Equal(t, RoleInstitution, draft.Role)
	})

	t.Run("unknown role falls back to student", func(t *testing.T) {
		draft := NewProfileDraft("u3", "u3@example.com", PrincipalMeta{Role: Role("college")}, false)
		assert.Equal(t, RoleStudent, draft.Role)
	})

	t.Run("verification follows upstream setting", func(t *testing.T) {
		assert.True(t, NewProfileDraft("u4", "e", PrincipalMeta{}, true).IsVerified)
		assert.False(t, NewProfileDraft("u4", "e", PrincipalMeta{}, false).IsVerified)
	})
}

func TestIsConnectivityErr(t *testing.T) {
	assert.False(t, IsConnectivityErr(nil))
	assert.False(t, IsConnectivityErr(errors.New("boom")))
	assert.False(t, IsConnectivityErr(ErrProfileNotFound))
	assert.True(t, IsConnectivityErr(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}
