package domain

import "time"

// Role tags a profile with its authorization group.
type Role string

const (
	RoleStudent     Role = "student"
	RoleAdmin       Role = "admin"
	RoleInstitution Role = "institution"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleInstitution:
		return true
	}
	return false
}

// Profile is the locally provisioned application record for a principal.
// Its ID is the principal id; exactly one profile exists per principal.
type Profile struct {
	ID         string    `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	Phone      string    `json:"phone" db:"phone"`
	Role       Role      `json:"role" db:"role"`
	IsVerified bool      `json:"is_verified" db:"is_verified"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// PrincipalMeta carries the optional attributes the identity provider knows
// about a principal. Zero values mean "not supplied"; defaulting rules live
// in NewProfileDraft.
type PrincipalMeta struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role,omitempty"`
}

// Principal is the remote identity record established by authentication.
// Read-only from the engine's perspective.
type Principal struct {
	ID    string        `json:"id"`
	Email string        `json:"email"`
	Meta  PrincipalMeta `json:"meta"`
}

// Session is the credential bundle proving an authenticated connection.
// It is replaced wholesale on every provider event and nilled on sign-out.
type Session struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Principal    *Principal `json:"principal"`
}

// ProfileDraft is the insert payload for a profile that does not exist yet.
type ProfileDraft struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Role       Role
	IsVerified bool
}

// NewProfileDraft derives insert defaults from provider metadata:
// role falls back to student, names and phone fall back to empty, and the
// profile starts verified only when upstream email verification is disabled.
func NewProfileDraft(principalID, email string, meta PrincipalMeta, emailVerificationDisabled bool) ProfileDraft {
	role := meta.Role
	if !role.Valid() {
		role = RoleStudent
	}

	return ProfileDraft{
		ID:         principalID,
		Email:      email,
		FirstName:  meta.FirstName,
		LastName:   meta.LastName,
		Phone:      meta.Phone,
		Role:       role,
		IsVerified: emailVerificationDisabled,
	}
}
