package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/domain"
)

// uniqueViolation is the Postgres error code raised when an insert loses a
// race against another writer on the primary key.
const uniqueViolation = "23505"

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID retrieves a profile by principal id. A missing row is reported as
// domain.ErrProfileNotFound, never as a bare sql error, so callers can tell
// "genuinely absent" apart from "fetch failed".
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, email, first_name, last_name, phone, role, is_verified,
		       created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p domain.Profile
	var firstName, lastName, phone sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.Email,
		&firstName,
		&lastName,
		&phone,
		&p.Role,
		&p.IsVerified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile %s: %w", id, err)
	}

	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.Phone = phone.String

	return &p, nil
}

// Insert creates a new profile row. A uniqueness violation is reported as
// domain.ErrProfileExists so the reconciler can run its conflict-recovery
// path instead of treating the race as a failure.
func (r *ProfileRepository) Insert(ctx context.Context, draft domain.ProfileDraft) (*domain.Profile, error) {
	query := `
		INSERT INTO profiles (id, email, first_name, last_name, phone, role, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	p := domain.Profile{
		ID:         draft.ID,
		Email:      draft.Email,
		FirstName:  draft.FirstName,
		LastName:   draft.LastName,
		Phone:      draft.Phone,
		Role:       draft.Role,
		IsVerified: draft.IsVerified,
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		draft.ID,
		draft.Email,
		draft.FirstName,
		draft.LastName,
		draft.Phone,
		draft.Role,
		draft.IsVerified,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, domain.ErrProfileExists
		}
		return nil, fmt.Errorf("insert profile %s: %w", draft.ID, err)
	}

	return &p, nil
}

// Update rewrites the mutable profile fields. Used by the settings surface,
// not by the reconciliation engine itself.
func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	query := `
		UPDATE profiles
		SET first_name = $2, last_name = $3, phone = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, p.ID, p.FirstName, p.LastName, p.Phone).
		Scan(&p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("update profile %s: %w", p.ID, err)
	}

	return nil
}
