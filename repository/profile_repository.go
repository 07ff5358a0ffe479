package repository

import (
	"context"
	"fmt"

	"bety/database"
	"bety/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository implements profile data access
type ProfileRepository struct {
	q queryable
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{q: db.Pool}
}

// newProfileRepositoryWithTx creates a new profile repository with a transaction
func newProfileRepositoryWithTx(tx queryable) *ProfileRepository {
	return &ProfileRepository{q: tx}
}

const profileColumns = `id, name, email, password_hash, bio, phone, gender, role, points, avatar_url, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.PasswordHash,
		&p.Bio,
		&p.Phone,
		&p.Gender,
		&p.Role,
		&p.Points,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new profile. The id and timestamps are assigned by the
// database and written back onto the struct.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (name, email, password_hash, bio, phone, gender, role, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, points, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		profile.Name,
		profile.Email,
		profile.PasswordHash,
		profile.Bio,
		profile.Phone,
		profile.Gender,
		profile.Role,
		profile.AvatarURL,
	).Scan(&profile.ID, &profile.Points, &profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create profile for %s: %w", profile.Email, err)
	}

	return nil
}

// GetByID retrieves a profile by id, returning nil when absent
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := scanProfile(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	return profile, nil
}

// GetByEmail retrieves a profile by email, returning nil when absent
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

	profile, err := scanProfile(r.q.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}
	return profile, nil
}

// Update persists the mutable profile fields
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET name = $1, bio = $2, phone = $3, gender = $4, avatar_url = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		profile.Name,
		profile.Bio,
		profile.Phone,
		profile.Gender,
		profile.AvatarURL,
		profile.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile %s: %w", profile.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("profile %s not found", profile.ID)
	}

	return nil
}

// List returns all profiles except the given one, newest first
func (r *ProfileRepository) List(ctx context.Context, excludeID uuid.UUID) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id <> $1 ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		var p models.Profile
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Email,
			&p.PasswordHash,
			&p.Bio,
			&p.Phone,
			&p.Gender,
			&p.Role,
			&p.Points,
			&p.AvatarURL,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// AddPoints atomically adjusts a profile's points counter
func (r *ProfileRepository) AddPoints(ctx context.Context, id uuid.UUID, delta int) error {
	query := `
		UPDATE profiles
		SET points = points + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to add points for profile %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("profile %s not found", id)
	}

	return nil
}
