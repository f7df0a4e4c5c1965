package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the profile for the given user, or nil.
func (r *PostgresRepository) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	const query = `
		SELECT id, email, full_name, avatar_url, theme_preference, custom_color, notifications_enabled, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p Profile
	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &p, nil
}

// Create inserts a new profile into the database.
func (r *PostgresRepository) Create(ctx context.Context, profile Profile) (Profile, error) {
	const query = `
		INSERT INTO profiles (id, email, full_name, avatar_url, theme_preference, custom_color, notifications_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.AvatarURL,
		profile.ThemePreference,
		profile.CustomColor,
		profile.NotificationsEnabled,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}

	return profile, nil
}

// Update replaces an existing profile.
func (r *PostgresRepository) Update(ctx context.Context, profile Profile) (Profile, error) {
	const query = `
		UPDATE profiles
		SET email = $2, full_name = $3, avatar_url = $4, theme_preference = $5, custom_color = $6, notifications_enabled = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.AvatarURL,
		profile.ThemePreference,
		profile.CustomColor,
		profile.NotificationsEnabled,
		profile.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Profile{}, err
	}
	if affected == 0 {
		return Profile{}, ErrNotFound
	}

	return profile, nil
}
