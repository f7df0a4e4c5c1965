package categories

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

// Create inserts a new category into the database.
func (r *PostgresRepository) Create(ctx context.Context, category Category) (Category, error) {
	const query = `
		INSERT INTO categories (id, user_id, name, color, icon, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		category.ID,
		category.UserID,
		category.Name,
		category.Color,
		category.Icon,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		return Category{}, err
	}

	return category, nil
}

// Get returns a category by ID, scoped to the user.
func (r *PostgresRepository) Get(ctx context.Context, userID, id uuid.UUID) (Category, error) {
	const query = `
		SELECT id, user_id, name, color, icon, created_at, updated_at
		FROM categories
		WHERE id = $1 AND user_id = $2
	`

	var category Category
	if err := r.db.GetContext(ctx, &category, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}

	return category, nil
}

// List returns the user's categories ordered by name.
func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	const query = `
		SELECT id, user_id, name, color, icon, created_at, updated_at
		FROM categories
		WHERE user_id = $1
		ORDER BY name
	`

	out := make([]Category, 0)
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, err
	}

	return out, nil
}

// Update replaces an existing category.
func (r *PostgresRepository) Update(ctx context.Context, category Category) (Category, error) {
	const query = `
		UPDATE categories
		SET name = $3, color = $4, icon = $5, updated_at = $6
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		category.ID,
		category.UserID,
		category.Name,
		category.Color,
		category.Icon,
		category.UpdatedAt,
	)
	if err != nil {
		return Category{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Category{}, err
	}
	if affected == 0 {
		return Category{}, ErrNotFound
	}

	return category, nil
}

// Delete removes a category, scoped to the user.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const query = `DELETE FROM categories WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
