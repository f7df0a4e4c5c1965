package categories

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for category persistence. All lookups are
// scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, category Category) (Category, error)
	Get(ctx context.Context, userID, id uuid.UUID) (Category, error)
	List(ctx context.Context, userID uuid.UUID) ([]Category, error)
	Update(ctx context.Context, category Category) (Category, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
