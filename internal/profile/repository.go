package profile

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for profile persistence.
type Repository interface {
	// Get returns the profile for the given user, or nil when none exists.
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Create(ctx context.Context, profile Profile) (Profile, error)
	Update(ctx context.Context, profile Profile) (Profile, error)
}
