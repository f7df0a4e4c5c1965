package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for user and credential persistence.
type Repository interface {
	// User operations
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindUserByOAuth(ctx context.Context, provider, providerID string) (*User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUserLogin(ctx context.Context, id uuid.UUID) error
	UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) error

	// Refresh session operations
	CreateRefreshSession(ctx context.Context, session RefreshSession, tokenHash string) error
	FindRefreshSessionByTokenHash(ctx context.Context, tokenHash string) (*RefreshSession, *User, error)
	DeleteRefreshSession(ctx context.Context, id uuid.UUID) error

	// Access token operations
	CreateAccessToken(ctx context.Context, token AccessToken, tokenHash string) error
	FindAccessTokenByHash(ctx context.Context, tokenHash string) (*AccessToken, *User, error)
	DeleteAccessToken(ctx context.Context, id uuid.UUID) error

	// DeleteExpiredCredentials removes refresh sessions and access tokens past
	// their expiry and returns the number of rows removed.
	DeleteExpiredCredentials(ctx context.Context) (int64, error)
}
