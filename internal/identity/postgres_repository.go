package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

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

const userColumns = `id, email, password_hash, oauth_provider, oauth_provider_id, confirmed_at, created_at, updated_at, last_login_at`

// FindUserByEmail looks up a user by their email address.
func (r *PostgresRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// FindUserByID looks up a user by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// FindUserByOAuth looks up a user by their OAuth provider and provider ID.
func (r *PostgresRepository) FindUserByOAuth(ctx context.Context, provider, providerID string) (*User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE oauth_provider = $1 AND oauth_provider_id = $2`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, provider, providerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return row.toUser(), nil
}

// CreateUser inserts a new user into the database.
func (r *PostgresRepository) CreateUser(ctx context.Context, user User) (User, error) {
	const query = `
		INSERT INTO users (id, email, password_hash, oauth_provider, oauth_provider_id, confirmed_at, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.OAuthProvider,
		user.OAuthProviderID,
		user.ConfirmedAt,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// UpdateUserLogin bumps the user's last-login timestamp.
func (r *PostgresRepository) UpdateUserLogin(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE users SET last_login_at = $2, updated_at = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, time.Now())
	return err
}

// UpdateUserEmail changes the user's email address.
func (r *PostgresRepository) UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) error {
	const query = `UPDATE users SET email = $2, updated_at = $3 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, email, time.Now())
	return err
}

// CreateRefreshSession inserts a new refresh session into the database.
func (r *PostgresRepository) CreateRefreshSession(ctx context.Context, session RefreshSession, tokenHash string) error {
	const query = `
		INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		tokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.UserAgent,
		session.IPAddress,
	)
	return err
}

// FindRefreshSessionByTokenHash looks up a refresh session and its associated user by token hash.
func (r *PostgresRepository) FindRefreshSessionByTokenHash(ctx context.Context, tokenHash string) (*RefreshSession, *User, error) {
	const query = `
		SELECT
			s.id, s.user_id, s.expires_at, s.created_at, s.user_agent, s.ip_address,
			u.email, u.password_hash, u.oauth_provider, u.oauth_provider_id, u.confirmed_at,
			u.created_at AS user_created_at, u.updated_at AS user_updated_at, u.last_login_at
		FROM refresh_sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token_hash = $1
	`

	var row sessionUserRow
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	return row.toSession(), row.toUser(), nil
}

// DeleteRefreshSession removes a refresh session; access tokens cascade.
func (r *PostgresRepository) DeleteRefreshSession(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM refresh_sessions WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// CreateAccessToken inserts a new access token into the database.
func (r *PostgresRepository) CreateAccessToken(ctx context.Context, token AccessToken, tokenHash string) error {
	const query = `
		INSERT INTO access_tokens (id, session_id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.SessionID,
		token.UserID,
		tokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

// FindAccessTokenByHash looks up an access token and its associated user by token hash.
func (r *PostgresRepository) FindAccessTokenByHash(ctx context.Context, tokenHash string) (*AccessToken, *User, error) {
	const query = `
		SELECT
			t.id, t.session_id, t.user_id, t.expires_at, t.created_at,
			u.email, u.password_hash, u.oauth_provider, u.oauth_provider_id, u.confirmed_at,
			u.created_at AS user_created_at, u.updated_at AS user_updated_at, u.last_login_at
		FROM access_tokens t
		JOIN users u ON t.user_id = u.id
		WHERE t.token_hash = $1
	`

	var row tokenUserRow
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	return row.toToken(), row.toUser(), nil
}

// DeleteAccessToken removes an access token from the database.
func (r *PostgresRepository) DeleteAccessToken(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM access_tokens WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// DeleteExpiredCredentials removes all expired refresh sessions and access tokens.
func (r *PostgresRepository) DeleteExpiredCredentials(ctx context.Context) (int64, error) {
	now := time.Now()

	sessions, err := r.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	removed, err := sessions.RowsAffected()
	if err != nil {
		return 0, err
	}

	tokens, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return removed, err
	}
	tokenCount, err := tokens.RowsAffected()
	if err != nil {
		return removed, err
	}

	return removed + tokenCount, nil
}

// userRow is a database row representation of User.
type userRow struct {
	ID              uuid.UUID  `db:"id"`
	Email           string     `db:"email"`
	PasswordHash    string     `db:"password_hash"`
	OAuthProvider   string     `db:"oauth_provider"`
	OAuthProviderID string     `db:"oauth_provider_id"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	LastLoginAt     time.Time  `db:"last_login_at"`
}

func (r *userRow) toUser() *User {
	return &User{
		ID:              r.ID,
		Email:           r.Email,
		PasswordHash:    r.PasswordHash,
		OAuthProvider:   r.OAuthProvider,
		OAuthProviderID: r.OAuthProviderID,
		ConfirmedAt:     r.ConfirmedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		LastLoginAt:     r.LastLoginAt,
	}
}

// sessionUserRow is a database row for the refresh session + user join query.
type sessionUserRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UserAgent string    `db:"user_agent"`
	IPAddress string    `db:"ip_address"`

	Email           string     `db:"email"`
	PasswordHash    string     `db:"password_hash"`
	OAuthProvider   string     `db:"oauth_provider"`
	OAuthProviderID string     `db:"oauth_provider_id"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	UserCreatedAt   time.Time  `db:"user_created_at"`
	UserUpdatedAt   time.Time  `db:"user_updated_at"`
	LastLoginAt     time.Time  `db:"last_login_at"`
}

func (r *sessionUserRow) toSession() *RefreshSession {
	return &RefreshSession{
		ID:        r.ID,
		UserID:    r.UserID,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
	}
}

func (r *sessionUserRow) toUser() *User {
	return &User{
		ID:              r.UserID,
		Email:           r.Email,
		PasswordHash:    r.PasswordHash,
		OAuthProvider:   r.OAuthProvider,
		OAuthProviderID: r.OAuthProviderID,
		ConfirmedAt:     r.ConfirmedAt,
		CreatedAt:       r.UserCreatedAt,
		UpdatedAt:       r.UserUpdatedAt,
		LastLoginAt:     r.LastLoginAt,
	}
}

// tokenUserRow is a database row for the access token + user join query.
type tokenUserRow struct {
	ID        uuid.UUID `db:"id"`
	SessionID uuid.UUID `db:"session_id"`
	UserID    uuid.UUID `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`

	Email           string     `db:"email"`
	PasswordHash    string     `db:"password_hash"`
	OAuthProvider   string     `db:"oauth_provider"`
	OAuthProviderID string     `db:"oauth_provider_id"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	UserCreatedAt   time.Time  `db:"user_created_at"`
	UserUpdatedAt   time.Time  `db:"user_updated_at"`
	LastLoginAt     time.Time  `db:"last_login_at"`
}

func (r *tokenUserRow) toToken() *AccessToken {
	return &AccessToken{
		ID:        r.ID,
		SessionID: r.SessionID,
		UserID:    r.UserID,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
	}
}

func (r *tokenUserRow) toUser() *User {
	return &User{
		ID:              r.UserID,
		Email:           r.Email,
		PasswordHash:    r.PasswordHash,
		OAuthProvider:   r.OAuthProvider,
		OAuthProviderID: r.OAuthProviderID,
		ConfirmedAt:     r.ConfirmedAt,
		CreatedAt:       r.UserCreatedAt,
		UpdatedAt:       r.UserUpdatedAt,
		LastLoginAt:     r.LastLoginAt,
	}
}
