package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository stores users and credentials in process memory, ideal for
// local development or tests.
type InMemoryRepository struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]User
	sessions      map[uuid.UUID]RefreshSession
	sessionHashes map[string]uuid.UUID
	tokens        map[uuid.UUID]AccessToken
	tokenHashes   map[string]uuid.UUID
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:         make(map[uuid.UUID]User),
		sessions:      make(map[uuid.UUID]RefreshSession),
		sessionHashes: make(map[string]uuid.UUID),
		tokens:        make(map[uuid.UUID]AccessToken),
		tokenHashes:   make(map[string]uuid.UUID),
	}
}

// FindUserByEmail returns the user with the given email, or nil.
func (r *InMemoryRepository) FindUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// FindUserByID returns the user with the given ID, or nil.
func (r *InMemoryRepository) FindUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// FindUserByOAuth returns the user for the given OAuth identity, or nil.
func (r *InMemoryRepository) FindUserByOAuth(_ context.Context, provider, providerID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.OAuthProvider == provider && user.OAuthProviderID == providerID {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// CreateUser stores a new user.
func (r *InMemoryRepository) CreateUser(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.ID] = user
	return user, nil
}

// UpdateUserLogin bumps the user's last-login timestamp.
func (r *InMemoryRepository) UpdateUserLogin(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil
	}
	now := time.Now()
	user.LastLoginAt = now
	user.UpdatedAt = now
	r.users[id] = user
	return nil
}

// UpdateUserEmail changes the user's email address.
func (r *InMemoryRepository) UpdateUserEmail(_ context.Context, id uuid.UUID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil
	}
	user.Email = email
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

// CreateRefreshSession stores a new refresh session under its token hash.
func (r *InMemoryRepository) CreateRefreshSession(_ context.Context, session RefreshSession, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	r.sessionHashes[tokenHash] = session.ID
	return nil
}

// FindRefreshSessionByTokenHash looks up a refresh session and its user.
func (r *InMemoryRepository) FindRefreshSessionByTokenHash(_ context.Context, tokenHash string) (*RefreshSession, *User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.sessionHashes[tokenHash]
	if !ok {
		return nil, nil, nil
	}
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil, nil
	}
	user, ok := r.users[session.UserID]
	if !ok {
		return nil, nil, nil
	}
	return &session, &user, nil
}

// DeleteRefreshSession removes a refresh session and its access tokens.
func (r *InMemoryRepository) DeleteRefreshSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteSessionLocked(id)
	return nil
}

// CreateAccessToken stores a new access token under its token hash.
func (r *InMemoryRepository) CreateAccessToken(_ context.Context, token AccessToken, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.ID] = token
	r.tokenHashes[tokenHash] = token.ID
	return nil
}

// FindAccessTokenByHash looks up an access token and its user.
func (r *InMemoryRepository) FindAccessTokenByHash(_ context.Context, tokenHash string) (*AccessToken, *User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.tokenHashes[tokenHash]
	if !ok {
		return nil, nil, nil
	}
	token, ok := r.tokens[id]
	if !ok {
		return nil, nil, nil
	}
	user, ok := r.users[token.UserID]
	if !ok {
		return nil, nil, nil
	}
	return &token, &user, nil
}

// DeleteAccessToken removes an access token.
func (r *InMemoryRepository) DeleteAccessToken(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteTokenLocked(id)
	return nil
}

// DeleteExpiredCredentials removes expired refresh sessions and access tokens.
func (r *InMemoryRepository) DeleteExpiredCredentials(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var removed int64

	for id, session := range r.sessions {
		if now.After(session.ExpiresAt) {
			r.deleteSessionLocked(id)
			removed++
		}
	}
	for id, token := range r.tokens {
		if now.After(token.ExpiresAt) {
			r.deleteTokenLocked(id)
			removed++
		}
	}

	return removed, nil
}

func (r *InMemoryRepository) deleteSessionLocked(id uuid.UUID) {
	delete(r.sessions, id)
	for hash, sessionID := range r.sessionHashes {
		if sessionID == id {
			delete(r.sessionHashes, hash)
		}
	}
	for tokenID, token := range r.tokens {
		if token.SessionID == id {
			r.deleteTokenLocked(tokenID)
		}
	}
}

func (r *InMemoryRepository) deleteTokenLocked(id uuid.UUID) {
	delete(r.tokens, id)
	for hash, tokenID := range r.tokenHashes {
		if tokenID == id {
			delete(r.tokenHashes, hash)
		}
	}
}
