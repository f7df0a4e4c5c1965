package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository stores profiles in an in-process map, ideal for local
// development or tests.
type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]Profile
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[uuid.UUID]Profile)}
}

// Get returns the profile for the given user, or nil.
func (r *InMemoryRepository) Get(_ context.Context, userID uuid.UUID) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.data[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Create stores a new profile.
func (r *InMemoryRepository) Create(_ context.Context, profile Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[profile.ID] = profile
	return profile, nil
}

// Update replaces an existing profile.
func (r *InMemoryRepository) Update(_ context.Context, profile Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[profile.ID]; !ok {
		return Profile{}, ErrNotFound
	}
	r.data[profile.ID] = profile
	return profile, nil
}
