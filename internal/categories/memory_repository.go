package categories

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository stores categories in an in-process map, ideal for local
// development or tests.
type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]Category
}

// NewInMemoryRepository constructs a repository seeded with optional initial categories.
func NewInMemoryRepository(initial []Category) *InMemoryRepository {
	data := make(map[uuid.UUID]Category)
	for _, c := range initial {
		data[c.ID] = c
	}
	return &InMemoryRepository{data: data}
}

// Create stores a new category.
func (r *InMemoryRepository) Create(_ context.Context, category Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[category.ID] = category
	return category, nil
}

// Get returns a category by ID, scoped to the user.
func (r *InMemoryRepository) Get(_ context.Context, userID, id uuid.UUID) (Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	category, ok := r.data[id]
	if !ok || category.UserID != userID {
		return Category{}, ErrNotFound
	}
	return category, nil
}

// List returns the user's categories ordered by name.
func (r *InMemoryRepository) List(_ context.Context, userID uuid.UUID) ([]Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Category, 0)
	for _, category := range r.data {
		if category.UserID == userID {
			out = append(out, category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update replaces an existing category.
func (r *InMemoryRepository) Update(_ context.Context, category Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[category.ID]
	if !ok || existing.UserID != category.UserID {
		return Category{}, ErrNotFound
	}
	r.data[category.ID] = category
	return category, nil
}

// Delete removes a category, scoped to the user.
func (r *InMemoryRepository) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}
