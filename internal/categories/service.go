package categories

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxNameLength = 100

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service orchestrates validation and persistence for categories.
type Service struct {
	repo Repository
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new category for the user.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Category{}, &ValidationError{Message: "name is required"}
	}
	if len(name) > maxNameLength {
		return Category{}, &ValidationError{Message: "name too long"}
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = "#8B5CF6"
	} else if !hexColorPattern.MatchString(color) {
		return Category{}, &ValidationError{Message: "color must be a #RRGGBB value"}
	}

	icon := strings.TrimSpace(input.Icon)
	if icon == "" {
		icon = "folder"
	}

	now := time.Now()
	return s.repo.Create(ctx, Category{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Color:     color,
		Icon:      icon,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// List returns the user's categories.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Category, error) {
	return s.repo.List(ctx, userID)
}

// Update applies the non-nil fields of input to the user's category.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (Category, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Category{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Category{}, &ValidationError{Message: "name is required"}
		}
		if len(name) > maxNameLength {
			return Category{}, &ValidationError{Message: "name too long"}
		}
		current.Name = name
	}
	if input.Color != nil {
		if !hexColorPattern.MatchString(*input.Color) {
			return Category{}, &ValidationError{Message: "color must be a #RRGGBB value"}
		}
		current.Color = *input.Color
	}
	if input.Icon != nil {
		icon := strings.TrimSpace(*input.Icon)
		if icon == "" {
			return Category{}, &ValidationError{Message: "icon is required"}
		}
		current.Icon = icon
	}

	current.UpdatedAt = time.Now()
	return s.repo.Update(ctx, current)
}

// Delete removes the user's category. Tasks keep running; their category
// reference is cleared by the task store.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
