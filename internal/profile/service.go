package profile

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service orchestrates validation and persistence for profiles.
type Service struct {
	repo Repository
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the user's profile, or nil when none exists. Absence is not an
// error; profiles may be created lazily after sign-up.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

// EnsureExists creates a default profile for the user if one is missing.
func (s *Service) EnsureExists(ctx context.Context, userID uuid.UUID, email string, fullName *string) (*Profile, error) {
	existing, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	created, err := s.repo.Create(ctx, Profile{
		ID:                   userID,
		Email:                email,
		FullName:             fullName,
		ThemePreference:      ThemeLight,
		CustomColor:          DefaultCustomColor,
		NotificationsEnabled: true,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &created, nil
}

// Update applies the non-nil fields of input to the user's profile.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (*Profile, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if current == nil {
		return nil, ErrNotFound
	}

	if input.FullName != nil {
		current.FullName = input.FullName
	}
	if input.AvatarURL != nil {
		current.AvatarURL = input.AvatarURL
	}
	if input.ThemePreference != nil {
		switch *input.ThemePreference {
		case ThemeLight, ThemeDark, ThemeAuto:
			current.ThemePreference = *input.ThemePreference
		default:
			return nil, &ValidationError{Message: "invalid theme preference"}
		}
	}
	if input.CustomColor != nil {
		if !hexColorPattern.MatchString(*input.CustomColor) {
			return nil, &ValidationError{Message: "custom color must be a #RRGGBB value"}
		}
		current.CustomColor = *input.CustomColor
	}
	if input.NotificationsEnabled != nil {
		current.NotificationsEnabled = *input.NotificationsEnabled
	}

	current.UpdatedAt = time.Now()
	updated, err := s.repo.Update(ctx, *current)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &updated, nil
}

// SyncEmail mirrors an identity email change into the profile, if one exists.
func (s *Service) SyncEmail(ctx context.Context, userID uuid.UUID, email string) error {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if current == nil {
		return nil
	}

	current.Email = email
	current.UpdatedAt = time.Now()
	if _, err := s.repo.Update(ctx, *current); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
