package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestEnsureExistsCreatesDefaults(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	userID := uuid.New()
	ctx := context.Background()

	name := "Ada Lovelace"
	created, err := svc.EnsureExists(ctx, userID, "ada@example.com", &name)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if created.ID != userID || created.Email != "ada@example.com" {
		t.Fatalf("unexpected profile %+v", created)
	}
	if created.ThemePreference != ThemeLight || created.CustomColor != DefaultCustomColor {
		t.Fatalf("expected default theme and color, got %s %s", created.ThemePreference, created.CustomColor)
	}
	if !created.NotificationsEnabled {
		t.Fatalf("expected notifications on by default")
	}
}

func TestEnsureExistsIsIdempotent(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.EnsureExists(ctx, userID, "ada@example.com", nil)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	dark := ThemeDark
	if _, err := svc.Update(ctx, userID, UpdateInput{ThemePreference: &dark}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// A repeat call returns the existing profile untouched.
	again, err := svc.EnsureExists(ctx, userID, "other@example.com", nil)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if again.ID != first.ID || again.Email != "ada@example.com" {
		t.Fatalf("expected the existing profile, got %+v", again)
	}
	if again.ThemePreference != ThemeDark {
		t.Fatalf("expected customization preserved, got %s", again.ThemePreference)
	}
}

func TestGetMissingProfile(t *testing.T) {
	svc := NewService(NewInMemoryRepository())

	got, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing profile, got %+v", got)
	}
}

func TestUpdateValidation(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.EnsureExists(ctx, userID, "ada@example.com", nil); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	bogusTheme := ThemePreference("sepia")
	if _, err := svc.Update(ctx, userID, UpdateInput{ThemePreference: &bogusTheme}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for theme, got %v", err)
	}

	bogusColor := "rebeccapurple"
	if _, err := svc.Update(ctx, userID, UpdateInput{CustomColor: &bogusColor}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for color, got %v", err)
	}

	if _, err := svc.Update(ctx, uuid.New(), UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing profile, got %v", err)
	}
}

func TestUpdateAppliesFields(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.EnsureExists(ctx, userID, "ada@example.com", nil); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	name := "Ada"
	auto := ThemeAuto
	color := "#10B981"
	off := false
	updated, err := svc.Update(ctx, userID, UpdateInput{
		FullName:             &name,
		ThemePreference:      &auto,
		CustomColor:          &color,
		NotificationsEnabled: &off,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.FullName == nil || *updated.FullName != "Ada" {
		t.Fatalf("expected full name set, got %v", updated.FullName)
	}
	if updated.ThemePreference != ThemeAuto || updated.CustomColor != "#10B981" || updated.NotificationsEnabled {
		t.Fatalf("unexpected profile %+v", updated)
	}
}

func TestSyncEmail(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	userID := uuid.New()
	ctx := context.Background()

	// Syncing without a profile is a quiet no-op.
	if err := svc.SyncEmail(ctx, userID, "new@example.com"); err != nil {
		t.Fatalf("sync without profile failed: %v", err)
	}

	if _, err := svc.EnsureExists(ctx, userID, "old@example.com", nil); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := svc.SyncEmail(ctx, userID, "new@example.com"); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	got, err := svc.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.Email != "new@example.com" {
		t.Fatalf("expected synced email, got %+v", got)
	}
}
