package categories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCreateAppliesDefaults(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil))
	userID := uuid.New()

	category, err := svc.Create(context.Background(), userID, CreateInput{Name: "  Work  "})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if category.Name != "Work" {
		t.Fatalf("expected trimmed name, got %q", category.Name)
	}
	if category.Color != "#8B5CF6" || category.Icon != "folder" {
		t.Fatalf("expected default color and icon, got %q %q", category.Color, category.Icon)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil))
	userID := uuid.New()
	ctx := context.Background()

	if _, err := svc.Create(ctx, userID, CreateInput{Name: "  "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}
	if _, err := svc.Create(ctx, userID, CreateInput{Name: "Work", Color: "purple"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for non-hex color, got %v", err)
	}
	if _, err := svc.Create(ctx, userID, CreateInput{Name: "Work", Color: "#3B82F6"}); err != nil {
		t.Fatalf("expected valid hex color accepted, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil))
	userID := uuid.New()
	ctx := context.Background()

	category, err := svc.Create(ctx, userID, CreateInput{Name: "Work"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	name := "Office"
	color := "#10B981"
	updated, err := svc.Update(ctx, userID, category.ID, UpdateInput{Name: &name, Color: &color})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Office" || updated.Color != "#10B981" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.Icon != "folder" {
		t.Fatalf("expected icon untouched, got %q", updated.Icon)
	}

	bad := "not-a-color"
	if _, err := svc.Update(ctx, userID, category.ID, UpdateInput{Color: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCategoriesAreScopedToTheirOwner(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil))
	ctx := context.Background()

	category, err := svc.Create(ctx, uuid.New(), CreateInput{Name: "Work"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	name := "Stolen"
	if _, err := svc.Update(ctx, uuid.New(), category.ID, UpdateInput{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected another user's update to miss, got %v", err)
	}
	if err := svc.Delete(ctx, uuid.New(), category.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected another user's delete to miss, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil))
	userID := uuid.New()
	ctx := context.Background()

	category, err := svc.Create(ctx, userID, CreateInput{Name: "Work"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.Delete(ctx, userID, category.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	listed, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected empty list after delete, got %v", listed)
	}

	if err := svc.Delete(ctx, userID, category.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeated delete, got %v", err)
	}
}
