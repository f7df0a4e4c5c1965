package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"taskdeck/internal/tasks"
)

func newImporter() (*CSVImporter, *tasks.Service, uuid.UUID) {
	svc := tasks.NewService(tasks.NewInMemoryRepository(nil))
	return NewCSVImporter(svc), svc, uuid.New()
}

func TestImportCreatesTasks(t *testing.T) {
	importer, svc, userID := newImporter()

	csv := strings.Join([]string{
		"title,description,priority,status,dueDate,tags",
		"Buy groceries,milk and eggs,high,pending,2025-06-01T12:00:00Z,home|errands",
		"Write report,,medium,in_progress,,work",
	}, "\n")

	summary, err := importer.Import(context.Background(), strings.NewReader(csv), userID)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.TotalRows != 2 || summary.Imported != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Failed) != 0 || len(summary.SkippedDuplicates) != 0 {
		t.Fatalf("expected a clean import, got %+v", summary)
	}

	imported, err := svc.List(context.Background(), userID, tasks.ListOptions{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(imported))
	}
	first := imported[0]
	if first.Title != "Buy groceries" || first.Priority != tasks.PriorityHigh {
		t.Fatalf("unexpected task %+v", first)
	}
	if first.DueDate == nil || len(first.Tags) != 2 {
		t.Fatalf("expected due date and split tags, got %+v", first)
	}
}

func TestImportSkipsDuplicateTitles(t *testing.T) {
	importer, svc, userID := newImporter()

	if _, err := svc.Create(context.Background(), userID, tasks.CreateInput{Title: "Buy groceries"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	csv := strings.Join([]string{
		"title,priority,status",
		"buy groceries,high,pending",
		"New task,low,pending",
		"New task,low,pending",
	}, "\n")

	summary, err := importer.Import(context.Background(), strings.NewReader(csv), userID)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("expected only the new title imported, got %d", summary.Imported)
	}
	// The existing task and the repeated row both count as duplicates.
	if len(summary.SkippedDuplicates) != 2 {
		t.Fatalf("expected 2 skipped rows, got %+v", summary.SkippedDuplicates)
	}
}

func TestImportDowngradesCompletedRows(t *testing.T) {
	importer, svc, userID := newImporter()

	csv := "title,priority,status\nDone elsewhere,medium,completed\n"
	if _, err := importer.Import(context.Background(), strings.NewReader(csv), userID); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	imported, _ := svc.List(context.Background(), userID, tasks.ListOptions{})
	if len(imported) != 1 || imported[0].Status != tasks.StatusPending {
		t.Fatalf("expected completed rows imported as pending, got %+v", imported)
	}
	if imported[0].CompletedAt != nil {
		t.Fatalf("expected no completion timestamp")
	}
}

func TestImportRejectsMissingColumns(t *testing.T) {
	importer, _, userID := newImporter()

	csv := "title,description\nNo status column,whoops\n"
	if _, err := importer.Import(context.Background(), strings.NewReader(csv), userID); !errors.Is(err, ErrInvalidCSV) {
		t.Fatalf("expected ErrInvalidCSV, got %v", err)
	}

	if _, err := importer.Import(context.Background(), strings.NewReader(""), userID); !errors.Is(err, ErrInvalidCSV) {
		t.Fatalf("expected ErrInvalidCSV for empty upload, got %v", err)
	}
}

func TestImportRecordsBadRows(t *testing.T) {
	importer, svc, userID := newImporter()

	csv := strings.Join([]string{
		"title,priority,status,dueDate",
		",high,pending,",
		"Bad date,high,pending,not-a-date",
		"Bad priority,critical,pending,",
		"Good row,low,pending,",
	}, "\n")

	summary, err := importer.Import(context.Background(), strings.NewReader(csv), userID)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("expected 1 imported row, got %d", summary.Imported)
	}
	if len(summary.Failed) != 3 {
		t.Fatalf("expected 3 failed rows, got %+v", summary.Failed)
	}
	// Row numbers count from the header line.
	if summary.Failed[0].Row != 2 {
		t.Fatalf("expected first failure at row 2, got %d", summary.Failed[0].Row)
	}

	imported, _ := svc.List(context.Background(), userID, tasks.ListOptions{})
	if len(imported) != 1 || imported[0].Title != "Good row" {
		t.Fatalf("unexpected surviving tasks %+v", imported)
	}
}
