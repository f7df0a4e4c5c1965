package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for task and subtask persistence. All
// lookups are scoped to the owning user.
type Repository interface {
	// Task operations
	Create(ctx context.Context, task Task) (Task, error)
	Get(ctx context.Context, userID, id uuid.UUID) (Task, error)
	List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Task, error)
	Update(ctx context.Context, task Task) (Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error

	// NextPosition returns the position for a task appended to the user's list.
	NextPosition(ctx context.Context, userID uuid.UUID) (int, error)

	// UpdatePositions reorders the given tasks to match the slice order.
	// Unknown or foreign IDs are ignored.
	UpdatePositions(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error

	// ClearCategory detaches all of the user's tasks from the given category.
	ClearCategory(ctx context.Context, userID, categoryID uuid.UUID) error

	// DueBetween returns non-archived tasks with a due date in [from, to).
	DueBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Task, error)

	// Overdue returns unfinished tasks whose due date has passed.
	Overdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]Task, error)

	// Subtask operations
	CreateSubtask(ctx context.Context, userID uuid.UUID, subtask Subtask) (Subtask, error)
	GetSubtask(ctx context.Context, userID, id uuid.UUID) (Subtask, error)
	UpdateSubtask(ctx context.Context, userID uuid.UUID, subtask Subtask) (Subtask, error)
	DeleteSubtask(ctx context.Context, userID, id uuid.UUID) error
	ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]Subtask, error)
}
