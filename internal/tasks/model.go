package tasks

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a task or subtask cannot be located.
var ErrNotFound = errors.New("task not found")

// ErrValidation is returned when input validation fails.
var ErrValidation = errors.New("validation error")

// ValidationError wraps a validation message so callers can distinguish
// client errors from internal failures.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Priority ranks how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status tracks a task through its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// RecurrencePattern describes how a recurring task repeats.
type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceCustom  RecurrencePattern = "custom"
)

// Task represents a single to-do entry owned by a user. Time fields are
// minutes; Position orders tasks within a user's list.
type Task struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	UserID             uuid.UUID          `db:"user_id" json:"userId"`
	CategoryID         *uuid.UUID         `db:"category_id" json:"categoryId"`
	Title              string             `db:"title" json:"title"`
	Description        *string            `db:"description" json:"description"`
	Priority           Priority           `db:"priority" json:"priority"`
	Status             Status             `db:"status" json:"status"`
	DueDate            *time.Time         `db:"due_date" json:"dueDate"`
	ReminderDate       *time.Time         `db:"reminder_date" json:"reminderDate"`
	CompletedAt        *time.Time         `db:"completed_at" json:"completedAt"`
	IsRecurring        bool               `db:"is_recurring" json:"isRecurring"`
	RecurrencePattern  *RecurrencePattern `db:"recurrence_pattern" json:"recurrencePattern"`
	RecurrenceInterval *int               `db:"recurrence_interval" json:"recurrenceInterval"`
	Position           int                `db:"position" json:"position"`
	EstimatedTime      *int               `db:"estimated_time" json:"estimatedTime"`
	ActualTime         *int               `db:"actual_time" json:"actualTime"`
	Tags               pq.StringArray     `db:"tags" json:"tags"`
	Subtasks           []Subtask          `db:"-" json:"subtasks,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updatedAt"`
}

// Subtask is a checklist entry under a task.
type Subtask struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TaskID    uuid.UUID `db:"task_id" json:"taskId"`
	Title     string    `db:"title" json:"title"`
	Completed bool      `db:"completed" json:"completed"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CreateInput carries the fields accepted when creating a task.
type CreateInput struct {
	Title              string
	Description        *string
	CategoryID         *uuid.UUID
	Priority           Priority
	Status             Status
	DueDate            *time.Time
	ReminderDate       *time.Time
	IsRecurring        bool
	RecurrencePattern  *RecurrencePattern
	RecurrenceInterval *int
	EstimatedTime      *int
	Tags               []string
}

// UpdateInput carries optional task changes; nil fields are left untouched.
type UpdateInput struct {
	Title              *string
	Description        *string
	CategoryID         *uuid.UUID
	ClearCategory      bool
	Priority           *Priority
	Status             *Status
	DueDate            *time.Time
	ClearDueDate       bool
	ReminderDate       *time.Time
	ClearReminderDate  bool
	IsRecurring        *bool
	RecurrencePattern  *RecurrencePattern
	RecurrenceInterval *int
	EstimatedTime      *int
	ActualTime         *int
	Tags               []string
}

// ListOptions filters a task listing. Nil fields mean "no filter".
type ListOptions struct {
	Status     *Status
	Priority   *Priority
	CategoryID *uuid.UUID
	Search     *string
	Tags       []string
	Limit      *int
}
