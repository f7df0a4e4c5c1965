package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	maxTitleLength       = 500
	maxDescriptionLength = 5000
	maxTags              = 20
	maxTagLength         = 50
)

// Service orchestrates validation and persistence for tasks.
type Service struct {
	repo Repository
}

// NewService wires a Service with the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and persists a new task at the end of the user's list.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (Task, error) {
	title, err := normalizeTitle(input.Title)
	if err != nil {
		return Task{}, err
	}

	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if err := validatePriority(priority); err != nil {
		return Task{}, err
	}

	status := input.Status
	if status == "" {
		status = StatusPending
	}
	if err := validateStatus(status); err != nil {
		return Task{}, err
	}

	pattern, interval, err := normalizeRecurrence(input.IsRecurring, input.RecurrencePattern, input.RecurrenceInterval)
	if err != nil {
		return Task{}, err
	}

	tags, err := normalizeTags(input.Tags)
	if err != nil {
		return Task{}, err
	}

	if err := validateMinutes(input.EstimatedTime, "estimated time"); err != nil {
		return Task{}, err
	}

	position, err := s.repo.NextPosition(ctx, userID)
	if err != nil {
		return Task{}, fmt.Errorf("next position: %w", err)
	}

	now := time.Now()
	task := Task{
		ID:                 uuid.New(),
		UserID:             userID,
		CategoryID:         input.CategoryID,
		Title:              title,
		Description:        normalizeText(input.Description, maxDescriptionLength),
		Priority:           priority,
		Status:             status,
		DueDate:            input.DueDate,
		ReminderDate:       input.ReminderDate,
		IsRecurring:        input.IsRecurring,
		RecurrencePattern:  pattern,
		RecurrenceInterval: interval,
		Position:           position,
		EstimatedTime:      input.EstimatedTime,
		Tags:               pq.StringArray(tags),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if status == StatusCompleted {
		task.CompletedAt = &now
	}

	return s.repo.Create(ctx, task)
}

// Get returns the user's task with its subtasks.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (Task, error) {
	return s.repo.Get(ctx, userID, id)
}

// List returns the user's tasks matching the filter options.
func (s *Service) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Task, error) {
	if opts.Status != nil {
		if err := validateStatus(*opts.Status); err != nil {
			return nil, err
		}
	}
	if opts.Priority != nil {
		if err := validatePriority(*opts.Priority); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, userID, opts)
}

// Update applies the non-nil fields of input to the user's task.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (Task, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}

	if input.Title != nil {
		title, err := normalizeTitle(*input.Title)
		if err != nil {
			return Task{}, err
		}
		current.Title = title
	}
	if input.Description != nil {
		current.Description = normalizeText(input.Description, maxDescriptionLength)
	}
	if input.ClearCategory {
		current.CategoryID = nil
	} else if input.CategoryID != nil {
		current.CategoryID = input.CategoryID
	}
	if input.Priority != nil {
		if err := validatePriority(*input.Priority); err != nil {
			return Task{}, err
		}
		current.Priority = *input.Priority
	}
	if input.Status != nil {
		if err := validateStatus(*input.Status); err != nil {
			return Task{}, err
		}
		applyStatus(&current, *input.Status)
	}
	if input.ClearDueDate {
		current.DueDate = nil
	} else if input.DueDate != nil {
		current.DueDate = input.DueDate
	}
	if input.ClearReminderDate {
		current.ReminderDate = nil
	} else if input.ReminderDate != nil {
		current.ReminderDate = input.ReminderDate
	}
	if input.IsRecurring != nil {
		current.IsRecurring = *input.IsRecurring
	}
	if input.RecurrencePattern != nil {
		current.RecurrencePattern = input.RecurrencePattern
	}
	if input.RecurrenceInterval != nil {
		current.RecurrenceInterval = input.RecurrenceInterval
	}
	pattern, interval, err := normalizeRecurrence(current.IsRecurring, current.RecurrencePattern, current.RecurrenceInterval)
	if err != nil {
		return Task{}, err
	}
	current.RecurrencePattern = pattern
	current.RecurrenceInterval = interval

	if input.EstimatedTime != nil {
		if err := validateMinutes(input.EstimatedTime, "estimated time"); err != nil {
			return Task{}, err
		}
		current.EstimatedTime = input.EstimatedTime
	}
	if input.ActualTime != nil {
		if err := validateMinutes(input.ActualTime, "actual time"); err != nil {
			return Task{}, err
		}
		current.ActualTime = input.ActualTime
	}
	if input.Tags != nil {
		tags, err := normalizeTags(input.Tags)
		if err != nil {
			return Task{}, err
		}
		current.Tags = pq.StringArray(tags)
	}

	current.UpdatedAt = time.Now()
	return s.repo.Update(ctx, current)
}

// Delete removes the user's task and its subtasks.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

// Toggle flips a task between completed and pending, stamping or clearing the
// completion time.
func (s *Service) Toggle(ctx context.Context, userID, id uuid.UUID) (Task, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Task{}, err
	}

	if current.Status == StatusCompleted {
		applyStatus(&current, StatusPending)
	} else {
		applyStatus(&current, StatusCompleted)
	}

	current.UpdatedAt = time.Now()
	return s.repo.Update(ctx, current)
}

// Today returns the user's non-archived tasks due today.
func (s *Service) Today(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.repo.DueBetween(ctx, userID, start, start.AddDate(0, 0, 1))
}

// Overdue returns the user's unfinished tasks whose due date has passed.
func (s *Service) Overdue(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	return s.repo.Overdue(ctx, userID, time.Now())
}

// Reorder persists the given order for the user's tasks.
func (s *Service) Reorder(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return &ValidationError{Message: "taskIds is required"}
	}

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return &ValidationError{Message: "duplicate task id in reorder"}
		}
		seen[id] = struct{}{}
	}

	return s.repo.UpdatePositions(ctx, userID, ids)
}

// ClearCategory detaches all of the user's tasks from the given category.
func (s *Service) ClearCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	return s.repo.ClearCategory(ctx, userID, categoryID)
}

// AddSubtask appends a subtask to the user's task.
func (s *Service) AddSubtask(ctx context.Context, userID, taskID uuid.UUID, title string) (Subtask, error) {
	normalized, err := normalizeTitle(title)
	if err != nil {
		return Subtask{}, err
	}

	task, err := s.repo.Get(ctx, userID, taskID)
	if err != nil {
		return Subtask{}, err
	}

	now := time.Now()
	return s.repo.CreateSubtask(ctx, userID, Subtask{
		ID:        uuid.New(),
		TaskID:    task.ID,
		Title:     normalized,
		Position:  len(task.Subtasks),
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// ToggleSubtask flips a subtask's completed flag.
func (s *Service) ToggleSubtask(ctx context.Context, userID, id uuid.UUID) (Subtask, error) {
	current, err := s.repo.GetSubtask(ctx, userID, id)
	if err != nil {
		return Subtask{}, err
	}

	current.Completed = !current.Completed
	current.UpdatedAt = time.Now()
	return s.repo.UpdateSubtask(ctx, userID, current)
}

// DeleteSubtask removes a subtask from the user's task.
func (s *Service) DeleteSubtask(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.DeleteSubtask(ctx, userID, id)
}

func applyStatus(task *Task, status Status) {
	task.Status = status
	if status == StatusCompleted {
		now := time.Now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
}

func normalizeTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Message: "title is required"}
	}
	if len(trimmed) > maxTitleLength {
		return "", &ValidationError{Message: fmt.Sprintf("title too long (max %d characters)", maxTitleLength)}
	}
	return trimmed, nil
}

func normalizeText(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen]
	}
	return &trimmed
}

func validatePriority(priority Priority) error {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return nil
	}
	return &ValidationError{Message: "invalid priority"}
}

func validateStatus(status Status) error {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusArchived:
		return nil
	}
	return &ValidationError{Message: "invalid status"}
}

func validateMinutes(value *int, field string) error {
	if value != nil && *value < 0 {
		return &ValidationError{Message: field + " must not be negative"}
	}
	return nil
}

// normalizeRecurrence clears recurrence fields for one-off tasks and fills in
// defaults for recurring ones.
func normalizeRecurrence(isRecurring bool, pattern *RecurrencePattern, interval *int) (*RecurrencePattern, *int, error) {
	if !isRecurring {
		return nil, nil, nil
	}

	if pattern == nil {
		return nil, nil, &ValidationError{Message: "recurrence pattern is required for recurring tasks"}
	}
	switch *pattern {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
	default:
		return nil, nil, &ValidationError{Message: "invalid recurrence pattern"}
	}

	if interval == nil {
		one := 1
		interval = &one
	} else if *interval < 1 {
		return nil, nil, &ValidationError{Message: "recurrence interval must be at least 1"}
	}

	return pattern, interval, nil
}

func normalizeTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return []string{}, nil
	}
	if len(tags) > maxTags {
		return nil, &ValidationError{Message: fmt.Sprintf("too many tags (max %d)", maxTags)}
	}

	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > maxTagLength {
			return nil, &ValidationError{Message: fmt.Sprintf("tag too long (max %d characters)", maxTagLength)}
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out, nil
}
