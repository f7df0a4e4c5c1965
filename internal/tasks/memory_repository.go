package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository stores tasks in an in-process map, ideal for local
// development or tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	data     map[uuid.UUID]Task
	subtasks map[uuid.UUID]Subtask
}

// NewInMemoryRepository constructs a repository seeded with optional initial tasks.
func NewInMemoryRepository(initial []Task) *InMemoryRepository {
	data := make(map[uuid.UUID]Task)
	for _, task := range initial {
		task.Subtasks = nil
		data[task.ID] = task
	}
	return &InMemoryRepository{
		data:     data,
		subtasks: make(map[uuid.UUID]Subtask),
	}
}

// Create stores a new task.
func (r *InMemoryRepository) Create(_ context.Context, task Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task.Subtasks = nil
	r.data[task.ID] = task
	return task, nil
}

// Get returns a task by ID with its subtasks, scoped to the user.
func (r *InMemoryRepository) Get(_ context.Context, userID, id uuid.UUID) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.data[id]
	if !ok || task.UserID != userID {
		return Task{}, ErrNotFound
	}
	task.Subtasks = r.subtasksForLocked(id)
	return task, nil
}

// List returns the user's tasks matching the filter options, ordered by position.
func (r *InMemoryRepository) List(_ context.Context, userID uuid.UUID, opts ListOptions) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0)
	for _, task := range r.data {
		if task.UserID != userID || !matches(task, opts) {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })

	if opts.Limit != nil && len(out) > *opts.Limit {
		out = out[:*opts.Limit]
	}
	return out, nil
}

// Update replaces an existing task.
func (r *InMemoryRepository) Update(_ context.Context, task Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[task.ID]
	if !ok || existing.UserID != task.UserID {
		return Task{}, ErrNotFound
	}
	task.Subtasks = nil
	r.data[task.ID] = task
	task.Subtasks = r.subtasksForLocked(task.ID)
	return task, nil
}

// Delete removes a task and its subtasks, scoped to the user.
func (r *InMemoryRepository) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.data[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, id)
	for subID, sub := range r.subtasks {
		if sub.TaskID == id {
			delete(r.subtasks, subID)
		}
	}
	return nil
}

// NextPosition returns one past the user's highest task position.
func (r *InMemoryRepository) NextPosition(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	next := 0
	for _, task := range r.data {
		if task.UserID == userID && task.Position >= next {
			next = task.Position + 1
		}
	}
	return next, nil
}

// UpdatePositions reorders the given tasks to match the slice order.
func (r *InMemoryRepository) UpdatePositions(_ context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	position := 0
	for _, id := range ids {
		task, ok := r.data[id]
		if !ok || task.UserID != userID {
			continue
		}
		task.Position = position
		task.UpdatedAt = time.Now()
		r.data[id] = task
		position++
	}
	return nil
}

// ClearCategory detaches all of the user's tasks from the given category.
func (r *InMemoryRepository) ClearCategory(_ context.Context, userID, categoryID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, task := range r.data {
		if task.UserID == userID && task.CategoryID != nil && *task.CategoryID == categoryID {
			task.CategoryID = nil
			task.UpdatedAt = time.Now()
			r.data[id] = task
		}
	}
	return nil
}

// DueBetween returns non-archived tasks with a due date in [from, to).
func (r *InMemoryRepository) DueBetween(_ context.Context, userID uuid.UUID, from, to time.Time) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0)
	for _, task := range r.data {
		if task.UserID != userID || task.Status == StatusArchived || task.DueDate == nil {
			continue
		}
		due := *task.DueDate
		if !due.Before(from) && due.Before(to) {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// Overdue returns unfinished tasks whose due date has passed.
func (r *InMemoryRepository) Overdue(_ context.Context, userID uuid.UUID, now time.Time) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Task, 0)
	for _, task := range r.data {
		if task.UserID != userID || task.DueDate == nil {
			continue
		}
		if task.Status != StatusPending && task.Status != StatusInProgress {
			continue
		}
		if task.DueDate.Before(now) {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out, nil
}

// CreateSubtask stores a new subtask under the user's task.
func (r *InMemoryRepository) CreateSubtask(_ context.Context, userID uuid.UUID, subtask Subtask) (Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.data[subtask.TaskID]
	if !ok || task.UserID != userID {
		return Subtask{}, ErrNotFound
	}
	r.subtasks[subtask.ID] = subtask
	return subtask, nil
}

// GetSubtask returns a subtask by ID, scoped to the user.
func (r *InMemoryRepository) GetSubtask(_ context.Context, userID, id uuid.UUID) (Subtask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subtask, ok := r.subtasks[id]
	if !ok {
		return Subtask{}, ErrNotFound
	}
	task, ok := r.data[subtask.TaskID]
	if !ok || task.UserID != userID {
		return Subtask{}, ErrNotFound
	}
	return subtask, nil
}

// UpdateSubtask replaces an existing subtask, scoped to the user.
func (r *InMemoryRepository) UpdateSubtask(_ context.Context, userID uuid.UUID, subtask Subtask) (Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.subtasks[subtask.ID]
	if !ok {
		return Subtask{}, ErrNotFound
	}
	task, ok := r.data[existing.TaskID]
	if !ok || task.UserID != userID {
		return Subtask{}, ErrNotFound
	}
	subtask.TaskID = existing.TaskID
	r.subtasks[subtask.ID] = subtask
	return subtask, nil
}

// DeleteSubtask removes a subtask, scoped to the user.
func (r *InMemoryRepository) DeleteSubtask(_ context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subtask, ok := r.subtasks[id]
	if !ok {
		return ErrNotFound
	}
	task, ok := r.data[subtask.TaskID]
	if !ok || task.UserID != userID {
		return ErrNotFound
	}
	delete(r.subtasks, id)
	return nil
}

// ListSubtasks returns the subtasks for a task ordered by position.
func (r *InMemoryRepository) ListSubtasks(_ context.Context, taskID uuid.UUID) ([]Subtask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.subtasksForLocked(taskID), nil
}

func (r *InMemoryRepository) subtasksForLocked(taskID uuid.UUID) []Subtask {
	out := make([]Subtask, 0)
	for _, subtask := range r.subtasks {
		if subtask.TaskID == taskID {
			out = append(out, subtask)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func matches(task Task, opts ListOptions) bool {
	if opts.Status != nil && task.Status != *opts.Status {
		return false
	}
	if opts.Priority != nil && task.Priority != *opts.Priority {
		return false
	}
	if opts.CategoryID != nil {
		if task.CategoryID == nil || *task.CategoryID != *opts.CategoryID {
			return false
		}
	}
	if opts.Search != nil {
		needle := strings.ToLower(*opts.Search)
		title := strings.ToLower(task.Title)
		desc := ""
		if task.Description != nil {
			desc = strings.ToLower(*task.Description)
		}
		if !strings.Contains(title, needle) && !strings.Contains(desc, needle) {
			return false
		}
	}
	for _, want := range opts.Tags {
		found := false
		for _, have := range task.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
