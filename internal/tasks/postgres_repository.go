package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const taskColumns = `id, user_id, category_id, title, description, priority, status, due_date, reminder_date, completed_at,
	is_recurring, recurrence_pattern, recurrence_interval, position, estimated_time, actual_time, tags, created_at, updated_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new task into the database.
func (r *PostgresRepository) Create(ctx context.Context, task Task) (Task, error) {
	const query = `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.CategoryID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.ReminderDate,
		task.CompletedAt,
		task.IsRecurring,
		task.RecurrencePattern,
		task.RecurrenceInterval,
		task.Position,
		task.EstimatedTime,
		task.ActualTime,
		task.Tags,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}

	return task, nil
}

// Get returns a task by ID with its subtasks, scoped to the user.
func (r *PostgresRepository) Get(ctx context.Context, userID, id uuid.UUID) (Task, error) {
	const query = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	var task Task
	if err := r.db.GetContext(ctx, &task, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}

	subtasks, err := r.ListSubtasks(ctx, task.ID)
	if err != nil {
		return Task{}, err
	}
	task.Subtasks = subtasks

	return task, nil
}

// List returns the user's tasks matching the filter options, ordered by position.
func (r *PostgresRepository) List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]Task, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if opts.Status != nil {
		args = append(args, *opts.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if opts.Priority != nil {
		args = append(args, *opts.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if opts.CategoryID != nil {
		args = append(args, *opts.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if opts.Search != nil {
		args = append(args, "%"+*opts.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(opts.Tags) > 0 {
		args = append(args, pq.Array(opts.Tags))
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY position`
	if opts.Limit != nil {
		args = append(args, *opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	out := make([]Task, 0)
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}

	return out, nil
}

// Update replaces an existing task.
func (r *PostgresRepository) Update(ctx context.Context, task Task) (Task, error) {
	const query = `
		UPDATE tasks
		SET category_id = $3, title = $4, description = $5, priority = $6, status = $7, due_date = $8,
			reminder_date = $9, completed_at = $10, is_recurring = $11, recurrence_pattern = $12,
			recurrence_interval = $13, position = $14, estimated_time = $15, actual_time = $16, tags = $17,
			updated_at = $18
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.CategoryID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.ReminderDate,
		task.CompletedAt,
		task.IsRecurring,
		task.RecurrencePattern,
		task.RecurrenceInterval,
		task.Position,
		task.EstimatedTime,
		task.ActualTime,
		task.Tags,
		task.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Task{}, err
	}
	if affected == 0 {
		return Task{}, ErrNotFound
	}

	return task, nil
}

// Delete removes a task, scoped to the user; subtasks cascade.
func (r *PostgresRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// NextPosition returns one past the user's highest task position.
func (r *PostgresRepository) NextPosition(ctx context.Context, userID uuid.UUID) (int, error) {
	const query = `SELECT COALESCE(MAX(position) + 1, 0) FROM tasks WHERE user_id = $1`

	var next int
	if err := r.db.GetContext(ctx, &next, query, userID); err != nil {
		return 0, err
	}
	return next, nil
}

// UpdatePositions reorders the given tasks to match the slice order.
func (r *PostgresRepository) UpdatePositions(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `UPDATE tasks SET position = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`
	now := time.Now()
	for position, id := range ids {
		if _, err := tx.ExecContext(ctx, query, id, userID, position, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ClearCategory detaches all of the user's tasks from the given category.
func (r *PostgresRepository) ClearCategory(ctx context.Context, userID, categoryID uuid.UUID) error {
	const query = `UPDATE tasks SET category_id = NULL, updated_at = $3 WHERE user_id = $1 AND category_id = $2`

	_, err := r.db.ExecContext(ctx, query, userID, categoryID, time.Now())
	return err
}

// DueBetween returns non-archived tasks with a due date in [from, to).
func (r *PostgresRepository) DueBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status <> 'archived' AND due_date >= $2 AND due_date < $3
		ORDER BY position
	`

	out := make([]Task, 0)
	if err := r.db.SelectContext(ctx, &out, query, userID, from, to); err != nil {
		return nil, err
	}
	return out, nil
}

// Overdue returns unfinished tasks whose due date has passed.
func (r *PostgresRepository) Overdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]Task, error) {
	const query = `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status IN ('pending', 'in_progress') AND due_date < $2
		ORDER BY due_date
	`

	out := make([]Task, 0)
	if err := r.db.SelectContext(ctx, &out, query, userID, now); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSubtask stores a new subtask under the user's task.
func (r *PostgresRepository) CreateSubtask(ctx context.Context, userID uuid.UUID, subtask Subtask) (Subtask, error) {
	if err := r.ensureTaskOwner(ctx, userID, subtask.TaskID); err != nil {
		return Subtask{}, err
	}

	const query = `
		INSERT INTO subtasks (id, task_id, title, completed, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		subtask.ID,
		subtask.TaskID,
		subtask.Title,
		subtask.Completed,
		subtask.Position,
		subtask.CreatedAt,
		subtask.UpdatedAt,
	)
	if err != nil {
		return Subtask{}, err
	}

	return subtask, nil
}

// GetSubtask returns a subtask by ID, scoped to the user.
func (r *PostgresRepository) GetSubtask(ctx context.Context, userID, id uuid.UUID) (Subtask, error) {
	const query = `
		SELECT s.id, s.task_id, s.title, s.completed, s.position, s.created_at, s.updated_at
		FROM subtasks s
		JOIN tasks t ON s.task_id = t.id
		WHERE s.id = $1 AND t.user_id = $2
	`

	var subtask Subtask
	if err := r.db.GetContext(ctx, &subtask, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subtask{}, ErrNotFound
		}
		return Subtask{}, err
	}

	return subtask, nil
}

// UpdateSubtask replaces an existing subtask, scoped to the user.
func (r *PostgresRepository) UpdateSubtask(ctx context.Context, userID uuid.UUID, subtask Subtask) (Subtask, error) {
	const query = `
		UPDATE subtasks s
		SET title = $3, completed = $4, position = $5, updated_at = $6
		FROM tasks t
		WHERE s.id = $1 AND s.task_id = t.id AND t.user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		subtask.ID,
		userID,
		subtask.Title,
		subtask.Completed,
		subtask.Position,
		subtask.UpdatedAt,
	)
	if err != nil {
		return Subtask{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return Subtask{}, err
	}
	if affected == 0 {
		return Subtask{}, ErrNotFound
	}

	return subtask, nil
}

// DeleteSubtask removes a subtask, scoped to the user.
func (r *PostgresRepository) DeleteSubtask(ctx context.Context, userID, id uuid.UUID) error {
	const query = `
		DELETE FROM subtasks s
		USING tasks t
		WHERE s.id = $1 AND s.task_id = t.id AND t.user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListSubtasks returns the subtasks for a task ordered by position.
func (r *PostgresRepository) ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]Subtask, error) {
	const query = `
		SELECT id, task_id, title, completed, position, created_at, updated_at
		FROM subtasks
		WHERE task_id = $1
		ORDER BY position
	`

	out := make([]Subtask, 0)
	if err := r.db.SelectContext(ctx, &out, query, taskID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) ensureTaskOwner(ctx context.Context, userID, taskID uuid.UUID) error {
	const query = `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, taskID, userID); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
