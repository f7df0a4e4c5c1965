package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"taskdeck/internal/analytics"
	"taskdeck/internal/categories"
	"taskdeck/internal/profile"
	"taskdeck/internal/session"
	"taskdeck/internal/tasks"
)

// ListTasks returns the caller's tasks, filtered by the given query values
// (status, priority, categoryId, search, tags, limit).
func (c *Client) ListTasks(ctx context.Context, query url.Values) ([]tasks.Task, error) {
	path := "/api/tasks"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var response struct {
		Tasks []tasks.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Tasks, nil
}

// GetTask returns one task with its subtasks.
func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (tasks.Task, error) {
	var task tasks.Task
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+id.String(), nil, &task)
	return task, err
}

// CreateTask registers a new task. The payload follows the server's task
// write shape; map keys are the camelCase field names.
func (c *Client) CreateTask(ctx context.Context, payload map[string]any) (tasks.Task, error) {
	var task tasks.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", payload, &task)
	return task, err
}

// UpdateTask applies partial changes to a task.
func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, payload map[string]any) (tasks.Task, error) {
	var task tasks.Task
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+id.String(), payload, &task)
	return task, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id.String(), nil, nil)
}

// ToggleTask flips a task between completed and pending.
func (c *Client) ToggleTask(ctx context.Context, id uuid.UUID) (tasks.Task, error) {
	var task tasks.Task
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+id.String()+"/toggle", nil, &task)
	return task, err
}

// TodayTasks returns tasks due today.
func (c *Client) TodayTasks(ctx context.Context) ([]tasks.Task, error) {
	var response struct {
		Tasks []tasks.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks/today", nil, &response); err != nil {
		return nil, err
	}
	return response.Tasks, nil
}

// OverdueTasks returns unfinished tasks past their due date.
func (c *Client) OverdueTasks(ctx context.Context) ([]tasks.Task, error) {
	var response struct {
		Tasks []tasks.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks/overdue", nil, &response); err != nil {
		return nil, err
	}
	return response.Tasks, nil
}

// ReorderTasks persists a new task ordering.
func (c *Client) ReorderTasks(ctx context.Context, ids []uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/tasks/reorder", map[string]any{"taskIds": ids}, nil)
}

// AddSubtask appends a subtask to a task.
func (c *Client) AddSubtask(ctx context.Context, taskID uuid.UUID, title string) (tasks.Subtask, error) {
	var subtask tasks.Subtask
	err := c.do(ctx, http.MethodPost, "/api/tasks/"+taskID.String()+"/subtasks", map[string]any{"title": title}, &subtask)
	return subtask, err
}

// ToggleSubtask flips a subtask's completed flag.
func (c *Client) ToggleSubtask(ctx context.Context, id uuid.UUID) (tasks.Subtask, error) {
	var subtask tasks.Subtask
	err := c.do(ctx, http.MethodPatch, "/api/subtasks/"+id.String()+"/toggle", nil, &subtask)
	return subtask, err
}

// DeleteSubtask removes a subtask.
func (c *Client) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/subtasks/"+id.String(), nil, nil)
}

// ListCategories returns the caller's categories.
func (c *Client) ListCategories(ctx context.Context) ([]categories.Category, error) {
	var response struct {
		Categories []categories.Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, &response); err != nil {
		return nil, err
	}
	return response.Categories, nil
}

// CreateCategory registers a new category.
func (c *Client) CreateCategory(ctx context.Context, input categories.CreateInput) (categories.Category, error) {
	var category categories.Category
	err := c.do(ctx, http.MethodPost, "/api/categories", input, &category)
	return category, err
}

// UpdateCategory applies partial changes to a category.
func (c *Client) UpdateCategory(ctx context.Context, id uuid.UUID, input categories.UpdateInput) (categories.Category, error) {
	var category categories.Category
	err := c.do(ctx, http.MethodPut, "/api/categories/"+id.String(), input, &category)
	return category, err
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/categories/"+id.String(), nil, nil)
}

// Statistics returns the task summary for the period.
func (c *Client) Statistics(ctx context.Context, period analytics.Period) (analytics.Statistics, error) {
	var stats analytics.Statistics
	err := c.do(ctx, http.MethodGet, "/api/analytics/statistics?period="+url.QueryEscape(string(period)), nil, &stats)
	return stats, err
}

// Productivity returns the per-day completion series for the period.
func (c *Client) Productivity(ctx context.Context, period analytics.Period) ([]analytics.ProductivityPoint, error) {
	var response struct {
		Productivity []analytics.ProductivityPoint `json:"productivity"`
	}
	err := c.do(ctx, http.MethodGet, "/api/analytics/productivity?period="+url.QueryEscape(string(period)), nil, &response)
	return response.Productivity, err
}

// CategoryDistribution returns task counts per category.
func (c *Client) CategoryDistribution(ctx context.Context) ([]analytics.CategoryCount, error) {
	var response struct {
		Categories []analytics.CategoryCount `json:"categories"`
	}
	err := c.do(ctx, http.MethodGet, "/api/analytics/categories", nil, &response)
	return response.Categories, err
}

// PriorityDistribution returns completion progress per priority.
func (c *Client) PriorityDistribution(ctx context.Context) ([]analytics.PriorityBreakdown, error) {
	var response struct {
		Priorities []analytics.PriorityBreakdown `json:"priorities"`
	}
	err := c.do(ctx, http.MethodGet, "/api/analytics/priorities", nil, &response)
	return response.Priorities, err
}

// FetchProfile loads the signed-in user's profile. It implements
// session.ProfileFetcher; the userID parameter is advisory since the server
// scopes the profile to the bearer token.
func (c *Client) FetchProfile(ctx context.Context, userID uuid.UUID) (*session.Profile, error) {
	var p profile.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile", nil, &p); err != nil {
		// A brand-new account has no profile yet; that is not a failure.
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &session.Profile{
		ID:                   p.ID,
		Email:                p.Email,
		FullName:             p.FullName,
		AvatarURL:            p.AvatarURL,
		ThemePreference:      string(p.ThemePreference),
		CustomColor:          p.CustomColor,
		NotificationsEnabled: p.NotificationsEnabled,
	}, nil
}

// UpdateProfile applies partial profile changes.
func (c *Client) UpdateProfile(ctx context.Context, payload map[string]any) (profile.Profile, error) {
	var p profile.Profile
	err := c.do(ctx, http.MethodPut, "/api/profile", payload, &p)
	return p, err
}
