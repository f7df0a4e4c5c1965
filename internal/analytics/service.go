package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/categories"
	"taskdeck/internal/tasks"
)

// Service computes productivity projections over a user's tasks. It is purely
// derived state; nothing here is persisted.
type Service struct {
	taskRepo     tasks.Repository
	categoryRepo categories.Repository
	now          func() time.Time
}

// NewService wires a Service with the provided repositories.
func NewService(taskRepo tasks.Repository, categoryRepo categories.Repository) *Service {
	return &Service{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		now:          time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Statistics summarizes tasks created within the period.
func (s *Service) Statistics(ctx context.Context, userID uuid.UUID, period Period) (Statistics, error) {
	days, err := period.Days()
	if err != nil {
		return Statistics{}, err
	}

	all, err := s.taskRepo.List(ctx, userID, tasks.ListOptions{})
	if err != nil {
		return Statistics{}, fmt.Errorf("list tasks: %w", err)
	}

	now := s.now()
	cutoff := now.AddDate(0, 0, -days)

	var stats Statistics
	var completionMinutes float64
	for _, task := range all {
		if task.CreatedAt.Before(cutoff) {
			continue
		}
		stats.TotalTasks++
		switch task.Status {
		case tasks.StatusCompleted:
			stats.CompletedTasks++
			if task.ActualTime != nil {
				stats.TotalTimeSpent += *task.ActualTime
			}
			if task.CompletedAt != nil {
				completionMinutes += task.CompletedAt.Sub(task.CreatedAt).Minutes()
			}
		case tasks.StatusPending:
			stats.PendingTasks++
		case tasks.StatusInProgress:
			stats.InProgressTasks++
		}
		if isOverdue(task, now) {
			stats.OverdueTasks++
		}
	}

	if stats.TotalTasks > 0 {
		stats.CompletionRate = round2(float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100)
	}
	if stats.CompletedTasks > 0 {
		stats.AverageCompletionTime = round2(completionMinutes / float64(stats.CompletedTasks))
	}

	return stats, nil
}

// Productivity returns a per-day series of completions and time spent over the
// period, oldest day first. Days without activity are included as zeros.
func (s *Service) Productivity(ctx context.Context, userID uuid.UUID, period Period) ([]ProductivityPoint, error) {
	days, err := period.Days()
	if err != nil {
		return nil, err
	}

	all, err := s.taskRepo.List(ctx, userID, tasks.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))

	points := make([]ProductivityPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		points[i] = ProductivityPoint{Date: date}
		index[date] = i
	}

	for _, task := range all {
		if task.CompletedAt == nil {
			continue
		}
		date := task.CompletedAt.In(now.Location()).Format("2006-01-02")
		i, ok := index[date]
		if !ok {
			continue
		}
		points[i].TasksCompleted++
		if task.ActualTime != nil {
			points[i].TimeSpent += *task.ActualTime
		}
	}

	return points, nil
}

// CategoryDistribution counts the user's non-archived tasks per category.
// Uncategorized tasks are reported under a zero-ID bucket.
func (s *Service) CategoryDistribution(ctx context.Context, userID uuid.UUID) ([]CategoryCount, error) {
	all, err := s.taskRepo.List(ctx, userID, tasks.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	cats, err := s.categoryRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	counts := make(map[uuid.UUID]int)
	for _, task := range all {
		if task.Status == tasks.StatusArchived {
			continue
		}
		if task.CategoryID != nil {
			counts[*task.CategoryID]++
		} else {
			counts[uuid.Nil]++
		}
	}

	out := make([]CategoryCount, 0, len(cats)+1)
	for _, category := range cats {
		out = append(out, CategoryCount{
			ID:    category.ID,
			Name:  category.Name,
			Color: category.Color,
			Count: counts[category.ID],
		})
	}
	if uncategorized := counts[uuid.Nil]; uncategorized > 0 {
		out = append(out, CategoryCount{Name: "Uncategorized", Color: "#9CA3AF", Count: uncategorized})
	}

	return out, nil
}

// PriorityDistribution reports completion progress per priority level for the
// user's non-archived tasks.
func (s *Service) PriorityDistribution(ctx context.Context, userID uuid.UUID) ([]PriorityBreakdown, error) {
	all, err := s.taskRepo.List(ctx, userID, tasks.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	order := []tasks.Priority{tasks.PriorityUrgent, tasks.PriorityHigh, tasks.PriorityMedium, tasks.PriorityLow}
	byPriority := make(map[tasks.Priority]*PriorityBreakdown, len(order))
	for _, priority := range order {
		byPriority[priority] = &PriorityBreakdown{Priority: priority}
	}

	for _, task := range all {
		if task.Status == tasks.StatusArchived {
			continue
		}
		entry, ok := byPriority[task.Priority]
		if !ok {
			continue
		}
		entry.Total++
		if task.Status == tasks.StatusCompleted {
			entry.Completed++
		} else {
			entry.Pending++
		}
	}

	out := make([]PriorityBreakdown, 0, len(order))
	for _, priority := range order {
		entry := byPriority[priority]
		if entry.Total > 0 {
			entry.CompletionRate = round2(float64(entry.Completed) / float64(entry.Total) * 100)
		}
		out = append(out, *entry)
	}

	return out, nil
}

func isOverdue(task tasks.Task, now time.Time) bool {
	if task.DueDate == nil {
		return false
	}
	if task.Status != tasks.StatusPending && task.Status != tasks.StatusInProgress {
		return false
	}
	return task.DueDate.Before(now)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
