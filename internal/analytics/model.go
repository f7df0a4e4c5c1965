package analytics

import (
	"errors"

	"github.com/google/uuid"

	"taskdeck/internal/tasks"
)

// ErrInvalidPeriod is returned when an unknown reporting period is requested.
var ErrInvalidPeriod = errors.New("invalid period")

// Period selects the reporting window, counted back from now.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Days returns the window length in days.
func (p Period) Days() (int, error) {
	switch p {
	case PeriodWeek:
		return 7, nil
	case PeriodMonth:
		return 30, nil
	case PeriodYear:
		return 365, nil
	}
	return 0, ErrInvalidPeriod
}

// Statistics summarizes a user's tasks created within the reporting window.
// Time figures are minutes.
type Statistics struct {
	TotalTasks            int     `json:"totalTasks"`
	CompletedTasks        int     `json:"completedTasks"`
	PendingTasks          int     `json:"pendingTasks"`
	InProgressTasks       int     `json:"inProgressTasks"`
	OverdueTasks          int     `json:"overdueTasks"`
	CompletionRate        float64 `json:"completionRate"`
	TotalTimeSpent        int     `json:"totalTimeSpent"`
	AverageCompletionTime float64 `json:"averageCompletionTime"`
}

// ProductivityPoint is one day of the productivity series.
type ProductivityPoint struct {
	Date           string `json:"date"`
	TasksCompleted int    `json:"tasksCompleted"`
	TimeSpent      int    `json:"timeSpent"`
}

// CategoryCount is one slice of the category distribution.
type CategoryCount struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
	Count int       `json:"count"`
}

// PriorityBreakdown reports completion progress per priority level.
type PriorityBreakdown struct {
	Priority       tasks.Priority `json:"priority"`
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Pending        int            `json:"pending"`
	CompletionRate float64        `json:"completionRate"`
}
