package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"taskdeck/internal/tasks"
)

// SchemaVersion identifies the CSV export format version. Increment when
// adding columns or changing the format.
const SchemaVersion = "1"

// csvColumns defines the column order for export. The columns are a superset
// of the import format to ensure round-trip compatibility. Subtasks are
// intentionally excluded; they round-trip poorly through a flat file.
var csvColumns = []string{
	"schemaVersion",
	"title",
	"description",
	"priority",
	"status",
	"dueDate",
	"reminderDate",
	"completedAt",
	"isRecurring",
	"recurrencePattern",
	"recurrenceInterval",
	"estimatedTime",
	"actualTime",
	"tags",
	"createdAt",
	"updatedAt",
}

// CSVExporter exports tasks to CSV format.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes tasks to the given writer in CSV format. The export format is
// designed to be compatible with the CSV import feature.
func (e *CSVExporter) Export(w io.Writer, taskList []tasks.Task) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, task := range taskList {
		if err := writer.Write(e.taskToRow(task)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return writer.Error()
}

// taskToRow converts a task to a CSV row following the column order.
func (e *CSVExporter) taskToRow(task tasks.Task) []string {
	row := make([]string, len(csvColumns))

	row[0] = SchemaVersion
	row[1] = task.Title
	row[2] = formatOptionalString(task.Description)
	row[3] = string(task.Priority)
	row[4] = string(task.Status)
	row[5] = formatOptionalTime(task.DueDate)
	row[6] = formatOptionalTime(task.ReminderDate)
	row[7] = formatOptionalTime(task.CompletedAt)
	row[8] = strconv.FormatBool(task.IsRecurring)
	row[9] = formatOptionalPattern(task.RecurrencePattern)
	row[10] = formatOptionalInt(task.RecurrenceInterval)
	row[11] = formatOptionalInt(task.EstimatedTime)
	row[12] = formatOptionalInt(task.ActualTime)
	row[13] = strings.Join(task.Tags, "|")
	row[14] = formatTime(task.CreatedAt)
	row[15] = formatTime(task.UpdatedAt)

	return row
}

func formatOptionalString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatOptionalInt(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func formatOptionalPattern(value *tasks.RecurrencePattern) string {
	if value == nil {
		return ""
	}
	return string(*value)
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}
