package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/tasks"
)

// TaskStore is the subset of the task service the importer needs.
type TaskStore interface {
	Create(ctx context.Context, userID uuid.UUID, input tasks.CreateInput) (tasks.Task, error)
	List(ctx context.Context, userID uuid.UUID, opts tasks.ListOptions) ([]tasks.Task, error)
}

// Summary reports the outcome of a CSV import.
type Summary struct {
	TotalRows         int             `json:"totalRows"`
	Imported          int             `json:"imported"`
	SkippedDuplicates []SkippedRecord `json:"skippedDuplicates"`
	Failed            []FailedRecord  `json:"failed"`
	TruncatedRecords  bool            `json:"truncatedRecords,omitempty"`
}

// SkippedRecord identifies a row skipped as a duplicate of an existing task.
type SkippedRecord struct {
	Row    int    `json:"row"`
	Title  string `json:"title,omitempty"`
	Reason string `json:"reason"`
}

// FailedRecord identifies a row that could not be imported.
type FailedRecord struct {
	Row   int    `json:"row"`
	Title string `json:"title,omitempty"`
	Error string `json:"error"`
}

// ErrInvalidCSV is returned when the upload is not a usable CSV file.
var ErrInvalidCSV = errors.New("invalid csv upload")

// MaxImportRows limits the number of data rows processed per CSV import to
// prevent excessive memory usage and long-running requests.
const MaxImportRows = 1000

// MaxFailedRecords caps the number of failed/skipped records stored in the
// summary to avoid unbounded memory growth from malformed uploads.
const MaxFailedRecords = 100

var requiredColumns = []string{
	"title",
	"priority",
	"status",
}

// CSVImporter imports tasks from CSV uploads.
type CSVImporter struct {
	store TaskStore
}

// NewCSVImporter creates a new CSV importer.
func NewCSVImporter(store TaskStore) *CSVImporter {
	return &CSVImporter{store: store}
}

// Import reads CSV rows and creates tasks for the user, skipping rows whose
// title matches an existing task.
func (i *CSVImporter) Import(ctx context.Context, reader io.Reader, userID uuid.UUID) (Summary, error) {
	if i.store == nil {
		return Summary{}, fmt.Errorf("%w: task store is not configured", ErrInvalidCSV)
	}

	existing, err := i.store.List(ctx, userID, tasks.ListOptions{})
	if err != nil {
		return Summary{}, err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, task := range existing {
		seen[dedupeKey(task.Title)] = struct{}{}
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Summary{}, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
		}
		return Summary{}, fmt.Errorf("%w: failed to read header", ErrInvalidCSV)
	}

	columns, err := normalizeHeader(header)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{}
	rowNumber := 1

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNumber++
		if err != nil {
			summary.recordFailure(rowNumber, "", "malformed CSV row")
			continue
		}

		if summary.TotalRows >= MaxImportRows {
			summary.TruncatedRecords = true
			break
		}
		summary.TotalRows++

		values := make(map[string]string, len(columns))
		for idx, column := range columns {
			if idx < len(record) {
				values[column] = strings.TrimSpace(record[idx])
			}
		}

		title := values["title"]
		if title == "" {
			summary.recordFailure(rowNumber, title, "title is required")
			continue
		}

		key := dedupeKey(title)
		if _, dup := seen[key]; dup {
			summary.recordSkip(rowNumber, title, "task with the same title already exists")
			continue
		}

		input, err := rowToInput(values)
		if err != nil {
			summary.recordFailure(rowNumber, title, err.Error())
			continue
		}

		if _, err := i.store.Create(ctx, userID, input); err != nil {
			summary.recordFailure(rowNumber, title, err.Error())
			continue
		}

		seen[key] = struct{}{}
		summary.Imported++
	}

	return summary, nil
}

func (s *Summary) recordFailure(row int, title, message string) {
	if len(s.Failed) >= MaxFailedRecords {
		s.TruncatedRecords = true
		return
	}
	s.Failed = append(s.Failed, FailedRecord{Row: row, Title: title, Error: message})
}

func (s *Summary) recordSkip(row int, title, reason string) {
	if len(s.SkippedDuplicates) >= MaxFailedRecords {
		s.TruncatedRecords = true
		return
	}
	s.SkippedDuplicates = append(s.SkippedDuplicates, SkippedRecord{Row: row, Title: title, Reason: reason})
}

func rowToInput(values map[string]string) (tasks.CreateInput, error) {
	input := tasks.CreateInput{Title: values["title"]}

	if description := values["description"]; description != "" {
		input.Description = &description
	}
	if priority := values["priority"]; priority != "" {
		input.Priority = tasks.Priority(priority)
	}
	if status := values["status"]; status != "" {
		// Completed rows become pending so completion is re-earned locally;
		// archived rows import as archived.
		parsed := tasks.Status(status)
		if parsed == tasks.StatusCompleted {
			parsed = tasks.StatusPending
		}
		input.Status = parsed
	}

	dueDate, err := parseOptionalTime(values["duedate"])
	if err != nil {
		return tasks.CreateInput{}, fmt.Errorf("invalid dueDate: %w", err)
	}
	input.DueDate = dueDate

	reminderDate, err := parseOptionalTime(values["reminderdate"])
	if err != nil {
		return tasks.CreateInput{}, fmt.Errorf("invalid reminderDate: %w", err)
	}
	input.ReminderDate = reminderDate

	if raw := values["isrecurring"]; raw != "" {
		isRecurring, err := strconv.ParseBool(raw)
		if err != nil {
			return tasks.CreateInput{}, fmt.Errorf("invalid isRecurring: %w", err)
		}
		input.IsRecurring = isRecurring
	}
	if pattern := values["recurrencepattern"]; pattern != "" {
		parsed := tasks.RecurrencePattern(pattern)
		input.RecurrencePattern = &parsed
	}

	interval, err := parseOptionalInt(values["recurrenceinterval"])
	if err != nil {
		return tasks.CreateInput{}, fmt.Errorf("invalid recurrenceInterval: %w", err)
	}
	input.RecurrenceInterval = interval

	estimated, err := parseOptionalInt(values["estimatedtime"])
	if err != nil {
		return tasks.CreateInput{}, fmt.Errorf("invalid estimatedTime: %w", err)
	}
	input.EstimatedTime = estimated

	if rawTags := values["tags"]; rawTags != "" {
		input.Tags = strings.Split(rawTags, "|")
	}

	return input, nil
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	present := make(map[string]struct{}, len(header))
	for i, column := range header {
		normalized := strings.ToLower(strings.TrimSpace(column))
		columns[i] = normalized
		present[normalized] = struct{}{}
	}

	for _, required := range requiredColumns {
		if _, ok := present[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidCSV, required)
		}
	}

	return columns, nil
}

func dedupeKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
