package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"taskdeck/internal/exporter"
	"taskdeck/internal/importer"
	"taskdeck/internal/tasks"
)

// maxImportUploadBytes caps the size of a CSV import upload.
const maxImportUploadBytes int64 = 5 << 20 // 5 MiB

// TaskHandler exposes HTTP endpoints for task management.
type TaskHandler struct {
	svc      *tasks.Service
	exporter *exporter.CSVExporter
	importer *importer.CSVImporter
	logger   *slog.Logger
}

// NewTaskHandler constructs a TaskHandler.
func NewTaskHandler(svc *tasks.Service, csvExporter *exporter.CSVExporter, csvImporter *importer.CSVImporter, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, exporter: csvExporter, importer: csvImporter, logger: logger}
}

func (h *TaskHandler) handleTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, tasks.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("task operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}

// taskWritePayload is the wire shape shared by create and update requests.
// The clear* flags distinguish "unset this field" from "leave it alone".
type taskWritePayload struct {
	Title              *string                  `json:"title"`
	Description        *string                  `json:"description"`
	CategoryID         *uuid.UUID               `json:"categoryId"`
	ClearCategory      bool                     `json:"clearCategory,omitempty"`
	Priority           *tasks.Priority          `json:"priority"`
	Status             *tasks.Status            `json:"status"`
	DueDate            *time.Time               `json:"dueDate"`
	ClearDueDate       bool                     `json:"clearDueDate,omitempty"`
	ReminderDate       *time.Time               `json:"reminderDate"`
	ClearReminderDate  bool                     `json:"clearReminderDate,omitempty"`
	IsRecurring        *bool                    `json:"isRecurring"`
	RecurrencePattern  *tasks.RecurrencePattern `json:"recurrencePattern"`
	RecurrenceInterval *int                     `json:"recurrenceInterval"`
	EstimatedTime      *int                     `json:"estimatedTime"`
	ActualTime         *int                     `json:"actualTime"`
	Tags               []string                 `json:"tags"`
}

// List returns the caller's tasks, optionally filtered by query parameters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	opts, err := listOptionsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.svc.List(r.Context(), user.ID, opts)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// Create registers a new task at the end of the caller's list.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var payload taskWritePayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}
	if payload.Title == nil {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	input := tasks.CreateInput{
		Title:              *payload.Title,
		Description:        payload.Description,
		CategoryID:         payload.CategoryID,
		DueDate:            payload.DueDate,
		ReminderDate:       payload.ReminderDate,
		RecurrencePattern:  payload.RecurrencePattern,
		RecurrenceInterval: payload.RecurrenceInterval,
		EstimatedTime:      payload.EstimatedTime,
		Tags:               payload.Tags,
	}
	if payload.Priority != nil {
		input.Priority = *payload.Priority
	}
	if payload.Status != nil {
		input.Status = *payload.Status
	}
	if payload.IsRecurring != nil {
		input.IsRecurring = *payload.IsRecurring
	}

	created, err := h.svc.Create(r.Context(), user.ID, input)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Get returns a task with its subtasks.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.svc.Get(r.Context(), user.ID, taskID)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Update applies partial changes to a task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var payload taskWritePayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), user.ID, taskID, tasks.UpdateInput{
		Title:              payload.Title,
		Description:        payload.Description,
		CategoryID:         payload.CategoryID,
		ClearCategory:      payload.ClearCategory,
		Priority:           payload.Priority,
		Status:             payload.Status,
		DueDate:            payload.DueDate,
		ClearDueDate:       payload.ClearDueDate,
		ReminderDate:       payload.ReminderDate,
		ClearReminderDate:  payload.ClearReminderDate,
		IsRecurring:        payload.IsRecurring,
		RecurrencePattern:  payload.RecurrencePattern,
		RecurrenceInterval: payload.RecurrenceInterval,
		EstimatedTime:      payload.EstimatedTime,
		ActualTime:         payload.ActualTime,
		Tags:               payload.Tags,
	})
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a task and its subtasks.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.svc.Delete(r.Context(), user.ID, taskID); err != nil {
		h.handleTaskError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips a task between completed and pending.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	toggled, err := h.svc.Toggle(r.Context(), user.ID, taskID)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggled)
}

// Today returns tasks due today.
func (h *TaskHandler) Today(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	list, err := h.svc.Today(r.Context(), user.ID)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// Overdue returns unfinished tasks past their due date.
func (h *TaskHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	list, err := h.svc.Overdue(r.Context(), user.ID)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// Reorder persists a new ordering of the caller's tasks.
func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var payload struct {
		TaskIDs []uuid.UUID `json:"taskIds"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	if err := h.svc.Reorder(r.Context(), user.ID, payload.TaskIDs); err != nil {
		h.handleTaskError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export streams the caller's tasks as a CSV download.
func (h *TaskHandler) Export(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	list, err := h.svc.List(r.Context(), user.ID, tasks.ListOptions{})
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	filename := fmt.Sprintf("tasks-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exporter.Export(w, list); err != nil {
		h.logger.Error("csv export failed", "error", err, "user_id", user.ID)
	}
}

// Import creates tasks from an uploaded CSV file and reports a summary.
func (h *TaskHandler) Import(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := r.ParseMultipartForm(maxImportUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	summary, err := h.importer.Import(r.Context(), file, user.ID)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidCSV) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("csv import failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// AddSubtask appends a subtask to a task.
func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	created, err := h.svc.AddSubtask(r.Context(), user.ID, taskID, payload.Title)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ToggleSubtask flips a subtask's completed flag.
func (h *TaskHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	subtaskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subtask id")
		return
	}

	toggled, err := h.svc.ToggleSubtask(r.Context(), user.ID, subtaskID)
	if err != nil {
		h.handleTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toggled)
}

// DeleteSubtask removes a subtask.
func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	subtaskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subtask id")
		return
	}

	if err := h.svc.DeleteSubtask(r.Context(), user.ID, subtaskID); err != nil {
		h.handleTaskError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func listOptionsFromQuery(r *http.Request) (tasks.ListOptions, error) {
	var opts tasks.ListOptions
	query := r.URL.Query()

	if value := query.Get("status"); value != "" {
		status := tasks.Status(value)
		opts.Status = &status
	}
	if value := query.Get("priority"); value != "" {
		priority := tasks.Priority(value)
		opts.Priority = &priority
	}
	if value := query.Get("categoryId"); value != "" {
		categoryID, err := uuid.Parse(value)
		if err != nil {
			return tasks.ListOptions{}, errors.New("invalid categoryId")
		}
		opts.CategoryID = &categoryID
	}
	if value := strings.TrimSpace(query.Get("search")); value != "" {
		opts.Search = &value
	}
	if value := query.Get("tags"); value != "" {
		for _, tag := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				opts.Tags = append(opts.Tags, trimmed)
			}
		}
	}
	if value := query.Get("limit"); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 1 {
			return tasks.ListOptions{}, errors.New("invalid limit")
		}
		opts.Limit = &limit
	}

	return opts, nil
}
