package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"taskdeck/internal/categories"
	"taskdeck/internal/tasks"
)

// CategoryHandler exposes HTTP endpoints for category management.
type CategoryHandler struct {
	svc     *categories.Service
	taskSvc *tasks.Service
	logger  *slog.Logger
}

// NewCategoryHandler constructs a CategoryHandler.
func NewCategoryHandler(svc *categories.Service, taskSvc *tasks.Service, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{svc: svc, taskSvc: taskSvc, logger: logger}
}

func (h *CategoryHandler) handleCategoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, categories.ErrNotFound):
		writeError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, categories.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("category operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}

// List returns the caller's categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	list, err := h.svc.List(r.Context(), user.ID)
	if err != nil {
		h.handleCategoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": list})
}

// Create registers a new category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var input categories.CreateInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeJSONError(w, err)
		return
	}

	created, err := h.svc.Create(r.Context(), user.ID, input)
	if err != nil {
		h.handleCategoryError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// Update applies partial changes to a category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var input categories.UpdateInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeJSONError(w, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), user.ID, categoryID, input)
	if err != nil {
		h.handleCategoryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Delete removes a category. Tasks that referenced it are kept and detached.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := h.taskSvc.ClearCategory(r.Context(), user.ID, categoryID); err != nil {
		h.handleCategoryError(w, err)
		return
	}

	if err := h.svc.Delete(r.Context(), user.ID, categoryID); err != nil {
		h.handleCategoryError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
