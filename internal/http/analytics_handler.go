package http

import (
	"errors"
	"log/slog"
	"net/http"

	"taskdeck/internal/analytics"
)

// AnalyticsHandler exposes read-only productivity reporting endpoints.
type AnalyticsHandler struct {
	svc    *analytics.Service
	logger *slog.Logger
}

// NewAnalyticsHandler constructs an AnalyticsHandler.
func NewAnalyticsHandler(svc *analytics.Service, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, logger: logger}
}

func (h *AnalyticsHandler) handleAnalyticsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "period must be week, month, or year")
	default:
		h.logger.Error("analytics operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unexpected error")
	}
}

func periodFromQuery(r *http.Request) analytics.Period {
	if value := r.URL.Query().Get("period"); value != "" {
		return analytics.Period(value)
	}
	return analytics.PeriodWeek
}

// Statistics summarizes the caller's tasks over the requested period.
func (h *AnalyticsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	stats, err := h.svc.Statistics(r.Context(), user.ID, periodFromQuery(r))
	if err != nil {
		h.handleAnalyticsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Productivity returns the per-day completion series for the period.
func (h *AnalyticsHandler) Productivity(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	points, err := h.svc.Productivity(r.Context(), user.ID, periodFromQuery(r))
	if err != nil {
		h.handleAnalyticsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"productivity": points})
}

// Categories returns the task count per category.
func (h *AnalyticsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	distribution, err := h.svc.CategoryDistribution(r.Context(), user.ID)
	if err != nil {
		h.handleAnalyticsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": distribution})
}

// Priorities returns completion progress per priority level.
func (h *AnalyticsHandler) Priorities(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	breakdown, err := h.svc.PriorityDistribution(r.Context(), user.ID)
	if err != nil {
		h.handleAnalyticsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"priorities": breakdown})
}
