package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/authz"
	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/platform/httpx"
)

// Handler serves the organization audit trail.
type Handler struct {
	service *Service
	authz   authz.Middleware
	logger  *slog.Logger
}

// NewHandler constructs the audit HTTP handler.
func NewHandler(service *Service, mw authz.Middleware, logger *slog.Logger) *Handler {
	return &Handler{service: service, authz: mw, logger: logger}
}

// MountRoutes attaches audit routes under /orgs/{orgID}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.RequireOrganization("orgID", permissions.ViewAuditLog)).
		Get("/orgs/{orgID}/audit", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}

	filters, err := parseTimelineFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}

	result, err := h.service.Timeline(r.Context(), orgID, filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.String("org_id", orgID.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result.Events == nil {
		result.Events = []Event{}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func parseTimelineFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	filters := TimelineFilters{
		Action:       q.Get("action"),
		ResourceType: q.Get("resourceType"),
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, err
		}
		filters.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, err
		}
		filters.To = t
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filters, err
		}
		filters.Page = page
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return filters, err
		}
		filters.PageSize = size
	}
	return filters, nil
}
