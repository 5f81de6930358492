package orgs

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/authz"
	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/platform/httpx"
)

// Handler wires organization endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs the organization HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers organization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orgs", h.listOrganizations)
	r.Post("/orgs", h.createOrganization)
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireOrganization("orgID", permissions.ManageOrganization))
		r.Put("/orgs/{orgID}", h.updateOrganization)
	})
	r.Get("/orgs/{orgID}", h.getOrganization)
}

type createOrganizationRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
	Slug string `json:"slug" validate:"omitempty,max=120"`
}

type updateOrganizationRequest struct {
	Name string `json:"name" validate:"omitempty,min=2,max=120"`
	Slug string `json:"slug" validate:"omitempty,max=120"`
}

func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	orgs, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list organizations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if orgs == nil {
		orgs = []Organization{}
	}
	httpx.JSON(w, http.StatusOK, orgs)
}

func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	// Any member may read the organization record itself.
	memberOf, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	for _, org := range memberOf {
		if org.ID == id {
			httpx.JSON(w, http.StatusOK, org)
			return
		}
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "not a member of this organization")
}

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	var req createOrganizationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	org, err := h.service.Create(r.Context(), userID, req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "slug already taken")
			return
		}
		h.logger.Error("create organization", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, org)
}

func (h *Handler) updateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	var req updateOrganizationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	org, err := h.service.Update(r.Context(), id, req.Name, req.Slug)
	if err != nil {
		if errors.Is(err, ErrDuplicateSlug) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "slug already taken")
			return
		}
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not found", "organization not found")
			return
		}
		h.logger.Error("update organization", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}
