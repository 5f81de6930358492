package members

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/audit"
	"github.com/worklane/worklane/internal/authz"
	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/platform/httpx"
)

// Handler wires membership endpoints for organizations and projects.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	recorder  audit.Recorder
	validator *validator.Validate
}

// NewHandler constructs the membership HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware, recorder audit.Recorder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// MountRoutes registers membership routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orgs/{orgID}/members", h.listOrganizationMembers)
	r.With(h.authz.RequireOrganization("orgID", permissions.InviteMembers)).
		Post("/orgs/{orgID}/members", h.addOrganizationMember)
	r.With(h.authz.RequireOrganization("orgID", permissions.ManageUsers)).
		Put("/orgs/{orgID}/members/{userID}", h.updateOrganizationMember)
	r.With(h.authz.RequireOrganization("orgID", permissions.RemoveMembers)).
		Delete("/orgs/{orgID}/members/{userID}", h.removeOrganizationMember)

	r.With(h.authz.RequireProject("projectID", permissions.ViewProject)).
		Get("/projects/{projectID}/members", h.listProjectMembers)
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireProject("projectID", permissions.ManageProjectMembers))
		r.Post("/projects/{projectID}/members", h.addProjectMember)
		r.Put("/projects/{projectID}/members/{userID}", h.updateProjectMember)
		r.Delete("/projects/{projectID}/members/{userID}", h.removeProjectMember)
		r.Put("/projects/{projectID}/members/{userID}/permissions", h.setOverride)
		r.Delete("/projects/{projectID}/members/{userID}/permissions/{permission}", h.clearOverride)
	})
}

type addOrganizationMemberRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	RoleID uuid.UUID `json:"roleId" validate:"required"`
}

type updateMemberRoleRequest struct {
	RoleID uuid.UUID `json:"roleId" validate:"required"`
}

type overrideRequest struct {
	PermissionName string `json:"permissionName" validate:"required"`
	Granted        bool   `json:"granted"`
}

type addProjectMemberRequest struct {
	UserID      uuid.UUID         `json:"userId" validate:"required"`
	RoleID      uuid.UUID         `json:"roleId" validate:"required"`
	Permissions []overrideRequest `json:"permissions" validate:"dive"`
}

type updateProjectMemberRequest struct {
	RoleID      uuid.UUID         `json:"roleId" validate:"required"`
	Permissions []overrideRequest `json:"permissions" validate:"dive"`
}

func (h *Handler) listOrganizationMembers(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	// The roster is visible to any member, no specific permission needed.
	if _, err := h.service.GetOrganizationMember(r.Context(), orgID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "not a member of this organization")
			return
		}
		httpx.RespondError(w, err)
		return
	}

	list, err := h.service.ListOrganizationMembers(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list organization members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []OrganizationMember{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) addOrganizationMember(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	var req addOrganizationMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	member, err := h.service.AddOrganizationMember(r.Context(), orgID, req.UserID, req.RoleID)
	if err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionMemberInvited, audit.ResourceMember, req.UserID, map[string]any{"roleId": req.RoleID.String()})
	httpx.JSON(w, http.StatusCreated, member)
}

func (h *Handler) updateOrganizationMember(w http.ResponseWriter, r *http.Request) {
	orgID, userID, ok := parseMemberParams(w, r, "orgID")
	if !ok {
		return
	}
	var req updateMemberRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	member, err := h.service.UpdateOrganizationMemberRole(r.Context(), orgID, userID, req.RoleID)
	if err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionMemberRoleUpdated, audit.ResourceMember, userID, map[string]any{"roleId": req.RoleID.String()})
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) removeOrganizationMember(w http.ResponseWriter, r *http.Request) {
	orgID, userID, ok := parseMemberParams(w, r, "orgID")
	if !ok {
		return
	}
	actorID, hasActor := authz.CurrentUserID(r)
	if !hasActor {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	if err := h.service.RemoveOrganizationMember(r.Context(), actorID, orgID, userID); err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionMemberRemoved, audit.ResourceMember, userID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listProjectMembers(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	list, err := h.service.ListProjectMembers(r.Context(), projectID)
	if err != nil {
		h.logger.Error("list project members", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []ProjectMember{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) addProjectMember(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	var req addProjectMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	member, err := h.service.AddProjectMember(r.Context(), projectID, req.UserID, req.RoleID, toOverrideInputs(req.Permissions))
	if err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.recordProject(r, projectID, audit.ActionProjectMemberAdded, req.UserID, map[string]any{"roleId": req.RoleID.String()})
	httpx.JSON(w, http.StatusCreated, member)
}

func (h *Handler) updateProjectMember(w http.ResponseWriter, r *http.Request) {
	projectID, userID, ok := parseMemberParams(w, r, "projectID")
	if !ok {
		return
	}
	var req updateProjectMemberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	member, err := h.service.UpdateProjectMember(r.Context(), projectID, userID, req.RoleID, toOverrideInputs(req.Permissions))
	if err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.recordProject(r, projectID, audit.ActionProjectMemberUpdated, userID, map[string]any{"roleId": req.RoleID.String()})
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) removeProjectMember(w http.ResponseWriter, r *http.Request) {
	projectID, userID, ok := parseMemberParams(w, r, "projectID")
	if !ok {
		return
	}
	if err := h.service.RemoveProjectMember(r.Context(), projectID, userID); err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.recordProject(r, projectID, audit.ActionProjectMemberRemoved, userID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	projectID, userID, ok := parseMemberParams(w, r, "projectID")
	if !ok {
		return
	}
	var req overrideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	if err := h.service.SetOverride(r.Context(), projectID, userID, req.PermissionName, req.Granted); err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.recordProject(r, projectID, audit.ActionProjectMemberUpdated, userID, map[string]any{
		"permission": req.PermissionName,
		"granted":    req.Granted,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearOverride(w http.ResponseWriter, r *http.Request) {
	projectID, userID, ok := parseMemberParams(w, r, "projectID")
	if !ok {
		return
	}
	permission := chi.URLParam(r, "permission")
	if err := h.service.ClearOverride(r.Context(), projectID, userID, permission); err != nil {
		h.respondMemberError(w, err)
		return
	}
	h.recordProject(r, projectID, audit.ActionProjectMemberUpdated, userID, map[string]any{
		"permission": permission,
		"cleared":    true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func parseMemberParams(w http.ResponseWriter, r *http.Request, scopeParam string) (scopeID, userID uuid.UUID, ok bool) {
	scopeID, err := uuid.Parse(chi.URLParam(r, scopeParam))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", scopeParam+" must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "user id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return scopeID, userID, true
}

func toOverrideInputs(reqs []overrideRequest) []OverrideInput {
	if len(reqs) == 0 {
		return nil
	}
	inputs := make([]OverrideInput, 0, len(reqs))
	for _, req := range reqs {
		inputs = append(inputs, OverrideInput{PermissionName: req.PermissionName, Granted: req.Granted})
	}
	return inputs
}

func (h *Handler) respondMemberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", "membership not found")
	case errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrAlreadyProjectMember):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrSelfRemoval):
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "cannot remove yourself from the organization")
	case errors.Is(err, ErrNotOrganizationMember), errors.Is(err, ErrRoleNotInOrganization):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
	case errors.Is(err, permissions.ErrUnknown):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
	default:
		h.logger.Error("membership mutation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) record(r *http.Request, orgID uuid.UUID, action, resourceType string, subject uuid.UUID, metadata map[string]any) {
	actorID, ok := authz.CurrentUserID(r)
	if !ok {
		return
	}
	event := audit.Event{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     subject.String(),
		Metadata:       metadata,
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func (h *Handler) recordProject(r *http.Request, projectID uuid.UUID, action string, subject uuid.UUID, metadata map[string]any) {
	orgID, err := h.service.ProjectOrganization(r.Context(), projectID)
	if err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["projectId"] = projectID.String()
	h.record(r, orgID, action, audit.ResourceProjectMember, subject, metadata)
}
