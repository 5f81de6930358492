package roles

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

// Handler wires role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	recorder  audit.Recorder
	validator *validator.Validate
}

// NewHandler constructs the role HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware, recorder audit.Recorder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// MountRoutes registers role routes. Reading the role list needs the same
// permission as editing; role definitions reveal the tenant's access model.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireOrganization("orgID", permissions.ManageRoles))
		r.Get("/orgs/{orgID}/roles", h.listRoles)
		r.Post("/orgs/{orgID}/roles", h.createRole)
		r.Get("/orgs/{orgID}/roles/{roleID}", h.getRole)
		r.Put("/orgs/{orgID}/roles/{roleID}", h.updateRole)
		r.Delete("/orgs/{orgID}/roles/{roleID}", h.deleteRole)
	})
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"required"`
}

type updateRoleRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Permissions []string `json:"permissions"`
}

type roleResponse struct {
	ID          uuid.UUID                `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	IsSystem    bool                     `json:"isSystem"`
	Permissions []permissions.Permission `json:"permissions"`
}

func toResponse(role WithPermissions) roleResponse {
	perms := role.Permissions
	if perms == nil {
		perms = []permissions.Permission{}
	}
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		Permissions: perms,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	list, err := h.service.ListByOrganization(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(list))
	for _, role := range list {
		out = append(out, toResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	orgID, roleID, ok := h.parseRoleParams(w, r)
	if !ok {
		return
	}
	role, err := h.service.GetWithPermissions(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if role.OrganizationID == nil || *role.OrganizationID != orgID {
		httpx.Problem(w, http.StatusNotFound, "Not found", "role not found in organization")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(role))
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}

	role, err := h.service.CreateCustomRole(r.Context(), orgID, req.Name, req.Description, req.Permissions)
	if err != nil {
		h.respondRoleError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionRoleCreated, role.ID, map[string]any{"name": role.Name})
	httpx.JSON(w, http.StatusCreated, toResponse(role))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	orgID, roleID, ok := h.parseRoleParams(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	if !h.roleInOrganization(w, r, orgID, roleID) {
		return
	}

	role, err := h.service.Update(r.Context(), roleID, UpdatePatch{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.respondRoleError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionRoleUpdated, role.ID, map[string]any{"name": role.Name})
	httpx.JSON(w, http.StatusOK, toResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	orgID, roleID, ok := h.parseRoleParams(w, r)
	if !ok {
		return
	}
	if !h.roleInOrganization(w, r, orgID, roleID) {
		return
	}
	if err := h.service.Delete(r.Context(), roleID); err != nil {
		h.respondRoleError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionRoleDeleted, roleID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseRoleParams(w http.ResponseWriter, r *http.Request) (orgID, roleID uuid.UUID, ok bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	roleID, err = uuid.Parse(chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "role id must be a UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, roleID, true
}

// roleInOrganization stops cross-tenant role access through a mismatched
// URL pair.
func (h *Handler) roleInOrganization(w http.ResponseWriter, r *http.Request, orgID, roleID uuid.UUID) bool {
	role, err := h.service.Get(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if role.OrganizationID == nil || *role.OrganizationID != orgID {
		httpx.Problem(w, http.StatusNotFound, "Not found", "role not found in organization")
		return false
	}
	return true
}

func (h *Handler) respondRoleError(w http.ResponseWriter, err error) {
	var inUse *InUseError
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", "role not found")
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Conflict", "role name already exists")
	case errors.Is(err, ErrSystemImmutable):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "system roles cannot be modified")
	case errors.As(err, &inUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", inUse.Error())
	case errors.Is(err, permissions.ErrUnknown):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
	default:
		h.logger.Error("role mutation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) record(r *http.Request, orgID uuid.UUID, action string, roleID uuid.UUID, metadata map[string]any) {
	actorID, ok := authz.CurrentUserID(r)
	if !ok {
		return
	}
	event := audit.Event{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   audit.ResourceRole,
		ResourceID:     roleID.String(),
		Metadata:       metadata,
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
