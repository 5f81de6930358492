package authz

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/platform/httpx"
)

// Handler exposes the resolver as read-only introspection endpoints, so
// clients can gate their affordances on the same checks the server enforces
// on writes.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
}

// NewHandler constructs the authorization introspection handler.
func NewHandler(logger *slog.Logger, resolver *Resolver) *Handler {
	return &Handler{logger: logger, resolver: resolver}
}

// MountRoutes registers the introspection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions/check", h.check)
	r.Get("/permissions/access", h.access)
	r.Get("/permissions/role", h.role)
	r.Get("/permissions/effective", h.effective)
}

// check answers a single org- or project-level permission question. A
// projectId takes precedence over an orgId when both are supplied.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	permission := r.URL.Query().Get("permission")
	if permission == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "permission parameter required")
		return
	}
	kind, resourceID, ok := scopeTarget(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "either orgId or projectId is required")
		return
	}
	allowed, err := h.resolver.Resolve(r.Context(), userID, kind, resourceID, permission)
	if err != nil {
		h.logger.Error("permission check", slog.String("permission", permission), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"hasPermission": allowed})
}

// access checks a permission against an explicitly-typed resource, including
// tasks (which check cannot reach through scope parameters).
func (h *Handler) access(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	q := r.URL.Query()
	permission := q.Get("permission")
	kind := ResourceKind(strings.ToUpper(q.Get("resourceType")))
	resourceID, err := uuid.Parse(q.Get("resourceId"))
	if permission == "" || !kind.Valid() || err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "resourceType, resourceId, and permission are required")
		return
	}
	allowed, rerr := h.resolver.Resolve(r.Context(), userID, kind, resourceID, permission)
	if rerr != nil {
		h.logger.Error("access check", slog.String("permission", permission), slog.Any("error", rerr))
		httpx.RespondError(w, rerr)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"canAccess": allowed})
}

func (h *Handler) role(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	scope, ok := parseScope(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "either orgId or projectId is required")
		return
	}
	name, err := h.resolver.RoleName(r.Context(), userID, scope)
	if err != nil {
		h.logger.Error("role lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	var role *string
	if name != "" {
		role = &name
	}
	httpx.JSON(w, http.StatusOK, map[string]*string{"role": role})
}

func (h *Handler) effective(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	scope, ok := parseScope(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "either orgId or projectId is required")
		return
	}
	perms, err := h.resolver.EffectivePermissions(r.Context(), userID, scope)
	if err != nil {
		h.logger.Error("effective permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string][]string{"permissions": perms})
}

// scopeTarget picks the check target from query parameters, preferring the
// narrower project scope.
func scopeTarget(r *http.Request) (ResourceKind, uuid.UUID, bool) {
	q := r.URL.Query()
	if raw := q.Get("projectId"); raw != "" {
		id, err := uuid.Parse(raw)
		return KindProject, id, err == nil
	}
	if raw := q.Get("orgId"); raw != "" {
		id, err := uuid.Parse(raw)
		return KindOrganization, id, err == nil
	}
	return "", uuid.Nil, false
}

func parseScope(r *http.Request) (Scope, bool) {
	var scope Scope
	q := r.URL.Query()
	if raw := q.Get("orgId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Scope{}, false
		}
		scope.OrganizationID = &id
	}
	if raw := q.Get("projectId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return Scope{}, false
		}
		scope.ProjectID = &id
	}
	return scope, scope.OrganizationID != nil || scope.ProjectID != nil
}
