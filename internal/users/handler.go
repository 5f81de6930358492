package users

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
	"github.com/worklane/worklane/internal/shared"
)

// Handler wires account management and session endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	recorder  audit.Recorder
	validator *validator.Validate
}

// NewHandler constructs the user HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware, recorder audit.Recorder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// MountRoutes registers session routes plus org-scoped user management.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Get("/me", h.currentUser)

	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireOrganization("orgID", permissions.ManageUsers))
		r.Get("/orgs/{orgID}/users", h.listUsers)
		r.Post("/orgs/{orgID}/users", h.createUser)
		r.Put("/orgs/{orgID}/users/{userID}", h.updateUser)
		r.Post("/orgs/{orgID}/users/{userID}/password", h.resetPassword)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Password string `json:"password" validate:"required,min=8"`
}

type updateUserRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
	Name  *string `json:"name" validate:"omitempty,min=2,max=120"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("login without session middleware")
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "session unavailable")
		return
	}
	sess.SetUser(user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	// The session middleware commits the destroy on the way out.
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Destroy()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	users, err := h.service.ListByOrganization(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	user, err := h.service.Create(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "email already registered")
			return
		}
		if errors.Is(err, ErrWeakPassword) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
			return
		}
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionUserCreated, user.ID, map[string]any{"email": user.Email})
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "user id must be a UUID")
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	user, err := h.service.Update(r.Context(), userID, req.Name, req.Email)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "email already registered")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionUserUpdated, user.ID, nil)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "user id must be a UUID")
		return
	}
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	if err := h.service.SetPassword(r.Context(), userID, req.Password); err != nil {
		if errors.Is(err, ErrWeakPassword) {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	h.record(r, orgID, audit.ActionPasswordReset, userID, nil)
	w.WriteHeader(http.StatusNoContent)
}

// record emits a trail event after a successful mutation. Trail failures
// are logged, never surfaced to the caller.
func (h *Handler) record(r *http.Request, orgID uuid.UUID, action string, subject uuid.UUID, metadata map[string]any) {
	actorID, ok := authz.CurrentUserID(r)
	if !ok {
		return
	}
	event := audit.Event{
		OrganizationID: orgID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   audit.ResourceUser,
		ResourceID:     subject.String(),
		Metadata:       metadata,
	}
	if err := h.recorder.Record(r.Context(), event); err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
