package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/worklane/worklane/internal/audit"
	"github.com/worklane/worklane/internal/authz"
	"github.com/worklane/worklane/internal/members"
	"github.com/worklane/worklane/internal/orgs"
	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/projects"
	"github.com/worklane/worklane/internal/roles"
	"github.com/worklane/worklane/internal/shared"
	"github.com/worklane/worklane/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager

	UsersHandler       *users.Handler
	OrgsHandler        *orgs.Handler
	RolesHandler       *roles.Handler
	MembersHandler     *members.Handler
	ProjectsHandler    *projects.Handler
	PermissionsHandler *permissions.Handler
	AuthzHandler       *authz.Handler
	AuditHandler       *audit.Handler
}

// NewRouter constructs the chi.Router with Worklane defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		params.UsersHandler.MountRoutes(api)
		params.OrgsHandler.MountRoutes(api)
		params.RolesHandler.MountRoutes(api)
		params.MembersHandler.MountRoutes(api)
		params.ProjectsHandler.MountRoutes(api)
		params.PermissionsHandler.MountRoutes(api)
		params.AuthzHandler.MountRoutes(api)
		params.AuditHandler.MountRoutes(api)
	})

	return r
}
