package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/shared"
)

// Middleware wires authorization checks for HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// CurrentUserID extracts the authenticated user id from the request session.
func CurrentUserID(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	return sess.UserID()
}

// RequireAuthenticated rejects anonymous requests.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUserID(r); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOrganization guards a route with an organization-level permission.
// The organization id is read from the named chi URL parameter.
func (m Middleware) RequireOrganization(param, permission string) func(http.Handler) http.Handler {
	return m.require(KindOrganization, param, permission)
}

// RequireProject guards a route with a project-level permission.
func (m Middleware) RequireProject(param, permission string) func(http.Handler) http.Handler {
	return m.require(KindProject, param, permission)
}

// RequireTask guards a route with a task-level permission.
func (m Middleware) RequireTask(param, permission string) func(http.Handler) http.Handler {
	return m.require(KindTask, param, permission)
}

func (m Middleware) require(kind ResourceKind, param, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := CurrentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			resourceID, err := uuid.Parse(chi.URLParam(r, param))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			allowed, err := m.Resolver.Resolve(r.Context(), userID, kind, resourceID, permission)
			if err != nil {
				// Fail closed: a broken check is a denial, not an allow.
				if m.Logger != nil {
					m.Logger.Error("authorization check", slog.String("permission", permission), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
