package permissions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/worklane/worklane/internal/platform/httpx"
)

// Handler serves the read-only permission catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the permission HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes. Any authenticated user may read
// the catalog; it carries no tenant data.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		perms []Permission
		err   error
	)
	if raw := r.URL.Query().Get("category"); raw != "" {
		perms, err = h.service.ListByCategory(r.Context(), Category(raw))
	} else {
		perms, err = h.service.List(r.Context())
	}
	if err != nil {
		if errors.Is(err, ErrInvalidCategory) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid filter", err.Error())
			return
		}
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if perms == nil {
		perms = []Permission{}
	}
	httpx.JSON(w, http.StatusOK, perms)
}
