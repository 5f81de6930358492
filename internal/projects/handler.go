package projects

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/worklane/worklane/internal/authz"
	"github.com/worklane/worklane/internal/permissions"
	"github.com/worklane/worklane/internal/platform/httpx"
)

// Handler wires project and task endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs the project HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: mw, validator: validator.New()}
}

// MountRoutes registers project and task routes. Each route is guarded by
// the exact permission it exercises; task creators bypass the checks on
// their own tasks inside the resolver.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.RequireOrganization("orgID", permissions.ViewProject)).
		Get("/orgs/{orgID}/projects", h.listProjects)
	r.With(h.authz.RequireOrganization("orgID", permissions.CreateProject)).
		Post("/orgs/{orgID}/projects", h.createProject)

	r.With(h.authz.RequireProject("projectID", permissions.ViewProject)).
		Get("/projects/{projectID}", h.getProject)
	r.With(h.authz.RequireProject("projectID", permissions.EditProject)).
		Put("/projects/{projectID}", h.updateProject)
	r.With(h.authz.RequireProject("projectID", permissions.DeleteProject)).
		Delete("/projects/{projectID}", h.deleteProject)
	r.With(h.authz.RequireProject("projectID", permissions.ArchiveProject)).
		Post("/projects/{projectID}/archive", h.archiveProject)
	r.With(h.authz.RequireProject("projectID", permissions.ArchiveProject)).
		Delete("/projects/{projectID}/archive", h.unarchiveProject)

	r.With(h.authz.RequireProject("projectID", permissions.ViewTask)).
		Get("/projects/{projectID}/tasks", h.listTasks)
	r.With(h.authz.RequireProject("projectID", permissions.CreateTask)).
		Post("/projects/{projectID}/tasks", h.createTask)

	r.With(h.authz.RequireTask("taskID", permissions.ViewTask)).
		Get("/tasks/{taskID}", h.getTask)
	r.With(h.authz.RequireTask("taskID", permissions.EditTask)).
		Put("/tasks/{taskID}", h.updateTask)
	r.With(h.authz.RequireTask("taskID", permissions.DeleteTask)).
		Delete("/tasks/{taskID}", h.deleteTask)
	r.With(h.authz.RequireTask("taskID", permissions.ChangeTaskStatus)).
		Patch("/tasks/{taskID}/status", h.changeTaskStatus)
	r.With(h.authz.RequireTask("taskID", permissions.EditTaskPriority)).
		Patch("/tasks/{taskID}/priority", h.changeTaskPriority)
	r.With(h.authz.RequireTask("taskID", permissions.AssignTask)).
		Patch("/tasks/{taskID}/assignee", h.assignTask)
}

type createProjectRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type updateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type createTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=300"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *uuid.UUID `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=300"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	projects, err := h.service.ListProjects(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if projects == nil {
		projects = []Project{}
	}
	httpx.JSON(w, http.StatusOK, projects)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "organization id must be a UUID")
		return
	}
	var req createProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	project, err := h.service.CreateProject(r.Context(), orgID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("create project", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	project, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	var req updateProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	project, err := h.service.UpdateProject(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) archiveProject(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *Handler) unarchiveProject(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *Handler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	project, err := h.service.SetArchived(r.Context(), id, archived)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	tasks, err := h.service.ListTasks(r.Context(), projectID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if tasks == nil {
		tasks = []Task{}
	}
	httpx.JSON(w, http.StatusOK, tasks)
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "project id must be a UUID")
		return
	}
	userID, ok := authz.CurrentUserID(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	var req createTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	task, err := h.service.CreateTask(r.Context(), projectID, userID, TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      TaskStatus(req.Status),
		Priority:    TaskPriority(req.Priority),
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, task)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "task id must be a UUID")
		return
	}
	task, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "task id must be a UUID")
		return
	}
	var req updateTaskRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation failed", err.Error())
		return
	}
	task, err := h.service.UpdateTask(r.Context(), id, TaskPatch{Title: req.Title, Description: req.Description})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "task id must be a UUID")
		return
	}
	if err := h.service.DeleteTask(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changeTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "task id must be a UUID")
		return
	}
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	status := TaskStatus(req.Status)
	task, err := h.service.UpdateTask(r.Context(), id, TaskPatch{Status: &status})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) changeTaskPriority(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "task id must be a UUID")
		return
	}
	var req struct {
		Priority string `json:"priority" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	priority := TaskPriority(req.Priority)
	task, err := h.service.UpdateTask(r.Context(), id, TaskPatch{Priority: &priority})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) assignTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid identifier", "task id must be a UUID")
		return
	}
	var req struct {
		AssigneeID *uuid.UUID `json:"assigneeId"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	task, err := h.service.UpdateTask(r.Context(), id, TaskPatch{AssigneeID: &req.AssigneeID})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}
