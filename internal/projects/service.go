package projects

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service coordinates project and task lifecycle.
type Service struct {
	repo Repository
}

// NewService constructs the project service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	return s.repo.GetProject(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context, orgID uuid.UUID) ([]Project, error) {
	return s.repo.ListProjects(ctx, orgID)
}

func (s *Service) CreateProject(ctx context.Context, orgID uuid.UUID, name, description string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, errors.New("projects: name is required")
	}
	now := time.Now().UTC()
	project := Project{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           name,
		Description:    strings.TrimSpace(description),
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return Project{}, err
	}
	return project, nil
}

func (s *Service) UpdateProject(ctx context.Context, id uuid.UUID, name, description *string) (Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return Project{}, errors.New("projects: name is required")
		}
		project.Name = trimmed
	}
	if description != nil {
		project.Description = strings.TrimSpace(*description)
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return Project{}, err
	}
	return project, nil
}

// SetArchived flips a project between ACTIVE and ARCHIVED.
func (s *Service) SetArchived(ctx context.Context, id uuid.UUID, archived bool) (Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return Project{}, err
	}
	if archived {
		project.Status = StatusArchived
	} else {
		project.Status = StatusActive
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return Project{}, err
	}
	return project, nil
}

func (s *Service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteProject(ctx, id)
}

func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	return s.repo.GetTask(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, projectID uuid.UUID) ([]Task, error) {
	return s.repo.ListTasks(ctx, projectID)
}

// TaskInput carries the caller-supplied task fields.
type TaskInput struct {
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// CreateTask adds a task to an active project. Status defaults to TODO and
// priority to MEDIUM when unset.
func (s *Service) CreateTask(ctx context.Context, projectID, creatorID uuid.UUID, input TaskInput) (Task, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Task{}, err
	}
	if project.Status == StatusArchived {
		return Task{}, ErrArchived
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Task{}, errors.New("projects: task title is required")
	}
	if input.Status == "" {
		input.Status = TaskTodo
	}
	if !input.Status.Valid() {
		return Task{}, ErrInvalidStatus
	}
	if input.Priority == "" {
		input.Priority = PriorityMedium
	}
	if !input.Priority.Valid() {
		return Task{}, ErrInvalidPriority
	}

	now := time.Now().UTC()
	task := Task{
		ID:          uuid.New(),
		ProjectID:   projectID,
		CreatorID:   creatorID,
		AssigneeID:  input.AssigneeID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// TaskPatch describes a partial task update. Nil fields keep the current
// value.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	AssigneeID  **uuid.UUID
	DueDate     **time.Time
}

func (s *Service) UpdateTask(ctx context.Context, id uuid.UUID, patch TaskPatch) (Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return Task{}, errors.New("projects: task title is required")
		}
		task.Title = trimmed
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return Task{}, ErrInvalidStatus
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return Task{}, ErrInvalidPriority
		}
		task.Priority = *patch.Priority
	}
	if patch.AssigneeID != nil {
		task.AssigneeID = *patch.AssigneeID
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	task.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return Task{}, err
	}
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTask(ctx, id)
}
