package projects

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryProjectRepo struct {
	projects map[uuid.UUID]Project
	tasks    map[uuid.UUID]Task
}

func newMemoryProjectRepo() *memoryProjectRepo {
	return &memoryProjectRepo{
		projects: make(map[uuid.UUID]Project),
		tasks:    make(map[uuid.UUID]Task),
	}
}

func (m *memoryProjectRepo) CreateProject(ctx context.Context, project Project) error {
	m.projects[project.ID] = project
	return nil
}

func (m *memoryProjectRepo) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryProjectRepo) UpdateProject(ctx context.Context, project Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return ErrNotFound
	}
	m.projects[project.ID] = project
	return nil
}

func (m *memoryProjectRepo) DeleteProject(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	for taskID, task := range m.tasks {
		if task.ProjectID == id {
			delete(m.tasks, taskID)
		}
	}
	return nil
}

func (m *memoryProjectRepo) ListProjects(ctx context.Context, orgID uuid.UUID) ([]Project, error) {
	var out []Project
	for _, p := range m.projects {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryProjectRepo) CreateTask(ctx context.Context, task Task) error {
	m.tasks[task.ID] = task
	return nil
}

func (m *memoryProjectRepo) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return t, nil
}

func (m *memoryProjectRepo) UpdateTask(ctx context.Context, task Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return ErrTaskNotFound
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *memoryProjectRepo) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memoryProjectRepo) ListTasks(ctx context.Context, projectID uuid.UUID) ([]Task, error) {
	var out []Task
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestCreateProjectDefaultsToActive(t *testing.T) {
	svc := NewService(newMemoryProjectRepo())
	project, err := svc.CreateProject(context.Background(), uuid.New(), "  Falcon  ", "launch tracker")
	require.NoError(t, err)
	require.Equal(t, "Falcon", project.Name)
	require.Equal(t, StatusActive, project.Status)
}

func TestCreateProjectRequiresName(t *testing.T) {
	svc := NewService(newMemoryProjectRepo())
	_, err := svc.CreateProject(context.Background(), uuid.New(), "   ", "")
	require.Error(t, err)
}

func TestCreateTaskDefaults(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo)
	project, err := svc.CreateProject(context.Background(), uuid.New(), "Falcon", "")
	require.NoError(t, err)

	creator := uuid.New()
	task, err := svc.CreateTask(context.Background(), project.ID, creator, TaskInput{Title: "Write docs"})
	require.NoError(t, err)
	require.Equal(t, TaskTodo, task.Status)
	require.Equal(t, PriorityMedium, task.Priority)
	require.Equal(t, creator, task.CreatorID)
}

func TestCreateTaskRejectsArchivedProject(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo)
	project, err := svc.CreateProject(context.Background(), uuid.New(), "Falcon", "")
	require.NoError(t, err)

	_, err = svc.SetArchived(context.Background(), project.ID, true)
	require.NoError(t, err)

	_, err = svc.CreateTask(context.Background(), project.ID, uuid.New(), TaskInput{Title: "late"})
	require.ErrorIs(t, err, ErrArchived)

	_, err = svc.SetArchived(context.Background(), project.ID, false)
	require.NoError(t, err)
	_, err = svc.CreateTask(context.Background(), project.ID, uuid.New(), TaskInput{Title: "on time"})
	require.NoError(t, err)
}

func TestCreateTaskRejectsInvalidEnums(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo)
	project, err := svc.CreateProject(context.Background(), uuid.New(), "Falcon", "")
	require.NoError(t, err)

	_, err = svc.CreateTask(context.Background(), project.ID, uuid.New(), TaskInput{Title: "x", Status: "BLOCKED"})
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.CreateTask(context.Background(), project.ID, uuid.New(), TaskInput{Title: "x", Priority: "ASAP"})
	require.ErrorIs(t, err, ErrInvalidPriority)
}

func TestUpdateTaskPatchesSelectively(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo)
	project, err := svc.CreateProject(context.Background(), uuid.New(), "Falcon", "")
	require.NoError(t, err)

	due := time.Now().Add(48 * time.Hour).UTC()
	assignee := uuid.New()
	task, err := svc.CreateTask(context.Background(), project.ID, uuid.New(), TaskInput{
		Title:      "Write docs",
		AssigneeID: &assignee,
		DueDate:    &due,
	})
	require.NoError(t, err)

	status := TaskInProgress
	updated, err := svc.UpdateTask(context.Background(), task.ID, TaskPatch{Status: &status})
	require.NoError(t, err)
	require.Equal(t, TaskInProgress, updated.Status)
	require.Equal(t, "Write docs", updated.Title)
	require.NotNil(t, updated.AssigneeID)
	require.Equal(t, assignee, *updated.AssigneeID)

	var noAssignee *uuid.UUID
	updated, err = svc.UpdateTask(context.Background(), task.ID, TaskPatch{AssigneeID: &noAssignee})
	require.NoError(t, err)
	require.Nil(t, updated.AssigneeID)

	bad := TaskStatus("LIMBO")
	_, err = svc.UpdateTask(context.Background(), task.ID, TaskPatch{Status: &bad})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDeleteTask(t *testing.T) {
	repo := newMemoryProjectRepo()
	svc := NewService(repo)
	project, err := svc.CreateProject(context.Background(), uuid.New(), "Falcon", "")
	require.NoError(t, err)
	task, err := svc.CreateTask(context.Background(), project.ID, uuid.New(), TaskInput{Title: "temp"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(context.Background(), task.ID))
	require.ErrorIs(t, svc.DeleteTask(context.Background(), task.ID), ErrTaskNotFound)
}
