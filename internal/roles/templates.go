package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/worklane/worklane/internal/permissions"
)

// Template is a built-in role definition seeded as a global system role.
type Template struct {
	Name        string
	Description string
	Permissions []string
}

// SystemRoleTemplates returns the built-in role ladder, from full access
// down to read-only.
func SystemRoleTemplates() []Template {
	allPermissions := make([]string, 0, 21)
	for _, def := range permissions.DefaultCatalog() {
		allPermissions = append(allPermissions, def.Name)
	}
	return []Template{
		{
			Name:        SystemSuperAdmin,
			Description: "Full system access with ability to manage everything including organization settings",
			Permissions: allPermissions,
		},
		{
			Name:        SystemOrgAdmin,
			Description: "Organization administrator with full access except super admin settings",
			Permissions: []string{
				permissions.ManageUsers,
				permissions.ManageBilling,
				permissions.ManageRoles,
				permissions.ViewAuditLog,
				permissions.InviteMembers,
				permissions.RemoveMembers,
				permissions.CreateProject,
				permissions.EditProject,
				permissions.DeleteProject,
				permissions.ViewProject,
				permissions.ManageProjectMembers,
				permissions.ArchiveProject,
				permissions.CreateTask,
				permissions.EditTask,
				permissions.DeleteTask,
				permissions.ViewTask,
				permissions.AssignTask,
				permissions.ChangeTaskStatus,
				permissions.CommentTask,
				permissions.EditTaskPriority,
			},
		},
		{
			Name:        SystemProjectManager,
			Description: "Manages projects with customizable permissions per project",
			Permissions: []string{
				permissions.CreateProject,
				permissions.EditProject,
				permissions.ViewProject,
				permissions.ManageProjectMembers,
				permissions.ArchiveProject,
				permissions.CreateTask,
				permissions.EditTask,
				permissions.DeleteTask,
				permissions.ViewTask,
				permissions.AssignTask,
				permissions.ChangeTaskStatus,
				permissions.CommentTask,
				permissions.EditTaskPriority,
			},
		},
		{
			Name:        SystemTeamLead,
			Description: "Leads teams within projects with task management capabilities",
			Permissions: []string{
				permissions.ViewProject,
				permissions.EditProject,
				permissions.CreateTask,
				permissions.EditTask,
				permissions.ViewTask,
				permissions.AssignTask,
				permissions.ChangeTaskStatus,
				permissions.CommentTask,
				permissions.EditTaskPriority,
			},
		},
		{
			Name:        SystemMember,
			Description: "Regular team member with basic task and project access",
			Permissions: []string{
				permissions.ViewProject,
				permissions.CreateTask,
				permissions.EditTask,
				permissions.ViewTask,
				permissions.ChangeTaskStatus,
				permissions.CommentTask,
			},
		},
		{
			Name:        SystemViewer,
			Description: "Read-only access to projects and tasks",
			Permissions: []string{
				permissions.ViewProject,
				permissions.ViewTask,
				permissions.CommentTask,
			},
		},
	}
}

// EnsureSystemRoles creates any missing system templates. Existing templates
// are left untouched; they may have been tuned by operators.
func (s *Service) EnsureSystemRoles(ctx context.Context) error {
	for _, tmpl := range SystemRoleTemplates() {
		_, err := s.CreateSystemRole(ctx, tmpl.Name, tmpl.Description, tmpl.Permissions)
		if err != nil && !errors.Is(err, ErrDuplicateName) {
			return fmt.Errorf("roles: seed %s: %w", tmpl.Name, err)
		}
	}
	return nil
}
