package permissions

// Organization permissions.
const (
	ManageOrganization = "MANAGE_ORGANIZATION"
	ManageUsers        = "MANAGE_USERS"
	ManageBilling      = "MANAGE_BILLING"
	ManageRoles        = "MANAGE_ROLES"
	ViewAuditLog       = "VIEW_AUDIT_LOG"
	InviteMembers      = "INVITE_MEMBERS"
	RemoveMembers      = "REMOVE_MEMBERS"
)

// Project permissions.
const (
	CreateProject        = "CREATE_PROJECT"
	EditProject          = "EDIT_PROJECT"
	DeleteProject        = "DELETE_PROJECT"
	ViewProject          = "VIEW_PROJECT"
	ManageProjectMembers = "MANAGE_PROJECT_MEMBERS"
	ArchiveProject       = "ARCHIVE_PROJECT"
)

// Task permissions.
const (
	CreateTask       = "CREATE_TASK"
	EditTask         = "EDIT_TASK"
	DeleteTask       = "DELETE_TASK"
	ViewTask         = "VIEW_TASK"
	AssignTask       = "ASSIGN_TASK"
	ChangeTaskStatus = "CHANGE_TASK_STATUS"
	CommentTask      = "COMMENT_TASK"
	EditTaskPriority = "EDIT_TASK_PRIORITY"
)

// Definition describes a catalog entry registered at initialization.
type Definition struct {
	Name        string
	Description string
	Category    Category
}

// DefaultCatalog returns the built-in permission set registered at first
// system initialization. Registration is idempotent (upsert by name).
func DefaultCatalog() []Definition {
	return []Definition{
		{ManageOrganization, "Edit organization settings and configuration", CategoryOrganization},
		{ManageUsers, "Manage organization users and their roles", CategoryOrganization},
		{ManageBilling, "Access and manage billing information", CategoryOrganization},
		{ManageRoles, "Create, edit, and delete custom roles", CategoryOrganization},
		{ViewAuditLog, "View organization audit logs", CategoryOrganization},
		{InviteMembers, "Invite new members to the organization", CategoryOrganization},
		{RemoveMembers, "Remove members from the organization", CategoryOrganization},

		{CreateProject, "Create new projects", CategoryProject},
		{EditProject, "Edit project details and settings", CategoryProject},
		{DeleteProject, "Delete projects permanently", CategoryProject},
		{ViewProject, "View project details", CategoryProject},
		{ManageProjectMembers, "Add, remove, and manage project members", CategoryProject},
		{ArchiveProject, "Archive or unarchive projects", CategoryProject},

		{CreateTask, "Create new tasks", CategoryTask},
		{EditTask, "Edit task details", CategoryTask},
		{DeleteTask, "Delete tasks", CategoryTask},
		{ViewTask, "View task details", CategoryTask},
		{AssignTask, "Assign tasks to team members", CategoryTask},
		{ChangeTaskStatus, "Change task status (TODO, IN_PROGRESS, etc.)", CategoryTask},
		{CommentTask, "Add comments to tasks", CategoryTask},
		{EditTaskPriority, "Change task priority", CategoryTask},
	}
}
