package permissions

import (
	"errors"

	"github.com/google/uuid"
)

// Category scopes a permission to the resource level it applies to.
type Category string

const (
	CategoryOrganization Category = "ORGANIZATION"
	CategoryProject      Category = "PROJECT"
	CategoryTask         Category = "TASK"
)

// Valid reports whether the category is one of the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryOrganization, CategoryProject, CategoryTask:
		return true
	}
	return false
}

// Permission represents an atomic, named capability. Names are globally
// unique and never reused once referenced by a role.
type Permission struct {
	ID          uuid.UUID
	Name        string
	Description string
	Category    Category
}

var (
	// ErrDuplicateName indicates a permission name is already registered.
	ErrDuplicateName = errors.New("permissions: name already exists")
	// ErrInvalidCategory indicates a category outside the closed set.
	ErrInvalidCategory = errors.New("permissions: invalid category")
	// ErrUnknown indicates a referenced permission name is not in the catalog.
	ErrUnknown = errors.New("permissions: unknown permission")
)
