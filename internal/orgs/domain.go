package orgs

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Organization is the top-level tenant boundary. Every role clone,
// membership, and audit event hangs off one organization.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	ErrNotFound      = errors.New("orgs: organization not found")
	ErrDuplicateSlug = errors.New("orgs: slug already taken")
)
