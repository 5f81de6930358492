package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// User is a global account. Authorization is organization-scoped; the
// account itself is not.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound           = errors.New("users: not found")
	ErrDuplicateEmail     = errors.New("users: email already registered")
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	ErrWeakPassword       = errors.New("users: password must be at least 8 characters")
)
