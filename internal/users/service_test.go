package users

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryUserRepo struct {
	users   map[uuid.UUID]User
	byEmail map[string]uuid.UUID
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:   make(map[uuid.UUID]User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (m *memoryUserRepo) Create(ctx context.Context, user User) error {
	if _, taken := m.byEmail[strings.ToLower(user.Email)]; taken {
		return ErrDuplicateEmail
	}
	m.users[user.ID] = user
	m.byEmail[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (m *memoryUserRepo) Get(ctx context.Context, id uuid.UUID) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	id, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *memoryUserRepo) Update(ctx context.Context, user User) error {
	current, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if id, taken := m.byEmail[strings.ToLower(user.Email)]; taken && id != user.ID {
		return ErrDuplicateEmail
	}
	delete(m.byEmail, strings.ToLower(current.Email))
	m.users[user.ID] = user
	m.byEmail[strings.ToLower(user.Email)] = user.ID
	return nil
}

func (m *memoryUserRepo) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]User, error) {
	return nil, nil
}

func TestCreateHashesPassword(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	user, err := svc.Create(context.Background(), "Bob@Example.com", "Bob", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", user.Email)
	require.True(t, user.IsActive)
	require.NotEmpty(t, user.PasswordHash)
	require.NotContains(t, user.PasswordHash, "hunter2")
}

func TestCreateRejectsWeakPassword(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	_, err := svc.Create(context.Background(), "bob@example.com", "Bob", "short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	_, err := svc.Create(context.Background(), "bob@example.com", "Bob", "hunter2hunter2")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), "BOB@example.com", "Other Bob", "hunter2hunter2")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	created, err := svc.Create(context.Background(), "bob@example.com", "Bob", "hunter2hunter2")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "bob@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(context.Background(), "bob@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsInactive(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	user, err := svc.Create(context.Background(), "bob@example.com", "Bob", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.SetActive(context.Background(), user.ID, false)
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "bob@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSetPasswordRotatesHash(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	user, err := svc.Create(context.Background(), "bob@example.com", "Bob", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, svc.SetPassword(context.Background(), user.ID, "correct-horse-battery"))

	_, err = svc.Authenticate(context.Background(), "bob@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "bob@example.com", "correct-horse-battery")
	require.NoError(t, err)
}

func TestUpdatePatchesSelectively(t *testing.T) {
	svc := NewService(newMemoryUserRepo())
	user, err := svc.Create(context.Background(), "bob@example.com", "Bob", "hunter2hunter2")
	require.NoError(t, err)

	name := "Robert"
	updated, err := svc.Update(context.Background(), user.ID, &name, nil)
	require.NoError(t, err)
	require.Equal(t, "Robert", updated.Name)
	require.Equal(t, "bob@example.com", updated.Email)
}
