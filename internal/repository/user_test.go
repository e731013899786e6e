package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/taskboard/internal/model"
)

func newUser(email string) *model.User {
	return &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
}

func TestUserRepositoryCreateAndLookup(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	user := newUser("ada@example.com")
	require.NoError(t, repo.Create(user))

	byEmail, err := repo.ByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.False(t, byEmail.IsConfirmed())

	byID, err := repo.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(newUser("ada@example.com")))
	err := repo.Create(newUser("ada@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserRepositoryNotFound(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	_, err := repo.ByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.ByID("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Update(newUser("nobody@example.com"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepositoryUpdateConfirmsEmail(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	user := newUser("ada@example.com")
	require.NoError(t, repo.Create(user))

	now := time.Now()
	user.EmailConfirmedAt = &now
	user.PasswordHash = "new-hash"
	require.NoError(t, repo.Update(user))

	got, err := repo.ByID(user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsConfirmed())
	assert.Equal(t, "new-hash", got.PasswordHash)
}
