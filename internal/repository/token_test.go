package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/taskboard/internal/model"
)

func TestTokenRepositoryConsumeOnce(t *testing.T) {
	database := newTestDB(t)
	users := NewUserRepository(database)
	tokens := NewTokenRepository(database)

	user := newUser("ada@example.com")
	require.NoError(t, users.Create(user))

	require.NoError(t, tokens.Create(&model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeEmailConfirm,
		Token:     "abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	consumed, err := tokens.ConsumeToken("abc")
	require.NoError(t, err)
	assert.Equal(t, user.ID, consumed.UserID)
	assert.True(t, consumed.IsUsed())

	_, err = tokens.ConsumeToken("abc")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepositoryExpiredToken(t *testing.T) {
	database := newTestDB(t)
	users := NewUserRepository(database)
	tokens := NewTokenRepository(database)

	user := newUser("ada@example.com")
	require.NoError(t, users.Create(user))

	require.NoError(t, tokens.Create(&model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeEmailConfirm,
		Token:     "old",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := tokens.ConsumeToken("old")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepositoryDeleteByUserAndType(t *testing.T) {
	database := newTestDB(t)
	users := NewUserRepository(database)
	tokens := NewTokenRepository(database)

	user := newUser("ada@example.com")
	require.NoError(t, users.Create(user))

	require.NoError(t, tokens.Create(&model.Token{
		UserID:    user.ID,
		Type:      model.TokenTypeEmailConfirm,
		Token:     "pending",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	require.NoError(t, tokens.DeleteByUserAndType(user.ID, model.TokenTypeEmailConfirm))

	_, err := tokens.ConsumeToken("pending")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
