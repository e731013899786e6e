package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/taskboard/internal/model"
)

func strPtr(s string) *string { return &s }

func TestTaskRepositoryListNewestFirst(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := repo.Create(ctx, model.NewTask{Title: title, Description: "d"})
		require.NoError(t, err)
	}

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "third", tasks[0].Title)
	assert.Equal(t, "first", tasks[2].Title)
	for i := 1; i < len(tasks); i++ {
		assert.Greater(t, tasks[i-1].ID, tasks[i].ID)
	}
}

func TestTaskRepositoryListEmpty(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))

	tasks, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskRepositoryCreateReturnsRow(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))

	created, err := repo.Create(context.Background(), model.NewTask{
		Title:       "Buy milk",
		Description: "2%",
		ImageURL:    strPtr("https://cdn.example.com/images/1-milk.png"),
	})
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "2%", created.Description)
	require.NotNil(t, created.ImageURL)
	assert.Equal(t, "https://cdn.example.com/images/1-milk.png", *created.ImageURL)
	assert.Nil(t, created.VideoURL)
}

func TestTaskRepositoryUpdateDescription(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, model.NewTask{Title: "Buy milk", Description: "2%"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.ID, model.TaskPatch{Description: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Description)
	assert.Equal(t, "Buy milk", updated.Title)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "", tasks[0].Description)
}

func TestTaskRepositoryUpdateErrors(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Update(ctx, 42, model.TaskPatch{Description: strPtr("x")})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = repo.Update(ctx, 42, model.TaskPatch{})
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestTaskRepositoryDelete(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, model.NewTask{Title: "Buy milk", Description: "2%"})
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
