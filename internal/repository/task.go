package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/taskboard/internal/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrEmptyPatch   = errors.New("update has no fields")
)

type TaskRepository interface {
	// List returns every task, newest id first.
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task model.NewTask) (*model.Task, error)
	Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id int64) (*model.Task, error)
}

type taskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) List(ctx context.Context) ([]model.Task, error) {
	tasks := []model.Task{}
	query := `SELECT id, title, description, image_url, video_url FROM tasks ORDER BY id DESC`

	err := r.db.SelectContext(ctx, &tasks, query)
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task model.NewTask) (*model.Task, error) {
	created := &model.Task{}
	query := `INSERT INTO tasks (title, description, image_url, video_url)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, title, description, image_url, video_url`

	err := r.db.GetContext(ctx, created, query,
		task.Title,
		task.Description,
		task.ImageURL,
		task.VideoURL,
	)
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *taskRepository) Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	updated := &model.Task{}
	query := `UPDATE tasks SET description = $1 WHERE id = $2
	          RETURNING id, title, description, image_url, video_url`

	err := r.db.GetContext(ctx, updated, query, *patch.Description, id)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *taskRepository) Delete(ctx context.Context, id int64) (*model.Task, error) {
	deleted := &model.Task{}
	query := `DELETE FROM tasks WHERE id = $1
	          RETURNING id, title, description, image_url, video_url`

	err := r.db.GetContext(ctx, deleted, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	return deleted, nil
}
