package backend

import (
	"context"
	"fmt"

	"github.com/templui/taskboard/internal/metrics"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/realtime"
)

type tasksClient client

func (t *tasksClient) Select(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := t.do("tasks.select", func() error {
		var err error
		tasks, err = t.platform.tasks.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (t *tasksClient) Insert(ctx context.Context, task model.NewTask) (*model.Task, error) {
	var created *model.Task
	err := t.do("tasks.insert", func() error {
		var err error
		created, err = t.platform.tasks.Create(ctx, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	t.platform.publish(realtime.EventInsert, taskRow(created), nil)
	return created, nil
}

func (t *tasksClient) Update(ctx context.Context, id int64, patch model.TaskPatch) error {
	var updated *model.Task
	err := t.do("tasks.update", func() error {
		var err error
		updated, err = t.platform.tasks.Update(ctx, id, patch)
		if isNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil || updated == nil {
		return err
	}

	t.platform.publish(realtime.EventUpdate, taskRow(updated), map[string]any{"id": id})
	return nil
}

func (t *tasksClient) Delete(ctx context.Context, id int64) error {
	var deleted *model.Task
	err := t.do("tasks.delete", func() error {
		var err error
		deleted, err = t.platform.tasks.Delete(ctx, id)
		if isNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil || deleted == nil {
		return err
	}

	t.platform.publish(realtime.EventDelete, nil, taskRow(deleted))
	return nil
}

// do checks the session, runs fn and records the outcome under op.
func (t *tasksClient) do(op string, fn func() error) error {
	_, err := (*client)(t).requireSession()
	if err != nil {
		t.platform.recorder.RecordBackendRequest(op, metrics.OutcomeError)
		return err
	}

	err = fn()
	t.platform.recorder.RecordBackendRequest(op, metrics.Outcome(err))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
