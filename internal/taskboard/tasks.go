package taskboard

import (
	"context"
	"log/slog"

	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/validation"
)

// Refresh triggers recorded against taskboard_snapshot_refreshes_total.
const (
	TriggerSignIn   = "sign_in"
	TriggerMutation = "mutation"
	TriggerRealtime = "realtime"
	TriggerManual   = "manual"
)

// CreateInput is a submitted create form.
type CreateInput struct {
	Title       string
	Description string
	Image       *Attachment
	Video       *Attachment
}

// TaskRepository is the CRUD facade over the tasks table. Every successful
// mutation is followed by a full re-fetch.
type TaskRepository struct {
	b *Board
	// fetch sequence numbers; a result older than the applied one is dropped
	issued  uint64
	applied uint64
}

func (r *TaskRepository) list(trigger string, finish func(error)) {
	b := r.b
	r.issued++
	seq := r.issued
	b.recorder.RecordSnapshotRefresh(trigger)

	call(b, func(ctx context.Context) ([]model.Task, error) {
		return b.client.Tasks().Select(ctx)
	}, func(tasks []model.Task, err error) {
		if err != nil {
			slog.Error("error reading tasks", "error", err)
			finish(err)
			return
		}
		if seq < r.applied {
			slog.Debug("discarding stale task list", "seq", seq, "applied", r.applied)
			finish(nil)
			return
		}
		r.applied = seq
		if tasks == nil {
			tasks = []model.Task{}
		}
		b.state.Tasks = tasks
		b.changed()
		finish(nil)
	})
}

type uploaded struct {
	image *string
	video *string
}

func (r *TaskRepository) create(in CreateInput, finish func(error)) {
	b := r.b
	b.state.Form = Form{Title: in.Title, Description: in.Description}
	b.changed()

	err := validation.ValidateNewTask(in.Title, in.Description)
	if err != nil {
		finish(err)
		return
	}

	call(b, func(ctx context.Context) (uploaded, error) {
		var u uploaded
		u.image = b.uploader.Upload(ctx, in.Image, ImagesFolder)
		u.video = b.uploader.Upload(ctx, in.Video, VideosFolder)
		return u, nil
	}, func(u uploaded, _ error) {
		r.insert(model.NewTask{
			Title:       in.Title,
			Description: in.Description,
			ImageURL:    u.image,
			VideoURL:    u.video,
		}, finish)
	})
}

func (r *TaskRepository) insert(task model.NewTask, finish func(error)) {
	b := r.b
	call(b, func(ctx context.Context) (*model.Task, error) {
		return b.client.Tasks().Insert(ctx, task)
	}, func(created *model.Task, err error) {
		if err != nil {
			slog.Error("error inserting task", "error", err)
			finish(err)
			return
		}
		slog.Info("task inserted", "id", created.ID)
		b.state.Form = Form{}
		b.changed()
		r.list(TriggerMutation, finish)
	})
}

func (r *TaskRepository) updateDescription(id int64, text string, finish func(error)) {
	b := r.b
	b.state.EditDraft = text
	b.changed()

	call(b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.client.Tasks().Update(ctx, id, model.TaskPatch{Description: &text})
	}, func(_ struct{}, err error) {
		if err != nil {
			slog.Error("error updating task", "id", id, "error", err)
			finish(err)
			return
		}
		slog.Info("task updated", "id", id)
		b.state.EditDraft = ""
		b.changed()
		r.list(TriggerMutation, finish)
	})
}

func (r *TaskRepository) delete(id int64, confirm Confirmer, finish func(error)) {
	b := r.b
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		finish(nil)
		return
	}

	call(b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.client.Tasks().Delete(ctx, id)
	}, func(_ struct{}, err error) {
		if err != nil {
			slog.Error("error deleting task", "id", id, "error", err)
			finish(err)
			return
		}
		slog.Info("task deleted", "id", id)
		r.list(TriggerMutation, finish)
	})
}

// Refresh re-fetches the task list.
func (b *Board) Refresh(ctx context.Context) error {
	return b.do(ctx, func(finish func(error)) {
		b.tasks.list(TriggerManual, finish)
	})
}

// Create uploads the attachments (image first, then video), inserts the row
// and re-fetches. A failed upload leaves that URL nil; a failed insert keeps
// the form populated.
func (b *Board) Create(ctx context.Context, in CreateInput) error {
	return b.do(ctx, func(finish func(error)) {
		b.tasks.create(in, finish)
	})
}

// UpdateDescription replaces one task's description. "" is a valid description.
func (b *Board) UpdateDescription(ctx context.Context, id int64, text string) error {
	return b.do(ctx, func(finish func(error)) {
		b.tasks.updateDescription(id, text, finish)
	})
}

// Delete asks confirm first; a nil or declining Confirmer makes no backend call.
func (b *Board) Delete(ctx context.Context, id int64, confirm Confirmer) error {
	return b.do(ctx, func(finish func(error)) {
		b.tasks.delete(id, confirm, finish)
	})
}
