package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/templui/taskboard/internal/ctxkeys"
	"github.com/templui/taskboard/internal/taskboard"
	"github.com/templui/taskboard/internal/ui"
	"github.com/templui/taskboard/internal/ui/pages"
	"github.com/templui/taskboard/internal/validation"
)

const (
	// MaxRequestBody covers the image and video limits plus form fields.
	MaxRequestBody  = 64 << 20
	maxFormInMemory = 8 << 20
)

type TaskHandler struct{}

func NewTaskHandler() *TaskHandler {
	return &TaskHandler{}
}

// Create handles the multipart create form: title, description, image, video.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())

	err := r.ParseMultipartForm(maxFormInMemory)
	if err != nil {
		slog.Warn("failed to parse task form", "error", err)
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in := taskboard.CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}

	image, closeImage := attachment(r, "image", validation.ImageConstraints)
	defer closeImage()
	in.Image = image

	video, closeVideo := attachment(r, "video", validation.VideoConstraints)
	defer closeVideo()
	in.Video = video

	err = view.Board.Create(context.WithoutCancel(r.Context()), in)
	if isValidationError(err) {
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.Dashboard(view.Board.Snapshot(), err.Error()))
		return
	}
	if err != nil {
		slog.Warn("task create failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// attachment opens the named file field. A missing or rejected file is
// omitted from the task, like a failed upload.
func attachment(r *http.Request, field string, constraints validation.FileConstraints) (*taskboard.Attachment, func()) {
	noop := func() {}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop
	}
	if err != nil {
		slog.Warn("failed to read attachment", "field", field, "error", err)
		return nil, noop
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, noop
	}

	contentType, err := validation.ValidateFile(header, constraints)
	if err != nil {
		slog.Warn("attachment rejected", "field", field, "name", header.Filename, "error", err)
		_ = file.Close()
		return nil, noop
	}

	return &taskboard.Attachment{
		Name:        safeName(header),
		ContentType: contentType,
		Body:        file,
	}, func() { _ = file.Close() }
}

// safeName keeps the original file name but never a path.
func safeName(header *multipart.FileHeader) string {
	name := header.Filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		name = "file"
	}
	return name
}

func isValidationError(err error) bool {
	return errors.Is(err, validation.ErrTitleRequired) ||
		errors.Is(err, validation.ErrDescriptionRequired)
}

func (h *TaskHandler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	// "" is a valid description
	err := view.Board.UpdateDescription(context.WithoutCancel(r.Context()), id, r.FormValue("description"))
	if err != nil {
		slog.Warn("task update failed", "id", id, "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Delete only reaches the backend when the form carries confirm=yes, which
// taskboard.js sets after the user accepts the prompt.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	confirmed := taskboard.Answer(r.FormValue("confirm") == "yes")
	err := view.Board.Delete(context.WithoutCancel(r.Context()), id, confirmed)
	if err != nil {
		slog.Warn("task delete failed", "id", id, "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
