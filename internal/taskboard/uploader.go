package taskboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/metrics"
)

const (
	DefaultBucket = "notes-images"
	ImagesFolder  = "images"
	VideosFolder  = "videos"
)

// Attachment is a file picked in the create form.
type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Uploader writes attachments to storage and resolves their public URL.
// It runs off the board loop.
type Uploader struct {
	storage  backend.Storage
	bucket   string
	recorder metrics.Recorder
	now      func() time.Time
}

// ObjectPath is <folder>/<unix millis>-<original name>.
func ObjectPath(folder, name string, at time.Time) string {
	return fmt.Sprintf("%s/%d-%s", folder, at.UnixMilli(), name)
}

// Upload returns the public URL, or nil on any failure including a panic in storage.
func (u *Uploader) Upload(ctx context.Context, file *Attachment, folder string) (url *string) {
	if file == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("upload error", "folder", folder, "name", file.Name, "panic", r)
			u.recorder.RecordUploadFailure(folder)
			url = nil
		}
	}()

	path := ObjectPath(folder, file.Name, u.now())
	err := u.storage.Upload(ctx, u.bucket, path, file.Body, backend.UploadOptions{
		Upsert:      true,
		ContentType: file.ContentType,
	})
	if err != nil {
		slog.Error("upload error", "folder", folder, "path", path, "error", err)
		u.recorder.RecordUploadFailure(folder)
		return nil
	}

	publicURL := u.storage.GetPublicURL(u.bucket, path)
	return &publicURL
}
