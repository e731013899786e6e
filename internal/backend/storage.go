package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/templui/taskboard/internal/metrics"
	"github.com/templui/taskboard/internal/storage"
)

type storageClient client

func (s *storageClient) Upload(ctx context.Context, bucket, path string, body io.Reader, opts UploadOptions) error {
	err := s.upload(ctx, bucket, path, body, opts)
	s.platform.recorder.RecordBackendRequest("storage.upload", metrics.Outcome(err))
	return err
}

func (s *storageClient) upload(ctx context.Context, bucket, path string, body io.Reader, opts UploadOptions) error {
	_, err := (*client)(s).requireSession()
	if err != nil {
		return err
	}

	if bucket != s.platform.storage.Bucket() {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}

	return s.platform.storage.Upload(ctx, path, body, storage.UploadOptions{
		Upsert:      opts.Upsert,
		ContentType: opts.ContentType,
	})
}

// GetPublicURL is a pure string operation; the storage serves a single bucket
// so bucket only has to match for Upload.
func (s *storageClient) GetPublicURL(bucket, path string) string {
	return s.platform.storage.PublicURL(path)
}
