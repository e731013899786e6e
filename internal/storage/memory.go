package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// FilesPrefix is where the server exposes in-memory objects, followed by the
// bucket name.
const FilesPrefix = "/files/"

// MemoryStorage keeps objects in process. It backs tests and development
// runs without S3 credentials, serving objects itself under FilesPrefix.
type MemoryStorage struct {
	mu        sync.RWMutex
	bucket    string
	publicURL string
	objects   map[string]MemoryObject
}

type MemoryObject struct {
	Data        []byte
	ContentType string
}

func NewMemoryStorage(bucket, publicURL string) *MemoryStorage {
	return &MemoryStorage{
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		objects:   make(map[string]MemoryObject),
	}
}

func (m *MemoryStorage) Bucket() string {
	return m.bucket
}

func (m *MemoryStorage) Upload(ctx context.Context, path string, body io.Reader, opts UploadOptions) error {
	var buf bytes.Buffer
	_, err := io.Copy(&buf, body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[path]; ok && !opts.Upsert {
		return ErrObjectExists
	}
	m.objects[path] = MemoryObject{Data: buf.Bytes(), ContentType: opts.ContentType}
	return nil
}

func (m *MemoryStorage) PublicURL(path string) string {
	return m.publicURL + "/" + path
}

// Object returns a stored object and whether it exists.
func (m *MemoryStorage) Object(path string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	return obj, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ServeHTTP serves GET FilesPrefix + bucket + "/" + path.
func (m *MemoryStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, ok := strings.CutPrefix(r.URL.Path, FilesPrefix+m.bucket+"/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	obj, ok := m.Object(path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	http.ServeContent(w, r, path, time.Time{}, bytes.NewReader(obj.Data))
}
