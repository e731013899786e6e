package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cfg "github.com/templui/taskboard/internal/config"
)

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
	}{
		{
			name: "explicit public url",
			cfg:  S3Config{Bucket: "notes-images", Endpoint: "http://minio:9000", PublicURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com",
		},
		{
			name: "custom endpoint",
			cfg:  S3Config{Bucket: "notes-images", Endpoint: "http://localhost:9000/"},
			want: "http://localhost:9000/notes-images",
		},
		{
			name: "aws",
			cfg:  S3Config{Bucket: "notes-images", Region: "eu-central-1"},
			want: "https://notes-images.s3.eu-central-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}

func TestMemoryStorageUpsert(t *testing.T) {
	store := NewMemoryStorage("notes-images", "http://files.test/notes-images/")
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "images/1-a.png", strings.NewReader("one"), UploadOptions{ContentType: "image/png"}))

	err := store.Upload(ctx, "images/1-a.png", strings.NewReader("two"), UploadOptions{})
	assert.ErrorIs(t, err, ErrObjectExists)

	require.NoError(t, store.Upload(ctx, "images/1-a.png", strings.NewReader("three"), UploadOptions{Upsert: true}))

	obj, ok := store.Object("images/1-a.png")
	require.True(t, ok)
	assert.Equal(t, "three", string(obj.Data))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "http://files.test/notes-images/images/1-a.png", store.PublicURL("images/1-a.png"))
	assert.Equal(t, "notes-images", store.Bucket())
}

func TestNewWithoutCredentialsInDevelopment(t *testing.T) {
	store, err := New(&cfg.Config{
		AppEnv:   "development",
		AppURL:   "http://localhost:8090/",
		S3Bucket: "notes-images",
	})
	require.NoError(t, err)

	mem, ok := store.(*MemoryStorage)
	require.True(t, ok, "got %T", store)
	assert.Equal(t, "notes-images", mem.Bucket())
	assert.Equal(t, "http://localhost:8090/files/notes-images/images/1-a.png", mem.PublicURL("images/1-a.png"))
}

func TestMemoryStorageServesObjects(t *testing.T) {
	store := NewMemoryStorage("notes-images", "http://localhost:8090/files/notes-images")
	require.NoError(t, store.Upload(context.Background(), "videos/1-IMG_0001.MOV", strings.NewReader("moov"), UploadOptions{ContentType: "video/quicktime"}))

	w := httptest.NewRecorder()
	store.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/notes-images/videos/1-IMG_0001.MOV", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/quicktime", w.Header().Get("Content-Type"))
	assert.Equal(t, "moov", w.Body.String())

	w = httptest.NewRecorder()
	store.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/notes-images/videos/missing.mov", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	store.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/other-bucket/videos/1-IMG_0001.MOV", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
