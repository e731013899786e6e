// Package backend is the contract every view talks to: auth, the tasks table,
// file storage and the realtime change feed. Platform is the self-hosted
// implementation; tests substitute fakes behind the same interfaces.
package backend

import (
	"context"
	"io"

	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/realtime"
)

// Subscription releases a listener or change-feed subscription.
type Subscription interface {
	Unsubscribe() error
}

type AuthEvent string

const (
	SignedIn       AuthEvent = "SIGNED_IN"
	SignedOut      AuthEvent = "SIGNED_OUT"
	TokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthListener receives every session change. session is nil after SignedOut.
type AuthListener func(event AuthEvent, session *Session)

type Auth interface {
	// GetSession returns the persisted session, or nil when there is none.
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn AuthListener) Subscription
	SignUp(ctx context.Context, email, password string) error
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
}

type UploadOptions struct {
	Upsert      bool
	ContentType string
}

type Storage interface {
	Upload(ctx context.Context, bucket, path string, body io.Reader, opts UploadOptions) error
	// GetPublicURL builds the object's URL without checking that it exists.
	GetPublicURL(bucket, path string) string
}

// Tasks is the tasks table. Update and Delete of a missing id are not errors.
type Tasks interface {
	// Select returns every row ordered by id descending.
	Select(ctx context.Context) ([]model.Task, error)
	Insert(ctx context.Context, task model.NewTask) (*model.Task, error)
	Update(ctx context.Context, id int64, patch model.TaskPatch) error
	Delete(ctx context.Context, id int64) error
}

type Realtime interface {
	Subscribe(ctx context.Context, filter realtime.Filter, fn func(realtime.Event)) (Subscription, error)
}

// Client is one view's handle on the backend.
type Client interface {
	Auth() Auth
	Storage() Storage
	Tasks() Tasks
	Realtime() Realtime
}

// TasksFilter is the change-feed filter for every change on public.tasks.
var TasksFilter = realtime.Filter{Event: realtime.EventAll, Schema: "public", Table: "tasks"}
