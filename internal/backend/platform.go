package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/taskboard/internal/metrics"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/realtime"
	"github.com/templui/taskboard/internal/repository"
	"github.com/templui/taskboard/internal/service"
	"github.com/templui/taskboard/internal/storage"
)

// ChangeFeed carries table change events between clients.
type ChangeFeed interface {
	Publish(ev realtime.Event) error
	Subscribe(filter realtime.Filter, fn func(realtime.Event)) (*realtime.Subscription, error)
}

type PlatformOptions struct {
	Auth     *service.AuthService
	Tasks    repository.TaskRepository
	Storage  storage.Storage
	Feed     ChangeFeed
	Recorder metrics.Recorder
	// Sessions expiring within RefreshMargin are refreshed when read.
	RefreshMargin time.Duration
}

// Platform is the server side of the backend contract.
type Platform struct {
	auth          *service.AuthService
	tasks         repository.TaskRepository
	storage       storage.Storage
	feed          ChangeFeed
	recorder      metrics.Recorder
	refreshMargin time.Duration
	now           func() time.Time
}

func NewPlatform(opts PlatformOptions) *Platform {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &Platform{
		auth:          opts.Auth,
		tasks:         opts.Tasks,
		storage:       opts.Storage,
		feed:          opts.Feed,
		recorder:      recorder,
		refreshMargin: opts.RefreshMargin,
		now:           time.Now,
	}
}

// NewClient returns a client whose session lives in store.
func (p *Platform) NewClient(store SessionStorage) Client {
	c := &client{
		platform:  p,
		store:     store,
		listeners: make(map[int]AuthListener),
	}
	return c
}

// SessionFromToken rebuilds a session from a stored access token, such as the
// browser cookie. Invalid or expired tokens yield ErrNotAuthenticated.
func (p *Platform) SessionFromToken(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	claims, err := p.auth.VerifyJWT(token)
	if err != nil {
		return nil, notAuthenticated(err)
	}

	session := &Session{
		AccessToken: token,
		User:        model.Identity{ID: claims.UserID, Email: claims.Email},
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// ConfirmEmail completes sign-up from the emailed link.
func (p *Platform) ConfirmEmail(ctx context.Context, token string) (model.Identity, error) {
	user, err := p.auth.ConfirmEmail(token)
	p.recorder.RecordBackendRequest("auth.confirm", metrics.Outcome(err))
	if err != nil {
		return model.Identity{}, err
	}
	return user.Identity(), nil
}

func (p *Platform) issue(user *model.User) (*Session, error) {
	token, expiresAt, err := p.auth.GenerateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &Session{AccessToken: token, ExpiresAt: expiresAt, User: user.Identity()}, nil
}

func (p *Platform) refresh(session *Session) (*Session, error) {
	user, token, expiresAt, err := p.auth.Refresh(session.AccessToken)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, ExpiresAt: expiresAt, User: user.Identity()}, nil
}

// publish sends a change event. The write already succeeded, so a failed
// publish is logged and not returned.
func (p *Platform) publish(eventType realtime.EventType, newRow, oldRow map[string]any) {
	if p.feed == nil {
		return
	}

	err := p.feed.Publish(realtime.Event{
		Type:            eventType,
		Schema:          TasksFilter.Schema,
		Table:           TasksFilter.Table,
		New:             newRow,
		Old:             oldRow,
		CommitTimestamp: p.now().UTC(),
	})
	if err != nil {
		slog.Error("failed to publish change event", "type", eventType, "error", err)
	}
}

func taskRow(t *model.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"image_url":   t.ImageURL,
		"video_url":   t.VideoURL,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrTaskNotFound)
}
