// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/realtime"
)

// FakeBackend is an in-memory backend shared by any number of clients, so a
// write through one client reaches the realtime subscriptions of the others.
type FakeBackend struct {
	mu        sync.Mutex
	users     map[string]string // email -> password
	tasks     []model.Task
	nextID    int64
	objects   map[string][]byte
	subs      map[int]fakeSubscriber
	nextSubID int
	calls     map[string]int
	inserts   []model.NewTask

	// Error injection for testing
	GetSessionErr error
	SignUpErr     error
	SignInErr     error
	SignOutErr    error
	SelectErr     error
	InsertErr     error
	UpdateErr     error
	DeleteErr     error
	SubscribeErr  error
	UploadErr     map[string]error // folder -> error

	// UploadHook runs before every upload; it may panic.
	UploadHook func(path string)
	// SelectHook runs before a select returns its rows.
	SelectHook func()
	// AuthHook runs at the start of sign-up ("sign_up") and sign-in ("sign_in").
	AuthHook func(op string)
}

type fakeSubscriber struct {
	filter realtime.Filter
	fn     func(realtime.Event)
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		users:     make(map[string]string),
		objects:   make(map[string][]byte),
		subs:      make(map[int]fakeSubscriber),
		calls:     make(map[string]int),
		UploadErr: make(map[string]error),
		nextID:    1,
	}
}

// AddUser registers a confirmed account.
func (f *FakeBackend) AddUser(email, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = password
}

// AddTask inserts a row directly, bypassing clients and realtime.
func (f *FakeBackend) AddTask(title, description string) model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	task := model.Task{ID: f.nextID, Title: title, Description: description}
	f.nextID++
	f.tasks = append(f.tasks, task)
	return task
}

// Rows returns the table ordered by id descending.
func (f *FakeBackend) Rows() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rowsLocked()
}

func (f *FakeBackend) rowsLocked() []model.Task {
	rows := append([]model.Task(nil), f.tasks...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return rows
}

// Inserts returns every insert payload received, in order.
func (f *FakeBackend) Inserts() []model.NewTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NewTask(nil), f.inserts...)
}

// CallCount reports how often op ran, e.g. "select", "insert", "upload".
func (f *FakeBackend) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls counts every data call (table, storage, realtime).
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, op := range []string{"select", "insert", "update", "delete", "upload", "subscribe"} {
		total += f.calls[op]
	}
	return total
}

func (f *FakeBackend) ActiveSubscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *FakeBackend) Object(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[path]
	return data, ok
}

// Emit delivers ev to every matching subscription.
func (f *FakeBackend) Emit(ev realtime.Event) {
	f.mu.Lock()
	var targets []func(realtime.Event)
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		s := f.subs[id]
		if matches(s.filter, ev) {
			targets = append(targets, s.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range targets {
		fn(ev)
	}
}

func matches(filter realtime.Filter, ev realtime.Event) bool {
	if filter.Schema != ev.Schema || filter.Table != ev.Table {
		return false
	}
	return filter.Event == realtime.EventAll || filter.Event == ev.Type
}

func (f *FakeBackend) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

// NewClient returns a client with its own session.
func (f *FakeBackend) NewClient() *FakeClient {
	return &FakeClient{
		backend:   f,
		listeners: make(map[int]backend.AuthListener),
	}
}

// FakeClient implements backend.Client.
type FakeClient struct {
	backend *FakeBackend

	mu        sync.Mutex
	session   *backend.Session
	listeners map[int]backend.AuthListener
	nextID    int
}

func (c *FakeClient) Auth() backend.Auth         { return (*fakeAuth)(c) }
func (c *FakeClient) Storage() backend.Storage   { return (*fakeStorage)(c) }
func (c *FakeClient) Tasks() backend.Tasks       { return (*fakeTasks)(c) }
func (c *FakeClient) Realtime() backend.Realtime { return (*fakeRealtime)(c) }

// SetSession installs a session without notifying listeners, like a session
// restored from persistent storage.
func (c *FakeClient) SetSession(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = newSession(email)
}

// Notify broadcasts an auth event to this client's listeners.
func (c *FakeClient) Notify(event backend.AuthEvent, session *backend.Session) {
	c.mu.Lock()
	if event == backend.SignedOut {
		c.session = nil
	} else if session != nil {
		c.session = session
	}
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]backend.AuthListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(event, session)
	}
}

// Load, Save and Clear expose the client's session as backend.SessionStorage.
func (c *FakeClient) Load() *backend.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *FakeClient) Save(session *backend.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := *session
	c.session = &s
}

func (c *FakeClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
}

func (c *FakeClient) ListenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *FakeClient) signedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func newSession(email string) *backend.Session {
	return &backend.Session{
		AccessToken: "token-" + email,
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        model.Identity{ID: "user-" + email, Email: email},
	}
}

type fakeAuth FakeClient

func (a *fakeAuth) GetSession(ctx context.Context) (*backend.Session, error) {
	a.backend.record("get_session")
	if a.backend.GetSessionErr != nil {
		return nil, a.backend.GetSessionErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, nil
	}
	s := *a.session
	return &s, nil
}

func (a *fakeAuth) OnAuthStateChange(fn backend.AuthListener) backend.Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return unsubscribeFunc(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	})
}

func (a *fakeAuth) SignUp(ctx context.Context, email, password string) error {
	a.backend.record("sign_up")
	if a.backend.AuthHook != nil {
		a.backend.AuthHook("sign_up")
	}
	if a.backend.SignUpErr != nil {
		return a.backend.SignUpErr
	}

	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()
	if _, ok := a.backend.users[email]; ok {
		return &backend.AuthError{Message: "User already registered"}
	}
	a.backend.users[email] = password
	return nil
}

func (a *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	a.backend.record("sign_in")
	if a.backend.AuthHook != nil {
		a.backend.AuthHook("sign_in")
	}
	if a.backend.SignInErr != nil {
		return nil, a.backend.SignInErr
	}

	a.backend.mu.Lock()
	stored, ok := a.backend.users[email]
	a.backend.mu.Unlock()
	if !ok || stored != password {
		return nil, &backend.AuthError{Message: "Invalid login credentials"}
	}

	session := newSession(email)
	(*FakeClient)(a).Notify(backend.SignedIn, session)
	return session, nil
}

func (a *fakeAuth) SignOut(ctx context.Context) error {
	a.backend.record("sign_out")
	if a.backend.SignOutErr != nil {
		return a.backend.SignOutErr
	}
	(*FakeClient)(a).Notify(backend.SignedOut, nil)
	return nil
}

type fakeStorage FakeClient

func (s *fakeStorage) Upload(ctx context.Context, bucket, path string, body io.Reader, opts backend.UploadOptions) error {
	s.backend.record("upload")
	if !(*FakeClient)(s).signedIn() {
		return backend.ErrNotAuthenticated
	}
	if s.backend.UploadHook != nil {
		s.backend.UploadHook(path)
	}

	folder, _, _ := strings.Cut(path, "/")
	if err := s.backend.UploadErr[folder]; err != nil {
		return err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if _, exists := s.backend.objects[path]; exists && !opts.Upsert {
		return errors.New("the resource already exists")
	}
	s.backend.objects[path] = data
	return nil
}

func (s *fakeStorage) GetPublicURL(bucket, path string) string {
	return fmt.Sprintf("https://files.test/%s/%s", bucket, path)
}

type fakeTasks FakeClient

func (t *fakeTasks) Select(ctx context.Context) ([]model.Task, error) {
	t.backend.record("select")
	if !(*FakeClient)(t).signedIn() {
		return nil, backend.ErrNotAuthenticated
	}
	if t.backend.SelectErr != nil {
		return nil, t.backend.SelectErr
	}

	rows := t.backend.Rows()
	if t.backend.SelectHook != nil {
		t.backend.SelectHook()
	}
	return rows, nil
}

func (t *fakeTasks) Insert(ctx context.Context, task model.NewTask) (*model.Task, error) {
	t.backend.record("insert")
	if !(*FakeClient)(t).signedIn() {
		return nil, backend.ErrNotAuthenticated
	}

	t.backend.mu.Lock()
	t.backend.inserts = append(t.backend.inserts, task)
	if t.backend.InsertErr != nil {
		t.backend.mu.Unlock()
		return nil, t.backend.InsertErr
	}
	created := model.Task{
		ID:          t.backend.nextID,
		Title:       task.Title,
		Description: task.Description,
		ImageURL:    task.ImageURL,
		VideoURL:    task.VideoURL,
	}
	t.backend.nextID++
	t.backend.tasks = append(t.backend.tasks, created)
	t.backend.mu.Unlock()

	t.backend.Emit(realtime.Event{Type: realtime.EventInsert, Schema: "public", Table: "tasks", New: map[string]any{"id": created.ID}})
	return &created, nil
}

func (t *fakeTasks) Update(ctx context.Context, id int64, patch model.TaskPatch) error {
	t.backend.record("update")
	if !(*FakeClient)(t).signedIn() {
		return backend.ErrNotAuthenticated
	}
	if t.backend.UpdateErr != nil {
		return t.backend.UpdateErr
	}

	t.backend.mu.Lock()
	found := false
	for i := range t.backend.tasks {
		if t.backend.tasks[i].ID == id && patch.Description != nil {
			t.backend.tasks[i].Description = *patch.Description
			found = true
		}
	}
	t.backend.mu.Unlock()

	if found {
		t.backend.Emit(realtime.Event{Type: realtime.EventUpdate, Schema: "public", Table: "tasks", New: map[string]any{"id": id}})
	}
	return nil
}

func (t *fakeTasks) Delete(ctx context.Context, id int64) error {
	t.backend.record("delete")
	if !(*FakeClient)(t).signedIn() {
		return backend.ErrNotAuthenticated
	}
	if t.backend.DeleteErr != nil {
		return t.backend.DeleteErr
	}

	t.backend.mu.Lock()
	found := false
	kept := t.backend.tasks[:0]
	for _, task := range t.backend.tasks {
		if task.ID == id {
			found = true
			continue
		}
		kept = append(kept, task)
	}
	t.backend.tasks = kept
	t.backend.mu.Unlock()

	if found {
		t.backend.Emit(realtime.Event{Type: realtime.EventDelete, Schema: "public", Table: "tasks", Old: map[string]any{"id": id}})
	}
	return nil
}

type fakeRealtime FakeClient

func (r *fakeRealtime) Subscribe(ctx context.Context, filter realtime.Filter, fn func(realtime.Event)) (backend.Subscription, error) {
	r.backend.record("subscribe")
	if !(*FakeClient)(r).signedIn() {
		return nil, backend.ErrNotAuthenticated
	}
	if r.backend.SubscribeErr != nil {
		return nil, r.backend.SubscribeErr
	}

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()
	id := r.backend.nextSubID
	r.backend.nextSubID++
	r.backend.subs[id] = fakeSubscriber{filter: filter, fn: fn}

	return unsubscribeFunc(func() {
		r.backend.mu.Lock()
		defer r.backend.mu.Unlock()
		delete(r.backend.subs, id)
	}), nil
}

type unsubscribeFunc func()

func (u unsubscribeFunc) Unsubscribe() error {
	u()
	return nil
}
