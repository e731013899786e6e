package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/taskboard/internal/backend"
	"github.com/templui/taskboard/internal/middleware"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/realtime"
	"github.com/templui/taskboard/internal/service"
	"github.com/templui/taskboard/internal/taskboard"
	"github.com/templui/taskboard/internal/testutil"
)

const (
	email    = "ada@example.com"
	password = "correct horse battery"
)

var (
	pngHeader       = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")
	quicktimeHeader = []byte("\x00\x00\x00\x14ftypqt  \x00\x00\x02\x00qt  \x00\x00\x00\x08wide")
	heicHeader      = []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00mif1heic")
)

type stubConfirmer struct {
	identity model.Identity
	err      error
}

func (s stubConfirmer) ConfirmEmail(ctx context.Context, token string) (model.Identity, error) {
	return s.identity, s.err
}

type env struct {
	fb       *testutil.FakeBackend
	registry *taskboard.Registry
	handler  http.Handler
	cookies  map[string]*http.Cookie
}

func newEnv(t *testing.T, confirmer EmailConfirmer) *env {
	t.Helper()

	fb := testutil.NewFakeBackend()
	fb.AddUser(email, password)

	registry := taskboard.NewRegistry(taskboard.RegistryOptions{
		Connect: func(token string) (backend.Client, backend.SessionStorage) {
			client := fb.NewClient()
			if user, ok := strings.CutPrefix(token, "token-"); ok {
				client.SetSession(user)
			}
			return client, client
		},
	})
	t.Cleanup(registry.Close)

	if confirmer == nil {
		confirmer = stubConfirmer{err: errors.New("no token")}
	}
	cookies := service.NewAuthService(nil, nil, nil, "test-secret", false, time.Hour, time.Hour)
	home := NewHomeHandler(cookies)
	auth := NewAuthHandler(cookies, confirmer)
	tasks := NewTaskHandler()
	live := NewLiveHandler(registry)
	view := middleware.View(registry)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", view(home.Index))
	mux.HandleFunc("POST /auth/signin", view(auth.SignIn))
	mux.HandleFunc("POST /auth/signup", view(auth.SignUp))
	mux.HandleFunc("POST /auth/mode", view(auth.SetMode))
	mux.HandleFunc("POST /auth/signout", view(auth.SignOut))
	mux.HandleFunc("GET /auth/confirm/{token}", auth.Confirm)
	mux.HandleFunc("POST /app/tasks", view(middleware.RequireSignedIn(tasks.Create)))
	mux.HandleFunc("POST /app/tasks/{id}/description", view(middleware.RequireSignedIn(tasks.UpdateDescription)))
	mux.HandleFunc("POST /app/tasks/{id}/delete", view(middleware.RequireSignedIn(tasks.Delete)))
	mux.HandleFunc("GET /app/live", view(live.Live))
	mux.HandleFunc("/{path...}", home.NotFoundPage)

	return &env{
		fb:       fb,
		registry: registry,
		handler:  mux,
		cookies:  make(map[string]*http.Cookie),
	}
}

// do sends a request carrying the browser's cookies and keeps the ones it sets.
func (e *env) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range e.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Value == "" || c.MaxAge < 0 {
			delete(e.cookies, c.Name)
			continue
		}
		e.cookies[c.Name] = c
	}
	return w
}

func (e *env) post(path string, form url.Values) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (e *env) view(t *testing.T) *taskboard.View {
	t.Helper()
	cookie, ok := e.cookies["view_id"]
	require.True(t, ok, "no view cookie")
	v, ok := e.registry.Get(cookie.Value)
	require.True(t, ok, "view not registered")
	return v
}

func (e *env) signIn(t *testing.T) {
	t.Helper()
	w := e.post("/auth/signin", url.Values{"email": {email}, "password": {password}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.NoError(t, e.view(t).Board.WaitIdle(context.Background()))
}

type upload struct {
	field, name string
	data        []byte
	contentType string
}

func multipartForm(t *testing.T, fields map[string]string, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		if f.contentType == "" {
			f.contentType = "application/octet-stream"
		}
		h.Set("Content-Type", f.contentType)
		fw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestIndexSignedOutShowsAuthForm(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(http.MethodGet, "/", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/auth/signin"`)
	assert.Contains(t, w.Body.String(), "Switch to Sign Up")
	assert.Contains(t, e.cookies, "view_id")
	assert.NotContains(t, e.cookies, service.CookieName)
}

func TestSignInSetsCookieAndShowsDashboard(t *testing.T) {
	e := newEnv(t, nil)
	e.fb.AddTask("Buy milk", "2%")

	e.signIn(t)
	require.Contains(t, e.cookies, service.CookieName)
	assert.Equal(t, "token-"+email, e.cookies[service.CookieName].Value)

	w := e.do(http.MethodGet, "/", nil, "")
	body := w.Body.String()
	assert.Contains(t, body, "Signed in as <strong>ada@example.com</strong>")
	assert.Contains(t, body, "Signed in successfully!")
	assert.Contains(t, body, "Buy milk")
}

func TestSessionCookieRestoresNewView(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	// the server forgot the view, the browser kept its cookies
	e.registry.Close()
	w := e.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, w.Body.String(), "Signed in as")
}

func TestSignInFailureShowsMessage(t *testing.T) {
	e := newEnv(t, nil)

	w := e.post("/auth/signin", url.Values{"email": {email}, "password": {"wrong horse battery"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.NotContains(t, e.cookies, service.CookieName)

	w = e.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, w.Body.String(), "Sign in error: Invalid login credentials")
}

func TestSignUpShowsConfirmationMessage(t *testing.T) {
	e := newEnv(t, nil)

	e.post("/auth/mode", url.Values{"mode": {"signup"}})
	w := e.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, w.Body.String(), `action="/auth/signup"`)

	e.post("/auth/signup", url.Values{"email": {"grace@example.com"}, "password": {password}})
	w = e.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, w.Body.String(), "Sign up success! Check your email to confirm.")
	assert.NotContains(t, e.cookies, service.CookieName)
}

func TestSignOutClearsCookie(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	w := e.post("/auth/signout", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.NotContains(t, e.cookies, service.CookieName)

	w = e.do(http.MethodGet, "/", nil, "")
	assert.Contains(t, w.Body.String(), "Signed out")
}

func TestCreateTaskWithImage(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	body, contentType := multipartForm(t,
		map[string]string{"title": "Holiday", "description": "photos"},
		upload{field: "image", name: "beach.png", data: pngHeader},
	)
	w := e.do(http.MethodPost, "/app/tasks", body, contentType)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	inserts := e.fb.Inserts()
	require.Len(t, inserts, 1)
	require.NotNil(t, inserts[0].ImageURL)
	assert.Contains(t, *inserts[0].ImageURL, "/notes-images/images/")
	assert.True(t, strings.HasSuffix(*inserts[0].ImageURL, "-beach.png"))
	assert.Nil(t, inserts[0].VideoURL)
}

func TestCreateTaskWithPhoneMedia(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	body, contentType := multipartForm(t,
		map[string]string{"title": "Beach day", "description": "from my phone"},
		upload{field: "image", name: "photo.heic", data: heicHeader, contentType: "image/heic"},
		upload{field: "video", name: "IMG_0001.MOV", data: quicktimeHeader, contentType: "video/quicktime"},
	)
	w := e.do(http.MethodPost, "/app/tasks", body, contentType)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	inserts := e.fb.Inserts()
	require.Len(t, inserts, 1)
	require.NotNil(t, inserts[0].ImageURL)
	assert.True(t, strings.HasSuffix(*inserts[0].ImageURL, "-photo.heic"))
	require.NotNil(t, inserts[0].VideoURL)
	assert.Contains(t, *inserts[0].VideoURL, "/notes-images/videos/")
	assert.True(t, strings.HasSuffix(*inserts[0].VideoURL, "-IMG_0001.MOV"))
	assert.Equal(t, 2, e.fb.CallCount("upload"))
}

func TestCreateOmitsRejectedAttachment(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	body, contentType := multipartForm(t,
		map[string]string{"title": "Notes", "description": "not an image"},
		upload{field: "image", name: "notes.png", data: []byte("plain text pretending")},
	)
	e.do(http.MethodPost, "/app/tasks", body, contentType)

	inserts := e.fb.Inserts()
	require.Len(t, inserts, 1)
	assert.Nil(t, inserts[0].ImageURL)
	assert.Zero(t, e.fb.CallCount("upload"))
}

func TestCreateWithoutTitleIsRejected(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	body, contentType := multipartForm(t, map[string]string{"title": "  ", "description": "2%"})
	w := e.do(http.MethodPost, "/app/tasks", body, contentType)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "title is required")
	assert.Empty(t, e.fb.Inserts())
}

func TestTaskRoutesRequireSignIn(t *testing.T) {
	e := newEnv(t, nil)
	e.fb.AddTask("Buy milk", "2%")

	w := e.post("/app/tasks/1/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Len(t, e.fb.Rows(), 1)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	e := newEnv(t, nil)
	e.fb.AddTask("Buy milk", "2%")
	e.signIn(t)

	e.post("/app/tasks/1/delete", nil)
	assert.Len(t, e.fb.Rows(), 1)
	assert.Zero(t, e.fb.CallCount("delete"))

	e.post("/app/tasks/1/delete", url.Values{"confirm": {"yes"}})
	assert.Empty(t, e.fb.Rows())
}

func TestUpdateDescriptionToEmpty(t *testing.T) {
	e := newEnv(t, nil)
	e.fb.AddTask("Buy milk", "2%")
	e.signIn(t)

	w := e.post("/app/tasks/1/description", url.Values{"description": {""}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "", e.fb.Rows()[0].Description)
	assert.Equal(t, 1, e.fb.CallCount("update"))
}

func TestInvalidTaskID(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	w := e.post("/app/tasks/abc/delete", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmEmail(t *testing.T) {
	e := newEnv(t, stubConfirmer{identity: model.Identity{ID: "u1", Email: "grace@example.com"}})
	w := e.do(http.MethodGet, "/auth/confirm/abc", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "grace@example.com is confirmed")

	e = newEnv(t, nil)
	w = e.do(http.MethodGet, "/auth/confirm/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired link")
}

func TestNotFound(t *testing.T) {
	e := newEnv(t, nil)
	w := e.do(http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}

func dialLive(t *testing.T, e *env) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(e.handler)
	t.Cleanup(srv.Close)

	header := http.Header{}
	for _, c := range e.cookies {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/app/live", header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readLive(t *testing.T, conn *websocket.Conn) liveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg liveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestLivePushesTaskChanges(t *testing.T) {
	e := newEnv(t, nil)
	e.fb.AddTask("Buy milk", "2%")
	e.signIn(t)

	conn := dialLive(t, e)
	first := readLive(t, conn)
	assert.Equal(t, "tasks", first.Type)
	assert.Contains(t, first.HTML, "Buy milk")

	e.fb.AddTask("Walk dog", "")
	e.fb.Emit(realtime.Event{Type: realtime.EventInsert, Schema: "public", Table: "tasks"})

	for {
		msg := readLive(t, conn)
		require.Equal(t, "tasks", msg.Type)
		if strings.Contains(msg.HTML, "Walk dog") {
			break
		}
	}
}

func TestLiveReloadsSignedOutPage(t *testing.T) {
	e := newEnv(t, nil)
	e.do(http.MethodGet, "/", nil, "")

	conn := dialLive(t, e)
	assert.Equal(t, "reload", readLive(t, conn).Type)
}

func TestLiveReloadsOnSignOut(t *testing.T) {
	e := newEnv(t, nil)
	e.signIn(t)

	conn := dialLive(t, e)
	assert.Equal(t, "tasks", readLive(t, conn).Type)

	require.NoError(t, e.view(t).Board.SignOut(context.Background()))

	for {
		msg := readLive(t, conn)
		if msg.Type == "reload" {
			break
		}
	}
}
