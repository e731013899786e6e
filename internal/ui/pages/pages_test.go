package pages

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/taskboard/internal/ctxkeys"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/taskboard"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	ctx := ctxkeys.WithCSRFToken(context.Background(), "csrf-123")
	ctx = templ.WithNonce(ctx, "nonce-abc")

	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

func strptr(s string) *string { return &s }

func TestAuthModes(t *testing.T) {
	html := render(t, Auth(taskboard.Snapshot{Mode: taskboard.ModeSignIn, Message: "Sign in error: Invalid login credentials"}))
	assert.Contains(t, html, `action="/auth/signin"`)
	assert.Contains(t, html, "Switch to Sign Up")
	assert.Contains(t, html, "Sign in error: Invalid login credentials")
	assert.Contains(t, html, `value="csrf-123"`)
	assert.Contains(t, html, `nonce="nonce-abc"`)

	html = render(t, Auth(taskboard.Snapshot{Mode: taskboard.ModeSignUp, Busy: true}))
	assert.Contains(t, html, `action="/auth/signup"`)
	assert.Contains(t, html, "Switch to Sign In")
	assert.Contains(t, html, "Please wait...")
}

func TestDashboardRendersTasks(t *testing.T) {
	snap := taskboard.Snapshot{
		Identity: &model.Identity{ID: "u1", Email: "ada@example.com"},
		Tasks: []model.Task{
			{ID: 2, Title: "Holiday", Description: "photos", ImageURL: strptr("https://files.test/notes-images/images/1-beach.png"), VideoURL: strptr("https://files.test/notes-images/videos/1-waves.mp4")},
			{ID: 1, Title: "<script>alert(1)</script>", Description: "2%"},
		},
		EditDraft: "draft text",
	}

	html := render(t, Dashboard(snap, ""))
	assert.Contains(t, html, "Signed in as <strong>ada@example.com</strong>")
	assert.Contains(t, html, `<img src="https://files.test/notes-images/images/1-beach.png"`)
	assert.Contains(t, html, `<video src="https://files.test/notes-images/videos/1-waves.mp4" controls`)
	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Equal(t, 2, strings.Count(html, "draft text"))
	assert.Contains(t, html, `data-confirm="Delete this task?"`)

	assert.Less(t, strings.Index(html, `id="task-2"`), strings.Index(html, `id="task-1"`))
}

func TestDashboardShowsFormError(t *testing.T) {
	snap := taskboard.Snapshot{
		Identity: &model.Identity{ID: "u1", Email: "ada@example.com"},
		Form:     taskboard.Form{Title: "Buy milk"},
	}
	html := render(t, Dashboard(snap, "description is required"))
	assert.Contains(t, html, "description is required")
	assert.Contains(t, html, `value="Buy milk"`)
	assert.Contains(t, html, "No tasks yet.")
}

func TestTaskListIsFragment(t *testing.T) {
	html := render(t, TaskList(taskboard.Snapshot{Tasks: []model.Task{{ID: 7, Title: "Walk dog"}}}))
	assert.Contains(t, html, `id="task-7"`)
	assert.NotContains(t, html, "<html")
}

func TestEmailConfirmed(t *testing.T) {
	assert.Contains(t, render(t, EmailConfirmed("ada@example.com", "")), "ada@example.com is confirmed")
	assert.Contains(t, render(t, EmailConfirmed("", "Invalid or expired link")), "Confirmation failed")
	assert.Contains(t, render(t, NotFound()), "Page not found")
}
