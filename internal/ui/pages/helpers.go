package pages

import (
	"fmt"

	"github.com/a-h/templ"
	"github.com/templui/taskboard/internal/taskboard"
)

func authTitle(mode taskboard.Mode) string {
	if mode == taskboard.ModeSignUp {
		return "Sign Up"
	}
	return "Sign In"
}

func passwordAutocomplete(mode taskboard.Mode) string {
	if mode == taskboard.ModeSignUp {
		return "new-password"
	}
	return "current-password"
}

func submitLabel(snap taskboard.Snapshot) string {
	if snap.Busy {
		return "Please wait..."
	}
	return authTitle(snap.Mode)
}

func signedInEmail(snap taskboard.Snapshot) string {
	if snap.Identity == nil {
		return ""
	}
	return snap.Identity.Email
}

func taskAnchor(id int64) string {
	return fmt.Sprintf("task-%d", id)
}

func taskAction(id int64, action string) templ.SafeURL {
	return templ.URL(fmt.Sprintf("/app/tasks/%d/%s", id, action))
}
