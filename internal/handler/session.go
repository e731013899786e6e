package handler

import (
	"net/http"
	"time"

	"github.com/templui/taskboard/internal/taskboard"
)

// SessionCookies writes the auth_token cookie.
type SessionCookies interface {
	SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time)
	ClearJWTCookie(w http.ResponseWriter)
}

// syncSessionCookie mirrors the view's persisted session into the browser, so
// a new view after a restart or expiry starts from the same session.
func syncSessionCookie(w http.ResponseWriter, cookies SessionCookies, view *taskboard.View) {
	session := view.Sessions.Load()
	if session == nil {
		cookies.ClearJWTCookie(w)
		return
	}
	cookies.SetJWTCookie(w, session.AccessToken, session.ExpiresAt)
}
