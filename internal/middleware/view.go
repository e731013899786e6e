package middleware

import (
	"log/slog"
	"net/http"

	"github.com/templui/taskboard/internal/ctxkeys"
	"github.com/templui/taskboard/internal/service"
	"github.com/templui/taskboard/internal/taskboard"
)

const viewCookieName = "view_id"

// View attaches the browser's task board view to the request, mounting a new
// one seeded from the auth_token cookie when the browser has none yet.
func View(registry *taskboard.Registry) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var view *taskboard.View
			if cookie, err := r.Cookie(viewCookieName); err == nil {
				view, _ = registry.Get(cookie.Value)
			}

			if view == nil {
				var token string
				if cookie, err := r.Cookie(service.CookieName); err == nil {
					token = cookie.Value
				}
				view = registry.Open(token)

				// first render should already show the restored session
				err := view.Board.WaitIdle(r.Context())
				if err != nil {
					slog.Warn("view not ready", "view_id", view.ID, "error", err)
				}

				cfg := ctxkeys.Config(r.Context())
				http.SetCookie(w, &http.Cookie{
					Name:     viewCookieName,
					Value:    view.ID,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg != nil && cfg.IsProduction(),
					SameSite: http.SameSiteLaxMode,
				})
			}

			next(w, r.WithContext(ctxkeys.WithView(r.Context(), view)))
		}
	}
}

// RequireSignedIn sends signed-out views back to the auth page.
func RequireSignedIn(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := ctxkeys.View(r.Context())
		if view == nil || !view.Board.Snapshot().SignedIn() {
			if r.Header.Get(csrfHeader) != "" {
				// fetch from taskboard.js; it reloads on 401
				http.Error(w, "auth session missing", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}
