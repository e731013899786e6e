package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/taskboard/internal/ctxkeys"
	"github.com/templui/taskboard/internal/model"
	"github.com/templui/taskboard/internal/taskboard"
	"github.com/templui/taskboard/internal/ui"
	"github.com/templui/taskboard/internal/ui/pages"
)

// EmailConfirmer completes sign-up from the emailed link.
type EmailConfirmer interface {
	ConfirmEmail(ctx context.Context, token string) (model.Identity, error)
}

type AuthHandler struct {
	cookies   SessionCookies
	confirmer EmailConfirmer
}

func NewAuthHandler(cookies SessionCookies, confirmer EmailConfirmer) *AuthHandler {
	return &AuthHandler{
		cookies:   cookies,
		confirmer: confirmer,
	}
}

// SignIn and SignUp leave their outcome in the view's status message, so both
// redirect back to the page whatever happened.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())
	email := strings.TrimSpace(r.FormValue("email"))

	err := view.Board.SignIn(context.WithoutCancel(r.Context()), email, r.FormValue("password"))
	if err != nil {
		slog.Warn("sign in failed", "error", err, "email", email)
	} else {
		slog.Info("user signed in", "email", email)
	}

	syncSessionCookie(w, h.cookies, view)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())
	email := strings.TrimSpace(r.FormValue("email"))

	err := view.Board.SignUp(context.WithoutCancel(r.Context()), email, r.FormValue("password"))
	if err != nil {
		slog.Warn("sign up failed", "error", err, "email", email)
	} else {
		slog.Info("user signed up", "email", email)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())

	err := view.Board.SetMode(r.Context(), taskboard.ParseMode(r.FormValue("mode")))
	if err != nil {
		slog.Warn("failed to switch auth mode", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())

	err := view.Board.SignOut(context.WithoutCancel(r.Context()))
	if err != nil {
		slog.Warn("sign out failed", "error", err)
	}

	syncSessionCookie(w, h.cookies, view)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Confirm handles GET /auth/confirm/{token}.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	identity, err := h.confirmer.ConfirmEmail(r.Context(), token)
	if err != nil {
		slog.Warn("email confirmation failed", "error", err)
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.EmailConfirmed("", "Invalid or expired link. Please sign up again."))
		return
	}

	slog.Info("email confirmed", "user_id", identity.ID, "email", identity.Email)
	ui.Render(w, r, pages.EmailConfirmed(identity.Email, ""))
}
