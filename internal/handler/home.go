package handler

import (
	"net/http"

	"github.com/templui/taskboard/internal/ctxkeys"
	"github.com/templui/taskboard/internal/ui"
	"github.com/templui/taskboard/internal/ui/pages"
)

type HomeHandler struct {
	cookies SessionCookies
}

func NewHomeHandler(cookies SessionCookies) *HomeHandler {
	return &HomeHandler{cookies: cookies}
}

// Index renders the auth form or the dashboard, whichever the view is in.
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())
	snap := view.Board.Snapshot()
	syncSessionCookie(w, h.cookies, view)

	if snap.SignedIn() {
		ui.Render(w, r, pages.Dashboard(snap, ""))
		return
	}
	ui.Render(w, r, pages.Auth(snap))
}

func (h *HomeHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	ui.RenderStatus(w, r, http.StatusNotFound, pages.NotFound())
}

func (h *HomeHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
