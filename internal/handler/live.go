package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/templui/taskboard/internal/ctxkeys"
	"github.com/templui/taskboard/internal/taskboard"
	"github.com/templui/taskboard/internal/ui/pages"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ViewAttacher keeps a view alive while a live connection is open.
type ViewAttacher interface {
	Attach(id string) bool
	Detach(id string)
}

type liveMessage struct {
	Type string `json:"type"`
	HTML string `json:"html,omitempty"`
}

type LiveHandler struct {
	views    ViewAttacher
	upgrader websocket.Upgrader
}

func NewLiveHandler(views ViewAttacher) *LiveHandler {
	return &LiveHandler{
		views: views,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Live pushes the task list whenever the view's snapshot changes. A flip
// between signed in and signed out, or a closed view, tells the page to reload.
func (h *LiveHandler) Live(w http.ResponseWriter, r *http.Request) {
	view := ctxkeys.View(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	if !h.views.Attach(view.ID) {
		_ = h.write(conn, liveMessage{Type: "reload"})
		return
	}
	defer h.views.Detach(view.ID)

	changes, stop := view.Board.Watch()
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	snap := view.Board.Snapshot()
	signedIn := snap.SignedIn()
	if !signedIn {
		_ = h.write(conn, liveMessage{Type: "reload"})
		return
	}

	// the list may have changed between page render and connect
	err = h.pushTasks(conn, r, snap)
	if err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case _, ok := <-changes:
			if !ok {
				_ = h.write(conn, liveMessage{Type: "reload"})
				return
			}
			snap = view.Board.Snapshot()
			if snap.SignedIn() != signedIn {
				_ = h.write(conn, liveMessage{Type: "reload"})
				return
			}
			err = h.pushTasks(conn, r, snap)
			if err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}

func (h *LiveHandler) pushTasks(conn *websocket.Conn, r *http.Request, snap taskboard.Snapshot) error {
	var buf bytes.Buffer
	err := pages.TaskList(snap).Render(r.Context(), &buf)
	if err != nil {
		slog.Error("render task list failed", "error", err)
		return err
	}
	return h.write(conn, liveMessage{Type: "tasks", HTML: buf.String()})
}

func (h *LiveHandler) write(conn *websocket.Conn, msg liveMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteJSON(msg)
	if err != nil {
		slog.Debug("live write failed", "error", err)
	}
	return err
}
