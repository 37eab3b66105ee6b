package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	sessionWriteWait  = 10 * time.Second
	sessionMaxMessage = 64 << 10
)

// SessionMessage is one server-to-client message on a timeline session.
type SessionMessage struct {
	Type     string                 `json:"type"`
	ID       string                 `json:"id,omitempty"`
	Frame    timeline.PreviewSource `json:"frame,omitempty"`
	Snapshot *timeline.Snapshot     `json:"snapshot,omitempty"`
	Error    *ErrorResponse         `json:"error,omitempty"`
}

// SessionRequest is a command sent by the client. ID is echoed back on the
// matching result so the client can pair them.
type SessionRequest struct {
	ID string `json:"id,omitempty"`
	timeline.Command
}

const (
	sessionFrame  = "frame"
	sessionResult = "result"
	sessionError  = "error"
)

func newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// Browsers always send Origin; tools that omit it are local already.
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin)
		},
	}
}

// sessionHandler carries the frame stream and command dispatch over one
// websocket. Frames use the same latest-wins buffer as the SSE stream.
func sessionHandler(cfg ServerConfig) http.HandlerFunc {
	upgrader := newUpgrader()
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			cfg.Logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(sessionMaxMessage)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		frames := newLatestFrame()
		unsubscribe := cfg.Timeline.Subscribe(frames)
		defer unsubscribe()

		replies := make(chan SessionMessage, 8)
		go func() {
			defer cancel()
			for {
				var req SessionRequest
				if err := conn.ReadJSON(&req); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						cfg.Logger.Debug("session read failed", "error", err)
					}
					return
				}
				msg := dispatchSession(ctx, cfg.Timeline, req)
				select {
				case replies <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()

		ticker := time.NewTicker(ping)
		defer ticker.Stop()

		write := func(msg SessionMessage) bool {
			conn.SetWriteDeadline(time.Now().Add(sessionWriteWait))
			return conn.WriteJSON(msg) == nil
		}
		for {
			select {
			case <-ctx.Done():
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(sessionWriteWait))
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(sessionWriteWait)); err != nil {
					return
				}
			case src := <-frames.ch:
				if !write(SessionMessage{Type: sessionFrame, Frame: src}) {
					return
				}
			case msg := <-replies:
				if !write(msg) {
					return
				}
			}
		}
	}
}

func dispatchSession(ctx context.Context, tl Timeline, req SessionRequest) SessionMessage {
	snap, err := tl.Dispatch(ctx, req.Command)
	if err != nil {
		_, code := commandErrorStatus(err)
		return SessionMessage{Type: sessionError, ID: req.ID, Error: &ErrorResponse{Error: err.Error(), Code: code}}
	}
	return SessionMessage{Type: sessionResult, ID: req.ID, Snapshot: &snap}
}
