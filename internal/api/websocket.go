package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ashureev/yieldchat/internal/conversation"
	"github.com/ashureev/yieldchat/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// wsMessage is a client frame. An empty Type means "message".
type wsMessage struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// ChatSocket handles GET /ws/chat. Every text frame is one turn and is
// answered with a frame shaped like the POST /api/chat response.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()
	ws.SetReadLimit(h.maxBodyBytes)

	h.sockets.Register(userID, sessionID, ws)
	defer h.sockets.Unregister(userID, sessionID, ws)

	h.readLoop(r.Context(), ws, userID, sessionID)
	slog.Info("Chat socket closed", "user_id", userID, "session_id", sessionID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, userID, sessionID string) {
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var out any
		switch {
		case msg.Type == "ping":
			out = map[string]string{"type": "pong"}
		case !h.limiter.Allow(userID):
			out = map[string]string{"error": "rate limit exceeded"}
		case h.validate.Var(msg.Message, "required,max=1000") != nil:
			out = map[string]string{"error": "Please provide a message of at most 1000 characters."}
		default:
			out = h.controller.Handle(ctx, conversation.Turn{
				UserID:    userID,
				SessionID: sessionID,
				Channel:   "websocket",
				Message:   msg.Message,
				RequestID: uuid.NewString(),
			})
		}

		if err := wsjson.Write(ctx, ws, out); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
