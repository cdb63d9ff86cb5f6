package api

import (
	"net/http"

	"github.com/ashureev/yieldchat/internal/conversation"
	"github.com/ashureev/yieldchat/internal/identity"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// ChatRequest is one conversation turn.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=1000"`
}

// Chat handles POST /api/chat: one message in, one reply out.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if !h.limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req ChatRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		Error(w, http.StatusBadRequest, "Please provide a message of at most 1000 characters.")
		return
	}

	reply := h.controller.Handle(r.Context(), conversation.Turn{
		UserID:    userID,
		SessionID: sessionID,
		Channel:   "http",
		Message:   req.Message,
		RequestID: chiMiddleware.GetReqID(r.Context()),
	})

	status := http.StatusOK
	if reply.Error == conversation.ErrCodeInternal {
		status = http.StatusInternalServerError
	}
	JSON(w, status, reply)
}
