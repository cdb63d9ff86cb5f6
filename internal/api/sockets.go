package api

import (
	"log/slog"
	"sync"

	"github.com/ashureev/yieldchat/internal/conversation"
	"github.com/coder/websocket"
)

// SocketRegistry holds the open chat socket of every conversation. Opening
// a second socket for the same conversation closes the first one.
type SocketRegistry struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewSocketRegistry returns an empty registry.
func NewSocketRegistry() *SocketRegistry {
	return &SocketRegistry{conns: make(map[string]*websocket.Conn)}
}

// Register records conn as the socket of the user's conversation.
func (r *SocketRegistry) Register(userID, sessionID string, conn *websocket.Conn) {
	key := conversation.SessionKey(userID, sessionID)

	r.mu.Lock()
	prev := r.conns[key]
	r.conns[key] = conn
	r.mu.Unlock()

	if prev != nil && prev != conn {
		_ = prev.Close(websocket.StatusPolicyViolation, "opened in another socket")
	}
	slog.Info("Chat socket registered", "user_id", userID, "session_id", sessionID)
}

// Unregister forgets conn. A socket that was already replaced leaves the
// newer one in place.
func (r *SocketRegistry) Unregister(userID, sessionID string, conn *websocket.Conn) {
	key := conversation.SessionKey(userID, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[key] == conn {
		delete(r.conns, key)
	}
}

// Count reports how many sockets are open.
func (r *SocketRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every socket with StatusGoingAway and empties the registry.
func (r *SocketRegistry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*websocket.Conn)
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}
