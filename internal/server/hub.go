package server

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks live websocket sessions.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*liveSession)}
}

func newSessionID() string {
	return uuid.NewString()
}

func (h *Hub) add(ls *liveSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[ls.id] = ls
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CloseAll disconnects every session.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	live := make([]*liveSession, 0, len(h.sessions))
	for _, ls := range h.sessions {
		live = append(live, ls)
	}
	h.mu.Unlock()
	for _, ls := range live {
		ls.close()
	}
}
