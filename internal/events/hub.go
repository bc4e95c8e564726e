package events

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Message is one event delivered over the feed: a short event name plus the
// fresh state the client should render.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks which users have open feed connections and fans events out to
// them. The feed is push-only; services publish after each successful write so
// connected clients always observe the latest state.
type Hub struct {
	userConns  map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	h := &Hub{
		userConns:  make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.userConns[client.UserID] == nil {
				h.userConns[client.UserID] = make(map[*Client]bool)
			}
			h.userConns[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.userConns[client.UserID]; ok && conns[client] {
				delete(conns, client)
				if len(conns) == 0 {
					delete(h.userConns, client.UserID)
				}
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) PublishToUser(userID uuid.UUID, msg *Message) {
	h.PublishToUsers([]uuid.UUID{userID}, msg)
}

func (h *Hub) PublishToUsers(userIDs []uuid.UUID, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range userIDs {
		for client := range h.userConns[userID] {
			select {
			case client.send <- data:
			default:
				// Slow consumer; drop the event rather than block publishers.
			}
		}
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}
