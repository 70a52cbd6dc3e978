package websocket

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/machzor/internal/app/models"
)

// MessageTypeHistoryEvent marks feed messages carrying a history event.
const MessageTypeHistoryEvent = "history_event"

// Hub fans committed history events out to connected feed clients. The feed
// is one-way: clients only listen. The clients map is owned exclusively by
// the Run goroutine, so it needs no locking.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	logger     zerolog.Logger
}

// Message is one feed payload sent over WebSocket.
type Message struct {
	Type string `json:"type"`

	// The committed history event
	Event *models.HistoryEvent `json:"event"`

	// Timestamp when the message entered the feed
	Timestamp time.Time `json:"timestamp"`
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run serves registrations, departures and broadcasts until the process
// exits. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info().
				Int64("userID", client.userID).
				Str("addr", client.conn.RemoteAddr().String()).
				Msg("Feed client registered")

		case client := <-h.unregister:
			h.evict(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// NotifyEvents queues committed history events for broadcast. It is called
// by the student and import services after their transactions commit, so it
// must never block: when the feed buffer is full the event is dropped and
// the clients miss it.
func (h *Hub) NotifyEvents(events ...*models.HistoryEvent) {
	for _, event := range events {
		message := &Message{
			Type:      MessageTypeHistoryEvent,
			Event:     event,
			Timestamp: time.Now(),
		}
		select {
		case h.broadcast <- message:
		default:
			h.logger.Warn().
				Int64("studentID", event.StudentID).
				Str("changeType", string(event.ChangeType)).
				Msg("Feed buffer full, dropping event")
		}
	}
}

// evict removes a client and closes its send channel, which stops its
// writePump. Safe to call twice for the same client.
func (h *Hub) evict(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Info().
		Int64("userID", client.userID).
		Msg("Feed client unregistered")
}

// broadcastMessage marshals the message once and hands it to every client.
// A client whose buffer is full is evicted on the spot rather than allowed
// to stall the feed.
func (h *Hub) broadcastMessage(message *Message) {
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal feed message")
		return
	}

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.evict(client)
		}
	}
}
