// Package wsadmin pushes live state to the admin console over WebSocket:
// cycle-completion summaries and LineState transitions, keyed by line_id
// rather than the reference engine's pair_id (spec §6.3 "AMBIENT: live
// push").
package wsadmin

import (
	"bytes"
	"encoding/json"
	"log"
	"sync"

	"github.com/svyatogor45/linekeeper/internal/models"
)

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub manages every connected admin WebSocket client and fans broadcast
// messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub builds an idle Hub; call Run in its own goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives registration, unregistration and broadcast fan-out until the
// process exits. Meant to be started with `go hub.Run()`.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				log.Printf("wsadmin: dropped %d slow clients, %d remaining", len(toRemove), len(h.clients))
			}
		}
	}
}

// Broadcast marshals message to JSON and queues it for every connected
// client, buffering through jsonBufferPool the way the reference hub does.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		log.Printf("wsadmin: failed to encode broadcast message: %v", err)
		jsonBufferPool.Put(buf)
		return
	}

	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.broadcast <- msgCopy
}

// BroadcastNotification implements service.WebSocketBroadcaster, letting
// NotificationService push new notifications to the admin console the
// moment they're created.
func (h *Hub) BroadcastNotification(notif *models.Notification) {
	h.Broadcast(NewNotificationMessage(notif))
}

// BroadcastLineUpdate pushes a line's new phase and position after the Line
// Controller evaluates it this cycle.
func (h *Hub) BroadcastLineUpdate(lineID string, state models.LineState, pos models.LinePosition) {
	h.Broadcast(NewLineUpdateMessage(lineID, state, pos))
}

// BroadcastCycleSummary pushes the per-cycle counters the Scheduler
// accumulates (spec §7 "user-visible counters").
func (h *Hub) BroadcastCycleSummary(summary CycleSummary) {
	h.Broadcast(NewCycleSummaryMessage(summary))
}

// ClientCount reports how many admin consoles are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
