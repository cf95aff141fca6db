package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event is a WebSocket message to be broadcast.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// staffRoom is the reserved room ID for the staff dashboard feed. Staff see
// every order transition; customers only the room of the order they watch.
var staffRoom = uuid.Nil

// roomEvent routes an event to a specific room.
type roomEvent struct {
	RoomID uuid.UUID
	Event  Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients by room: order ID, or staffRoom.
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.roomID] == nil {
				h.rooms[client.roomID] = make(map[*Client]bool)
			}
			h.rooms[client.roomID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.roomID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.roomID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.RoomID]

			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister.
					close(client.send)
					delete(h.rooms[event.RoomID], client)
					if len(h.rooms[event.RoomID]) == 0 {
						delete(h.rooms, event.RoomID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// statusPayload is the body of an order.status event.
type statusPayload struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

// BroadcastOrderStatus fans a status transition out to the order's watchers
// and the staff dashboard.
func (h *Hub) BroadcastOrderStatus(orderID uuid.UUID, status, paymentStatus string) {
	payload, err := json.Marshal(statusPayload{
		OrderID:       orderID.String(),
		Status:        status,
		PaymentStatus: paymentStatus,
	})
	if err != nil {
		return
	}

	event := Event{Type: "order.status", Payload: payload}
	h.broadcast <- &roomEvent{RoomID: orderID, Event: event}
	h.broadcast <- &roomEvent{RoomID: staffRoom, Event: event}
}
