// Package realtime provides the room-based publish/subscribe layer used to
// push workflow events to connected dashboards and the patient portal. It
// follows a hub-and-spoke pattern: clients join named rooms and receive
// events published to those rooms.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a single real-time message delivered to room subscribers.
type Event struct {
	Event     string          `json:"event"`
	Room      string          `json:"room,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound control message from a connected client.
type ClientMessage struct {
	Action string   `json:"action"` // "join" or "leave"
	Rooms  []string `json:"rooms"`
}

// Router is the publish surface handed to workflow components. Publishing is
// best-effort: implementations never block the caller and a nil Router is a
// safe no-op (see Publish / PublishGlobal package functions).
type Router interface {
	Publish(room, event string, payload interface{})
	PublishGlobal(event string, payload interface{})
}

// Publish calls r.Publish when a router is configured. Workflow operations
// must never fail because no real-time layer is attached.
func Publish(r Router, room, event string, payload interface{}) {
	if r == nil {
		return
	}
	r.Publish(room, event, payload)
}

// PublishGlobal calls r.PublishGlobal when a router is configured.
func PublishGlobal(r Router, event string, payload interface{}) {
	if r == nil {
		return
	}
	r.PublishGlobal(event, payload)
}

// Client represents a single connected subscriber.
type Client struct {
	ID    string
	Rooms []string
	Send  chan []byte
}

// NewClient creates a client with a buffered send channel.
func NewClient() *Client {
	return &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
	}
}

// Hub tracks connected clients and their room memberships. All operations
// are safe for concurrent use.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	all   map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		all:   make(map[*Client]struct{}),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, room := range client.Rooms {
		h.addToRoom(client, room)
	}
}

// Unregister removes a client from the hub and every room, and closes its
// send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, room := range client.Rooms {
		h.removeFromRoom(client, room)
	}
	delete(h.all, client)
	close(client.Send)
}

// Join subscribes an already-registered client to additional rooms.
func (h *Hub) Join(client *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range rooms {
		h.addToRoom(client, room)
	}
	client.Rooms = append(client.Rooms, rooms...)
}

// Leave unsubscribes a client from the given rooms.
func (h *Hub) Leave(client *Client, rooms []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		removeSet[room] = struct{}{}
		h.removeFromRoom(client, room)
	}

	remaining := make([]string, 0, len(client.Rooms))
	for _, room := range client.Rooms {
		if _, rm := removeSet[room]; !rm {
			remaining = append(remaining, room)
		}
	}
	client.Rooms = remaining
}

func (h *Hub) addToRoom(client *Client, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
}

func (h *Hub) removeFromRoom(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// ProcessMessage dispatches an inbound client control message.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "join":
		h.Join(client, msg.Rooms)
	case "leave":
		h.Leave(client, msg.Rooms)
	}
}

// Publish sends an event to every client in the given room. Clients whose
// buffers are full are skipped so a slow consumer never blocks a workflow
// operation.
func (h *Hub) Publish(room, event string, payload interface{}) {
	data := marshalEvent(room, event, payload)
	if data == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// PublishGlobal sends an event to every connected client regardless of room.
func (h *Hub) PublishGlobal(event string, payload interface{}) {
	data := marshalEvent("", event, payload)
	if data == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.all {
		select {
		case client.Send <- data:
		default:
		}
	}
}

func marshalEvent(room, event string, payload interface{}) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	data, err := json.Marshal(Event{
		Event:     event,
		Room:      room,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	})
	if err != nil {
		return nil
	}
	return data
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// RoomCount returns the number of clients in a specific room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
