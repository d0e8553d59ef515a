// Package collab implements the shared project room layer: presence, chat,
// cursor broadcast, and generation progress relay over websockets. It is a
// pure fan-out to room members with no ordering or durability guarantees.
package collab

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"avatarstudio/internal/infra"
)

// Recorder receives hub lifecycle events for metrics.
type Recorder interface {
	CollabConnected()
	CollabDisconnected()
	CollabBroadcast()
}

// Envelope is the wire format for every hub message, inbound and outbound.
type Envelope struct {
	Event     string          `json:"event"`
	ProjectID string          `json:"projectId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	UserName  string          `json:"userName,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Hub owns project rooms and relays envelopes between their members.
type Hub struct {
	logger   *infra.Logger
	metrics  Recorder
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *infra.Logger, metrics Recorder) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin enforcement happens in the CORS middleware:
			// the hub itself accepts any upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// ServeHTTP upgrades the connection and runs the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("collab: websocket upgrade failed")
		return
	}
	client := newClient(h, conn)
	if h.metrics != nil {
		h.metrics.CollabConnected()
	}
	h.logger.Debug().Str("client_id", client.id).Msg("collab: client connected")

	go client.writePump()
	client.readPump()
}

// Broadcast sends an event to every member of a project room. It is used by
// the HTTP layer to push generation progress into the room.
func (h *Hub) Broadcast(projectID, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.send(projectID, Envelope{
		Event:     event,
		ProjectID: projectID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   raw,
	}, nil)
}

// send delivers an envelope to the room, skipping except when non-nil. Slow
// consumers whose buffers are full are disconnected rather than blocking
// the room.
func (h *Hub) send(projectID string, envelope Envelope, except *Client) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return
	}
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[projectID]))
	for client := range h.rooms[projectID] {
		if client != except {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		select {
		case client.send <- data:
		default:
			// Force the connection closed; the read pump's cleanup path
			// then tears the client down without racing this send.
			h.logger.Warn().Str("client_id", client.id).Msg("collab: dropping slow consumer")
			client.conn.Close()
		}
	}
	if h.metrics != nil && len(members) > 0 {
		h.metrics.CollabBroadcast()
	}
}

func (h *Hub) join(projectID string, client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[projectID] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leave(projectID string, client *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[projectID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, projectID)
		}
	}
	h.mu.Unlock()
}

// RoomSize reports the number of members currently in a project room.
func (h *Hub) RoomSize(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}

func (h *Hub) disconnect(client *Client) {
	for projectID := range client.rooms {
		h.leave(projectID, client)
		h.notifyPresence(projectID, client, "user-left")
	}
	if h.metrics != nil {
		h.metrics.CollabDisconnected()
	}
	h.logger.Debug().Str("client_id", client.id).Msg("collab: client disconnected")
}

func (h *Hub) notifyPresence(projectID string, client *Client, event string) {
	h.send(projectID, Envelope{
		Event:     event,
		ProjectID: projectID,
		UserID:    client.presenceID(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, client)
}
