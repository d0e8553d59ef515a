package collab

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// relayedEvents maps inbound collaboration events to the event name members
// receive. All of them are relayed to the rest of the room, not echoed back
// to the sender.
var relayedEvents = map[string]string{
	"cursor-move":               "cursor-moved",
	"layer-update":              "layer-updated",
	"timeline-update":           "timeline-updated",
	"video-generation-progress": "video-generation-update",
	"share-project":             "project-shared",
}

// Client is one websocket connection attached to the hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	rooms     map[string]struct{}
	userID    string
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
}

// presenceID is the identifier announced in user-joined/user-left events:
// the self-reported user id when one was given, the connection id otherwise.
func (c *Client) presenceID() string {
	if c.userID != "" {
		return c.userID
	}
	return c.id
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		c.close()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var envelope Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}
		c.handle(envelope)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(envelope Envelope) {
	if envelope.UserID != "" {
		c.userID = envelope.UserID
	}
	if envelope.ProjectID == "" {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)

	switch envelope.Event {
	case "join-project":
		c.rooms[envelope.ProjectID] = struct{}{}
		c.hub.join(envelope.ProjectID, c)
		c.hub.notifyPresence(envelope.ProjectID, c, "user-joined")

	case "leave-project":
		delete(c.rooms, envelope.ProjectID)
		c.hub.leave(envelope.ProjectID, c)
		c.hub.notifyPresence(envelope.ProjectID, c, "user-left")

	case "chat-message":
		// Chat is echoed to the whole room, sender included, so every
		// member renders the same message with the server-assigned id.
		c.hub.send(envelope.ProjectID, Envelope{
			Event:     "chat-message-received",
			ProjectID: envelope.ProjectID,
			UserID:    c.presenceID(),
			UserName:  envelope.UserName,
			Timestamp: now,
			Payload:   withMessageID(envelope.Payload),
		}, nil)

	default:
		outEvent, ok := relayedEvents[envelope.Event]
		if !ok {
			return
		}
		c.hub.send(envelope.ProjectID, Envelope{
			Event:     outEvent,
			ProjectID: envelope.ProjectID,
			UserID:    c.presenceID(),
			UserName:  envelope.UserName,
			Timestamp: now,
			Payload:   envelope.Payload,
		}, c)
	}
}

// withMessageID injects a server-assigned id into a chat payload object.
// Non-object payloads pass through untouched.
func withMessageID(payload json.RawMessage) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return payload
	}
	id, err := json.Marshal("msg_" + uuid.NewString())
	if err != nil {
		return payload
	}
	fields["id"] = id
	merged, err := json.Marshal(fields)
	if err != nil {
		return payload
	}
	return merged
}
