package notify

import (
	"encoding/json"
	"log"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
)

// Hub pushes booking events to connected dashboard clients over
// websockets. Parents only see their own events; admin connections get
// everything addressed to the admin group.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	admins     map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	events     chan Event
}

type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	isAdmin bool
	send    chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		admins:     make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, isAdmin bool) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		isAdmin: isAdmin,
		send:    make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			if client.isAdmin {
				h.admins[client] = struct{}{}
			}
		case client := <-h.unregister:
			h.drop(client)
		case event := <-h.events:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish queues the event for delivery. It never blocks the caller: a
// saturated hub drops the event and logs it.
func (h *Hub) Publish(event Event) {
	select {
	case h.events <- event:
	default:
		log.Printf("notify hub: dropping event %s (%s)", event.ID, event.Type)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.admins, client)
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		close(client.send)
	}
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) deliver(event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify hub encode event: %v", err)
		return
	}

	switch event.Audience.Kind {
	case AudienceParent:
		h.sendToUser(strconv.FormatInt(event.Audience.ParentID, 10), encoded)
	case AudienceAllAdmins:
		for client := range h.admins {
			h.sendToClient(client, encoded)
		}
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		h.sendToClient(client, payload)
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func (h *Hub) sendToClient(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		h.drop(client)
	}
}

// ReadPump drains the connection until the client goes away. The
// notification stream is one-directional; inbound frames are ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
