package collab

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/inamate/draftview/internal/document"
)

// DocumentLoader fetches the latest snapshot of a drawing.
type DocumentLoader func(drawingID string) (*document.Document, int32, error)

type Room struct {
	drawingID string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager
	state     *DocumentState
}

func NewRoom(drawingID string, state *DocumentState) *Room {
	return &Room{
		drawingID: drawingID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		state:     state,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // drawingID -> room
	loader     DocumentLoader
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	stopped    chan struct{}
}

func NewHub(loader DocumentLoader) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		loader:     loader,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
	<-h.stopped
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish hands a new snapshot to the drawing's room, if anyone is viewing it.
// Every client reloads and receives doc.sync plus a fresh frame.
func (h *Hub) Publish(drawingID string, version int32, doc *document.Document) {
	h.mu.RLock()
	room, ok := h.rooms[drawingID]
	var clients []*Client
	if ok {
		clients = make([]*Client, 0, len(room.clients))
		for _, c := range room.clients {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()
	if !ok || !room.state.Publish(doc, version) {
		return
	}

	for _, c := range clients {
		msgs, err := c.session.Reload(doc, version)
		if err != nil {
			c.log.Warn("reload failed", "error", err)
			c.Send(errorMessage("reload failed"))
			continue
		}
		for _, m := range msgs {
			c.Send(m)
		}
	}
	slog.Info("snapshot broadcast", "drawing", drawingID, "version", version, "clients", len(clients))
}

// Rooms reports how many drawings have connected viewers.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DrawingID]
	if !ok {
		doc, version, err := h.loader(client.DrawingID)
		if err != nil {
			h.mu.Unlock()
			slog.Error("load drawing", "error", err, "drawing", client.DrawingID)
			client.Send(errorMessage("failed to load drawing"))
			client.closeSend()
			return
		}
		room = NewRoom(client.DrawingID, NewDocumentState(doc, version))
		h.rooms[client.DrawingID] = room
	}
	doc, version := room.state.GetDocument()
	if err := client.session.Load(doc, version); err != nil {
		if len(room.clients) == 0 {
			delete(h.rooms, client.DrawingID)
		}
		h.mu.Unlock()
		client.log.Error("load session", "error", err)
		text := "failed to load drawing"
		if errors.Is(err, document.ErrTooComplex) {
			text = "drawing is too complex to display"
		}
		client.Send(errorMessage(text))
		client.closeSend()
		return
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(client.session.Welcome(client.ClientID))

	// The newcomer sees everyone already here, then everyone sees the newcomer.
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}
	room.presence.Update(&PresencePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(client.DrawingID, &Message{
		Type:     TypePresenceJoin,
		ClientID: client.ClientID,
		UserID:   client.UserID,
		Payload:  joinPayload,
	}, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "drawing", client.DrawingID, "version", version)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DrawingID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Remove(client.ClientID)

	if len(room.clients) == 0 {
		delete(h.rooms, client.DrawingID)
	}
	h.mu.Unlock()

	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		ClientID: client.ClientID,
		UserID:   client.UserID,
	})
	h.broadcastToRoom(client.DrawingID, &Message{
		Type:     TypePresenceLeave,
		ClientID: client.ClientID,
		UserID:   client.UserID,
		Payload:  leavePayload,
	}, "")

	slog.Info("client left", "user", client.UserID, "drawing", client.DrawingID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.closeSend()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	default:
		replies, err := sender.session.Apply(msg)
		if err != nil {
			sender.log.Warn("view operation failed", "type", msg.Type, "error", err)
			sender.Send(errorMessage(err.Error()))
			return
		}
		for _, m := range replies {
			m.Seq = msg.Seq
			sender.Send(m)
		}
	}
}

// handlePresenceUpdate accepts either a document-space cursor or, with
// "screen": true, a screen cursor the sender's viewport converts. Identity and
// the visible window always come from the server side of the session.
func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var in struct {
		Cursor    *CursorPos `json:"cursor"`
		Selection []string   `json:"selection"`
		Screen    bool       `json:"screen"`
	}
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		sender.log.Warn("invalid presence payload", "error", err)
		return
	}

	presence := PresencePayload{
		ClientID:    sender.ClientID,
		UserID:      sender.UserID,
		DisplayName: sender.DisplayName,
		Cursor:      in.Cursor,
		Selection:   in.Selection,
	}
	if in.Screen && presence.Cursor != nil {
		c := sender.session.Cursor(presence.Cursor.X, presence.Cursor.Y)
		presence.Cursor = &c
	}
	if view, ok := sender.session.View(); ok {
		presence.View = &view
	}
	if presence.Selection == nil {
		if id := sender.session.SelectionID(); id != "" {
			presence.Selection = []string{id}
		}
	}

	h.mu.RLock()
	room, ok := h.rooms[sender.DrawingID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	room.presence.Update(&presence)

	outPayload, _ := json.Marshal(presence)
	h.broadcastToRoom(sender.DrawingID, &Message{
		Type:     TypePresenceUpdate,
		ClientID: sender.ClientID,
		UserID:   sender.UserID,
		Payload:  outPayload,
	}, sender.ClientID)
}

func (h *Hub) broadcastToRoom(drawingID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[drawingID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
