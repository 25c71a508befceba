package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/inamate/draftview/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
	// Frames can be large; a viewer more than this many messages behind starts
	// losing them.
	sendBuffer = 64
)

// Client is one websocket connection viewing a drawing through its own
// engine session.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	session     *Session
	log         *slog.Logger
	UserID      string
	DisplayName string
	DrawingID   string
	ClientID    string

	mu      sync.Mutex
	send    chan []byte
	closed  bool
	dropped int
}

// NewClient creates a client with its own engine session configured by opts.
func NewClient(hub *Hub, conn *websocket.Conn, userID, displayName, drawingID, clientID string, opts engine.Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("client", clientID, "user", userID, "drawing", drawingID)
	opts.Logger = log
	return &Client{
		hub:         hub,
		conn:        conn,
		session:     NewSession(opts),
		log:         log,
		send:        make(chan []byte, sendBuffer),
		UserID:      userID,
		DisplayName: displayName,
		DrawingID:   drawingID,
		ClientID:    clientID,
	}
}

// ReadPump decodes incoming messages and hands them to the hub until the
// connection closes, then unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if !errors.Is(err, context.Canceled) {
					c.log.Debug("read error", "error", err)
				}
			}
			return
		}
		if typ != websocket.MessageText {
			c.Send(errorMessage("binary messages are not supported"))
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("invalid message", "error", err)
			c.Send(errorMessage("invalid message"))
			continue
		}

		// Identity comes from the connection, never from the payload.
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.DrawingID = c.DrawingID

		c.hub.handleMessage(c, &msg)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, func(ctx context.Context) error {
				return c.conn.Write(ctx, websocket.MessageText, message)
			}); err != nil {
				c.log.Debug("write error", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.write(ctx, c.conn.Ping); err != nil {
				c.log.Debug("ping failed", "error", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return fn(ctx)
}

// Send queues a message. A slow client loses messages rather than stalling
// the hub.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal message", "error", err, "type", msg.Type)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.dropped++
		c.log.Warn("send buffer full, dropping message", "type", msg.Type, "dropped", c.dropped)
	}
}

// Dropped reports how many messages were discarded because the client fell
// behind.
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
