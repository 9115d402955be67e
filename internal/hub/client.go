package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusconnect/campus/pkg/log"
)

// Config controls websocket keepalive and limits.
type Config struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

// DefaultConfig returns the keepalive settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}
}

// Client is one open feed screen.
type Client struct {
	ID        string
	UserID    string
	SessionID string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	config Config

	mu       sync.Mutex
	threadID *string
	issued   uint64

	// delivered is the newest refetch sequence sent; owned by the hub loop.
	delivered uint64
}

// NewClient creates a client for an upgraded connection. It does nothing
// until registered with hub.
func NewClient(id, userID, sessionID string, hub *Hub, conn *websocket.Conn, cfg Config) *Client {
	return &Client{
		ID:        id,
		UserID:    userID,
		SessionID: sessionID,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		config:    cfg,
	}
}

// Thread returns the client's current thread filter.
func (c *Client) Thread() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.threadID == nil {
		return nil
	}
	id := *c.threadID
	return &id
}

// nextRefetch returns the current filter and numbers a new refetch for it.
func (c *Client) nextRefetch() (*string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	if c.threadID == nil {
		return nil, c.issued
	}
	id := *c.threadID
	return &id, c.issued
}

func (c *Client) setThread(threadID *string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if threadID == nil || *threadID == "" {
		c.threadID = nil
		return
	}
	id := *threadID
	c.threadID = &id
}

// ReadPump handles inbound frames until the socket closes, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str("client_id", c.ID).Msg("websocket read failed")
			}
			return
		}
		c.handle(message)
	}
}

func (c *Client) handle(message []byte) {
	var base BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		c.hub.deliverTo(c, encode(ErrorMessage{Type: MsgTypeError, Message: "Invalid message format"}))
		return
	}

	switch base.Type {
	case MsgTypeSelectThread:
		var msg SelectThreadMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.deliverTo(c, encode(ErrorMessage{Type: MsgTypeError, Message: "Invalid select_thread message"}))
			return
		}
		c.setThread(msg.ThreadID)
		c.hub.Refetch(c)

	case MsgTypePing:
		c.hub.deliverTo(c, encode(BaseMessage{Type: MsgTypePong}))

	default:
		c.hub.deliverTo(c, encode(ErrorMessage{Type: MsgTypeError, Message: "Unknown message type"}))
	}
}

// WritePump drains the send queue into the socket and keeps it alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
