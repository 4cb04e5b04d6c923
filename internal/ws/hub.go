package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

const (
	broadcastBuffer = 256
	// writeWait bounds a single frame write; a client slower than this is dropped.
	writeWait = 10 * time.Second
)

// Event is the JSON frame pushed to every connected client.
type Event struct {
	Type        string      `json:"type"`
	Action      string      `json:"action"`
	Product     interface{} `json:"product,omitempty"`
	Transaction interface{} `json:"transaction,omitempty"`
	ProductID   string      `json:"product_id,omitempty"`
	User        string      `json:"user,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// Client is the part of a websocket connection the hub writes to.
type Client interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Hub struct {
	Clients    map[Client]bool
	Register   chan Client
	Unregister chan Client
	Broadcast  chan []byte
	writeWait  time.Duration
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		Clients:    make(map[Client]bool),
		Register:   make(chan Client),
		Unregister: make(chan Client),
		Broadcast:  make(chan []byte, broadcastBuffer),
		writeWait:  writeWait,
		logger:     logger.Named("ws"),
	}
}

// Publish queues an event for broadcast. It never blocks; when the queue is
// full the event is dropped and clients catch up on their next fetch.
func (h *Hub) Publish(evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("encode event", zap.String("action", evt.Action), zap.Error(err))
		return
	}
	select {
	case h.Broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping event", zap.String("action", evt.Action))
	}
}

// Run owns the client set until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		for conn := range h.Clients {
			conn.Close()
			delete(h.Clients, conn)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case conn := <-h.Register:
			h.Clients[conn] = true
			h.logger.Debug("client connected", zap.Int("clients", len(h.Clients)))

		case conn := <-h.Unregister:
			if _, ok := h.Clients[conn]; ok {
				delete(h.Clients, conn)
				conn.Close()
			}

		case message := <-h.Broadcast:
			for conn := range h.Clients {
				conn.SetWriteDeadline(time.Now().Add(h.writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Debug("dropping client", zap.Error(err))
					conn.Close()
					delete(h.Clients, conn)
				}
			}
		}
	}
}

// Serve is the websocket endpoint handler. The read loop only detects
// disconnects; clients never send anything meaningful.
func (h *Hub) Serve(ctx context.Context) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		select {
		case h.Register <- c:
		case <-ctx.Done():
			return
		}
		defer func() {
			select {
			case h.Unregister <- c:
			case <-ctx.Done():
			}
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}
}
