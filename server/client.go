package server

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"colorfulez-server/network_state"
)

const (
	// WebSocket heartbeat settings to detect disconnected clients
	PING_INTERVAL = 10 * time.Second
	PONG_WAIT     = 60 * time.Second
	WRITE_WAIT    = 10 * time.Second

	sendBufferSize = 256
)

// WebSocketClient is one connected player. It implements network_state.Connection.
type WebSocketClient struct {
	conn     *websocket.Conn
	send     chan []byte
	playerID string
	done     chan struct{}
	closed   atomic.Bool
	once     sync.Once
}

// NewWebSocketClient creates and returns a new WebSocketClient instance.
func NewWebSocketClient(conn *websocket.Conn, playerID string) *WebSocketClient {
	return &WebSocketClient{
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		playerID: playerID,
		done:     make(chan struct{}),
	}
}

// ID returns the player id the connection was assigned.
func (c *WebSocketClient) ID() string { return c.playerID }

// IsValid reports whether the connection is still open.
func (c *WebSocketClient) IsValid() bool { return !c.closed.Load() }

// Send queues a message without blocking. A full buffer is reported as
// network_state.ErrSendBufferFull so the caller can retry later.
func (c *WebSocketClient) Send(msg network_state.Message) error {
	if c.closed.Load() {
		return network_state.ErrConnectionClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return network_state.ErrConnectionClosed
	case c.send <- data:
		return nil
	default:
		return network_state.ErrSendBufferFull
	}
}

// Close marks the connection invalid and stops the write pump.
func (c *WebSocketClient) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

// ReadPump continuously reads messages from the WebSocket connection.
// It handles disconnection detection and signals the WritePump to terminate.
func (c *WebSocketClient) ReadPump(server *Server) {
	defer func() {
		c.Close()
		server.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(PONG_WAIT))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PONG_WAIT))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client %s: Unexpected WebSocket close error: %v", c.playerID, err)
			}
			break
		}
		server.handleClientMessage(c, message)
	}
}

// WritePump continuously sends messages from the 'send' channel to the WebSocket connection.
// It also sends periodic pings for heartbeat and terminates gracefully on signal.
func (c *WebSocketClient) WritePump() {
	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Client %s: Error sending message: %v", c.playerID, err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Client %s: Error sending ping: %v", c.playerID, err)
				c.Close()
				return
			}

		case <-c.done:
			// The read side may already have closed the socket.
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
