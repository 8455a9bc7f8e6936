package network_state

import "errors"

var (
	// ErrConnectionClosed is returned when sending to a connection that went away.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a connection cannot accept more messages right now.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Message is one outgoing frame for a player connection.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Connection is a player's network connection as seen by the object substrate.
type Connection interface {
	ID() string
	IsValid() bool
	Send(msg Message) error
}
