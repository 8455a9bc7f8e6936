package server

import (
	"encoding/json"
	"log"

	"github.com/go-gl/mathgl/mgl32"
)

// Message types exchanged with game clients.
const (
	MsgPlayerAssigned = "player_assigned"
	MsgPlayerState    = "player_state"
	MsgPlayerVerified = "player_verified"
)

// clientMessage represents the generic structure of messages from the client.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// playerStateData is a partial player update; absent fields keep their value.
type playerStateData struct {
	Position       *[3]float32 `json:"position"`
	Alive          *bool       `json:"alive"`
	Spectating     *string     `json:"spectating"`
	SpeedBoost     *bool       `json:"speed_boost"`
	ExpandedVision *bool       `json:"expanded_vision"`
	NoClip         *bool       `json:"noclip"`
	IsBot          *bool       `json:"is_bot"`
}

// handleClientMessage processes incoming JSON messages from a specific client.
func (s *Server) handleClientMessage(client *WebSocketClient, message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Client %s: ERROR unmarshaling incoming message: %v", client.playerID, err)
		return
	}

	switch msg.Type {
	case MsgPlayerState:
		var data playerStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			log.Printf("Client %s: ERROR unmarshaling player state: %v", client.playerID, err)
			return
		}
		s.applyPlayerState(client.playerID, data)
	case MsgPlayerVerified:
		s.mu.Lock()
		if p, ok := s.players[client.playerID]; ok {
			p.verified = true
		}
		s.mu.Unlock()
		log.Printf("Client %s: verified.", client.playerID)
	default:
		log.Printf("Client %s: WARNING unknown message type '%s'.", client.playerID, msg.Type)
	}
}

func (s *Server) applyPlayerState(playerID string, data playerStateData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return
	}
	if data.Position != nil {
		p.position = mgl32.Vec3(*data.Position)
	}
	if data.Alive != nil {
		p.alive = *data.Alive
	}
	if data.Spectating != nil {
		p.spectating = *data.Spectating
	}
	if data.SpeedBoost != nil {
		p.speedBoost = *data.SpeedBoost
	}
	if data.ExpandedVision != nil {
		p.expandedVision = *data.ExpandedVision
	}
	if data.NoClip != nil {
		p.noClip = *data.NoClip
	}
	if data.IsBot != nil {
		p.isBot = *data.IsBot
	}
	if s.verbose {
		log.Printf("Client %s: state %+v", playerID, *p)
	}
}
