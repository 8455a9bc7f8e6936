package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"colorfulez-server/network_state"
	"colorfulez-server/visibility"
)

// player is the server side record of a connected player.
type player struct {
	client         *WebSocketClient
	verified       bool
	isBot          bool
	alive          bool
	position       mgl32.Vec3
	spectating     string
	speedBoost     bool
	expandedVision bool
	noClip         bool
}

// Server manages WebSocket connections and is the player directory of the game.
type Server struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	players  map[string]*player
	onLeave  func(playerID string, conn network_state.Connection)
	verbose  bool
}

// NewServer initializes a new Server instance.
func NewServer(verbose bool) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for development. RESTRICT THIS IN PRODUCTION!
				return true
			},
		},
		players: make(map[string]*player),
		verbose: verbose,
	}
}

// OnLeave registers the callback run after a player disconnects.
func (s *Server) OnLeave(fn func(playerID string, conn network_state.Connection)) {
	s.mu.Lock()
	s.onLeave = fn
	s.mu.Unlock()
}

// HandleConnections upgrades HTTP requests to WebSocket connections.
func (s *Server) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	playerID := uuid.New().String()
	client := NewWebSocketClient(conn, playerID)

	// Registered before the assignment is written so the id resolves as soon
	// as the client sees it. Anything sent meanwhile waits in the buffer.
	s.mu.Lock()
	s.players[playerID] = &player{client: client, alive: true}
	s.mu.Unlock()

	assigned, _ := json.Marshal(network_state.Message{
		Type:    MsgPlayerAssigned,
		Payload: map[string]string{"player_id": playerID},
	})
	if err := conn.WriteMessage(websocket.TextMessage, assigned); err != nil {
		log.Printf("ERROR: Failed to send %s message to client %s: %v. Disconnecting.", MsgPlayerAssigned, playerID, err)
		client.Close()
		s.unregisterClient(client)
		conn.Close()
		return
	}
	log.Printf("Player %s connected from %s.", playerID, conn.RemoteAddr().String())

	go client.WritePump()
	go client.ReadPump(s)
}

// unregisterClient forgets the player and notifies the leave callback.
func (s *Server) unregisterClient(client *WebSocketClient) {
	s.mu.Lock()
	_, ok := s.players[client.playerID]
	delete(s.players, client.playerID)
	onLeave := s.onLeave
	s.mu.Unlock()
	if !ok {
		return
	}

	log.Printf("Player %s disconnected.", client.playerID)
	if onLeave != nil {
		onLeave(client.playerID, client)
	}
}

func (p *player) view(id string) visibility.PlayerView {
	return visibility.PlayerView{
		ID:             id,
		IsBot:          p.isBot,
		Verified:       p.verified,
		Alive:          p.alive,
		Position:       p.position,
		SpectatingID:   p.spectating,
		SpeedBoost:     p.speedBoost,
		ExpandedVision: p.expandedVision,
		NoClip:         p.noClip,
		Conn:           p.client,
	}
}

// Players returns a snapshot of every connected player, ordered by id.
func (s *Server) Players() []visibility.PlayerView {
	s.mu.RLock()
	out := make([]visibility.PlayerView, 0, len(s.players))
	for id, p := range s.players {
		out = append(out, p.view(id))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Player returns one connected player.
func (s *Server) Player(id string) (visibility.PlayerView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return visibility.PlayerView{}, false
	}
	return p.view(id), true
}

// ClientCount returns the number of connected players.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Shutdown closes every client connection.
func (s *Server) Shutdown() {
	s.mu.RLock()
	clients := make([]*WebSocketClient, 0, len(s.players))
	for _, p := range s.players {
		clients = append(clients, p.client)
	}
	s.mu.RUnlock()
	for _, c := range clients {
		c.Close()
		c.conn.Close()
	}
}
