package visibility

import (
	"github.com/go-gl/mathgl/mgl32"

	"colorfulez-server/facility"
	"colorfulez-server/network_state"
)

// PlayerView is a snapshot of the player attributes visibility depends on.
type PlayerView struct {
	ID             string
	IsBot          bool
	Verified       bool
	Alive          bool
	Position       mgl32.Vec3
	SpectatingID   string
	SpeedBoost     bool
	ExpandedVision bool
	NoClip         bool
	Conn           network_state.Connection
}

// PlayerDirectory enumerates connected players.
type PlayerDirectory interface {
	Players() []PlayerView
	Player(id string) (PlayerView, bool)
}

// RoomLocator maps world positions to rooms.
type RoomLocator interface {
	RoomAt(pos mgl32.Vec3) *facility.Room
}

// Eligible reports whether the player takes part in visibility sync at all.
func Eligible(p PlayerView) bool {
	return p.Verified && !p.IsBot && p.Conn != nil
}

// IsFast reports whether the player moves or sees far enough to need the fast sweep.
func IsFast(p PlayerView) bool {
	return p.SpeedBoost || p.ExpandedVision || p.NoClip
}

// ResolveRoom returns the id of the room the player should see: their own
// room when alive, the spectated player's room when spectating someone alive,
// otherwise the empty id.
func ResolveRoom(p PlayerView, dir PlayerDirectory, rooms RoomLocator) string {
	if p.Alive {
		return roomID(rooms, p.Position)
	}
	if p.SpectatingID == "" || p.SpectatingID == p.ID || dir == nil {
		return ""
	}
	target, ok := dir.Player(p.SpectatingID)
	if !ok || !target.Alive {
		return ""
	}
	return roomID(rooms, target.Position)
}

func roomID(rooms RoomLocator, pos mgl32.Vec3) string {
	if rooms == nil {
		return ""
	}
	if r := rooms.RoomAt(pos); r != nil {
		return r.ID
	}
	return ""
}
