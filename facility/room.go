package facility

import (
	"github.com/go-gl/mathgl/mgl32"

	"colorfulez-server/network_state"
)

// Child is a named transform inside a room, relative to the room anchor.
type Child struct {
	Position mgl32.Vec3 `json:"position"`
	Yaw      float32    `json:"yaw"`
}

// Room is one facility room. Rooms are fixed for the duration of a round.
type Room struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Position  mgl32.Vec3       `json:"position"`
	Yaw       float32          `json:"yaw"`     // degrees around +Y
	Extents   mgl32.Vec3       `json:"extents"` // half size along each local axis
	Neighbors []string         `json:"neighbors,omitempty"`
	Children  map[string]Child `json:"children,omitempty"`
}

var up = mgl32.Vec3{0, 1, 0}

func yawRotation(deg float32) mgl32.Quat {
	return mgl32.QuatRotate(mgl32.DegToRad(deg), up)
}

// Anchor is the world transform prefabs for this room are placed at.
func (r *Room) Anchor() network_state.Transform {
	t := network_state.IdentityTransform()
	t.Position = r.Position
	t.Rotation = yawRotation(r.Yaw)
	return t
}

// ChildAnchor returns the world transform of a named child.
func (r *Room) ChildAnchor(name string) (network_state.Transform, bool) {
	c, ok := r.Children[name]
	if !ok {
		return network_state.Transform{}, false
	}
	local := network_state.IdentityTransform()
	local.Position = c.Position
	local.Rotation = yawRotation(c.Yaw)
	return r.Anchor().Apply(local), true
}

// Contains reports whether a world position lies inside the room volume.
func (r *Room) Contains(pos mgl32.Vec3) bool {
	local := yawRotation(r.Yaw).Inverse().Rotate(pos.Sub(r.Position))
	for i := 0; i < 3; i++ {
		if local[i] < -r.Extents[i] || local[i] > r.Extents[i] {
			return false
		}
	}
	return true
}
