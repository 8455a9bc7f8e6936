package network_state

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a position, rotation and scale in world or parent space.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// IdentityTransform sits at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// Apply composes a child transform expressed in t's space into t's parent space.
func (t Transform) Apply(local Transform) Transform {
	scaled := mgl32.Vec3{
		local.Position[0] * t.Scale[0],
		local.Position[1] * t.Scale[1],
		local.Position[2] * t.Scale[2],
	}
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(scaled)),
		Rotation: t.Rotation.Mul(local.Rotation).Normalize(),
		Scale: mgl32.Vec3{
			t.Scale[0] * local.Scale[0],
			t.Scale[1] * local.Scale[1],
			t.Scale[2] * local.Scale[2],
		},
	}
}

// NetworkObject represents a spawned object in the network state.
// Networked objects can be sent to connections, the rest stay on the host
// as structural parents.
type NetworkObject struct {
	ID        string
	Name      string
	RoomID    string
	ParentID  string
	Primitive PrimitiveType
	Transform Transform
	Color     Color
	Networked bool
}

// SpawnPayload is the wire form of an object_spawn message.
type SpawnPayload struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	RoomID    string        `json:"room_id"`
	Primitive PrimitiveType `json:"primitive"`
	Position  [3]float32    `json:"position"`
	Rotation  [4]float32    `json:"rotation"` // x, y, z, w
	Scale     [3]float32    `json:"scale"`
	Color     Color         `json:"color"`
}

// DestroyPayload is the wire form of an object_destroy message.
type DestroyPayload struct {
	ID string `json:"id"`
}

// UpdatePayload is the wire form of an object_update message.
type UpdatePayload struct {
	ID    string `json:"id"`
	Color Color  `json:"color"`
}

// SpawnPayload snapshots the object for delivery to a client.
func (obj *NetworkObject) SpawnPayload() SpawnPayload {
	q := obj.Transform.Rotation
	return SpawnPayload{
		ID:        obj.ID,
		Name:      obj.Name,
		RoomID:    obj.RoomID,
		Primitive: obj.Primitive,
		Position:  obj.Transform.Position,
		Rotation:  [4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:     obj.Transform.Scale,
		Color:     obj.Color,
	}
}
