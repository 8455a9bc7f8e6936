package network_state

import (
	"fmt"
)

// Descriptor is one flattened prefab node. Parent indexes an earlier
// descriptor of the same slice, or is -1 for the prefab root.
type Descriptor struct {
	Name      string
	Local     Transform
	HasMesh   bool
	Primitive PrimitiveType
	Color     Color
	Ignored   bool
	Parent    int
}

// Instance is one object spawned by the factory.
type Instance struct {
	Object  *NetworkObject
	Ignored bool
	// Structural instances carry no mesh and only exist to parent others.
	Structural bool
}

// ServerNetworkObjectFactory turns flattened prefab descriptors into spawned objects.
type ServerNetworkObjectFactory struct {
	state *NetworkState
}

// NewServerNetworkObjectFactory creates a factory spawning into state.
func NewServerNetworkObjectFactory(state *NetworkState) *ServerNetworkObjectFactory {
	return &ServerNetworkObjectFactory{state: state}
}

// Instantiate spawns every descriptor under anchor, the world transform of the
// parent the prefab is attached to. Ignored and mesh-less nodes stay host-only.
func (f *ServerNetworkObjectFactory) Instantiate(descs []Descriptor, anchor Transform, roomID, parentID string) ([]Instance, error) {
	world := make([]Transform, len(descs))
	ids := make([]string, len(descs))
	for i, d := range descs {
		if d.Parent >= i {
			return nil, fmt.Errorf("descriptor %d (%s) references parent %d out of order", i, d.Name, d.Parent)
		}
	}

	out := make([]Instance, 0, len(descs))
	for i, d := range descs {
		parentWorld, parent := anchor, parentID
		if d.Parent >= 0 {
			parentWorld, parent = world[d.Parent], ids[d.Parent]
		}
		world[i] = parentWorld.Apply(d.Local)

		var obj *NetworkObject
		if d.HasMesh {
			obj = f.state.SpawnPrimitive(SpawnRequest{
				Name:      d.Name,
				RoomID:    roomID,
				ParentID:  parent,
				Primitive: d.Primitive,
				Transform: world[i],
				Color:     d.Color,
				Networked: !d.Ignored,
			})
		} else {
			obj = f.state.SpawnEmpty(d.Name, roomID, parent, world[i])
		}
		ids[i] = obj.ID
		out = append(out, Instance{Object: obj, Ignored: d.Ignored, Structural: !d.HasMesh})
	}
	return out, nil
}
