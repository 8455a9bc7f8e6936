package network_state

import (
	"fmt"
	"strings"
)

// Message types delivered to player connections.
const (
	MsgObjectSpawn   = "object_spawn"
	MsgObjectDestroy = "object_destroy"
	MsgObjectUpdate  = "object_update"
)

// PrimitiveType is the shape a networked primitive renders as on clients.
type PrimitiveType int

const (
	Sphere PrimitiveType = iota
	Capsule
	Cylinder
	Cube
	Plane
	Quad
)

var primitiveNames = [...]string{"Sphere", "Capsule", "Cylinder", "Cube", "Plane", "Quad"}

func (p PrimitiveType) String() string {
	if p < 0 || int(p) >= len(primitiveNames) {
		return fmt.Sprintf("PrimitiveType(%d)", int(p))
	}
	return primitiveNames[p]
}

// MarshalText encodes the primitive by name so clients need no enum table.
func (p PrimitiveType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePrimitiveType resolves a mesh name to a primitive. Only the first
// space separated token is significant ("Cube Instance" is a Cube).
func ParsePrimitiveType(mesh string) (PrimitiveType, bool) {
	fields := strings.Fields(mesh)
	if len(fields) == 0 {
		return 0, false
	}
	for i, name := range primitiveNames {
		if name == fields[0] {
			return PrimitiveType(i), true
		}
	}
	return 0, false
}
