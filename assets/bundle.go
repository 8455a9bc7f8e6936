package assets

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is one scene graph node of a prefab.
type Node struct {
	Name     string      `json:"name" jsonschema:"required,description=Node name; names containing (ignore) stay host-only"`
	Active   *bool       `json:"active,omitempty" jsonschema:"description=Inactive nodes and their children are skipped (default true)"`
	Position [3]float32  `json:"position,omitempty" jsonschema:"description=Local position x y z"`
	Rotation *[4]float32 `json:"rotation,omitempty" jsonschema:"description=Local rotation quaternion x y z w (default identity)"`
	Scale    *[3]float32 `json:"scale,omitempty" jsonschema:"description=Local scale (default 1 1 1)"`
	Mesh     string      `json:"mesh,omitempty" jsonschema:"description=Primitive mesh name such as Cube or Quad; empty for structural nodes"`
	Color    string      `json:"color,omitempty" jsonschema:"description=Hex or web color name (default white)"`
	Children []Node      `json:"children,omitempty"`
}

// Bundle is the decoded content of one asset file.
type Bundle struct {
	Prefabs []Node `json:"prefabs" jsonschema:"required"`
}

// IsActive reports whether the node takes part in instantiation.
func (n *Node) IsActive() bool {
	return n.Active == nil || *n.Active
}

// LocalRotation returns the node rotation, identity when unset.
func (n *Node) LocalRotation() mgl32.Quat {
	if n.Rotation == nil {
		return mgl32.QuatIdent()
	}
	r := *n.Rotation
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}

// LocalScale returns the node scale, unit when unset.
func (n *Node) LocalScale() mgl32.Vec3 {
	if n.Scale == nil {
		return mgl32.Vec3{1, 1, 1}
	}
	return mgl32.Vec3(*n.Scale)
}

// Prefab returns the root node with the given name.
func (b *Bundle) Prefab(name string) (*Node, error) {
	for i := range b.Prefabs {
		if b.Prefabs[i].Name == name {
			return &b.Prefabs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPrefabNotFound, name)
}
