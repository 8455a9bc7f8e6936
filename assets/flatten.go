package assets

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"colorfulez-server/config"
	"colorfulez-server/network_state"
)

// Flatten walks a prefab depth first and returns its nodes as descriptors,
// parents always before their children. The root is moved to the origin
// with identity rotation so the room anchor places it. Problems with single
// nodes are collected and the rest of the prefab is still returned.
func Flatten(prefab *Node) ([]network_state.Descriptor, []error) {
	if prefab == nil || !prefab.IsActive() {
		return nil, nil
	}

	var (
		out  []network_state.Descriptor
		errs []error
	)

	var walk func(n *Node, parent int, root bool)
	walk = func(n *Node, parent int, root bool) {
		if !n.IsActive() {
			return
		}

		desc := network_state.Descriptor{
			Name:    n.Name,
			Ignored: strings.Contains(n.Name, config.IgnoreMarker),
			Color:   network_state.White,
			Parent:  parent,
			Local: network_state.Transform{
				Position: mgl32.Vec3(n.Position),
				Rotation: n.LocalRotation(),
				Scale:    n.LocalScale(),
			},
		}
		if root {
			desc.Local.Position = mgl32.Vec3{}
			desc.Local.Rotation = mgl32.QuatIdent()
		}

		if n.Mesh != "" {
			prim, ok := network_state.ParsePrimitiveType(n.Mesh)
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %q on node %s", ErrUnknownPrimitive, n.Mesh, n.Name))
				return
			}
			desc.HasMesh = true
			desc.Primitive = prim
		}

		if n.Color != "" {
			c, err := network_state.ParseHTMLColor(n.Color)
			if err != nil {
				errs = append(errs, fmt.Errorf("node %s: %w", n.Name, err))
			} else {
				desc.Color = c
			}
		}

		idx := len(out)
		out = append(out, desc)
		for i := range n.Children {
			walk(&n.Children[i], idx, false)
		}
	}

	walk(prefab, -1, true)
	return out, errs
}
