// Package nodes is the catalog of concrete scene node types.
package nodes

import (
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
	"github.com/gyaneshwarpardhi/scenegraph/internal/registry"
)

// Prototypes returns one fresh instance of every catalog type.
func Prototypes() []node.Node {
	return []node.Node{
		NewModel(),
		NewVolume(),
		NewLabelMapVolume(),
		NewDisplay(),
		NewTransform(),
		NewCrosshair(),
		NewSelection(),
		NewSceneView(),
	}
}

// RegisterAll registers every catalog type under its own tag.
func RegisterAll(reg *registry.Registry) {
	for _, p := range Prototypes() {
		reg.Register(p, "")
	}
}
