package nodes

import "github.com/gyaneshwarpardhi/scenegraph/internal/node"

// Crosshair is the shared cursor position. Scenes usually hold it as a
// singleton, but the tag is left to the caller.
type Crosshair struct {
	node.Base
	Mode     string
	Position [3]float64
}

func NewCrosshair() *Crosshair { return &Crosshair{Mode: "none"} }

func (c *Crosshair) ClassName() string { return "Crosshair" }
func (c *Crosshair) TypeTag() string { return "Crosshair" }
func (c *Crosshair) NewInstance() node.Node { return NewCrosshair() }

func (c *Crosshair) Copy(src node.Node) {
	s, ok := src.(*Crosshair)
	if !ok {
		return
	}
	c.CopyBase(&s.Base)
	c.Mode = s.Mode
	c.Position = s.Position
}

func (c *Crosshair) WriteAttributes() map[string]string {
	return map[string]string{
		"mode":     c.Mode,
		"position": formatFloats(c.Position[:]),
	}
}

func (c *Crosshair) ReadAttributes(attrs map[string]string) error {
	r := attrReader{attrs: attrs}
	r.text("mode", &c.Mode)
	r.vector("position", c.Position[:])
	return r.err
}

// Selection roles.
const (
	RoleActiveVolume = "activeVolume"
	RoleActiveLabel  = "activeLabel"
)

// DefaultSingletonTag is the tag new Selection nodes carry.
const DefaultSingletonTag = "Singleton"

// Selection records which nodes the application considers active.
type Selection struct {
	node.Base
}

func NewSelection() *Selection {
	s := &Selection{}
	s.SetSingletonTag(DefaultSingletonTag)
	return s
}

func (s *Selection) ClassName() string { return "Selection" }
func (s *Selection) TypeTag() string { return "Selection" }
func (s *Selection) NewInstance() node.Node { return NewSelection() }

func (s *Selection) Copy(src node.Node) {
	o, ok := src.(*Selection)
	if !ok {
		return
	}
	s.CopyBase(&o.Base)
}

// SceneView is a saved snapshot description. It is never captured by undo.
type SceneView struct {
	node.Base
	Description string
}

func NewSceneView() *SceneView { return &SceneView{} }

func (v *SceneView) ClassName() string { return "SceneView" }
func (v *SceneView) TypeTag() string { return "SceneView" }
func (v *SceneView) NewInstance() node.Node { return NewSceneView() }
func (v *SceneView) ExcludeFromUndo() bool { return true }

func (v *SceneView) Copy(src node.Node) {
	s, ok := src.(*SceneView)
	if !ok {
		return
	}
	v.CopyBase(&s.Base)
	v.Description = s.Description
}

func (v *SceneView) WriteAttributes() map[string]string {
	return map[string]string{"description": v.Description}
}

func (v *SceneView) ReadAttributes(attrs map[string]string) error {
	r := attrReader{attrs: attrs}
	r.text("description", &v.Description)
	return r.err
}
