package nodes

import (
	"strconv"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// Reference roles shared by displayable nodes.
const (
	RoleDisplay   = "display"
	RoleTransform = "transform"
)

// Model is a surface mesh.
type Model struct {
	node.Base
	Polygons int
	Visible  bool
}

func NewModel() *Model { return &Model{Visible: true} }

func (m *Model) ClassName() string { return "Model" }
func (m *Model) TypeTag() string { return "Model" }
func (m *Model) NewInstance() node.Node { return NewModel() }
func (m *Model) DisplayID() string { return m.Reference(RoleDisplay) }
func (m *Model) SetDisplayID(id string) { m.SetReference(RoleDisplay, id) }
func (m *Model) TransformID() string { return m.Reference(RoleTransform) }
func (m *Model) SetTransformID(id string) { m.SetReference(RoleTransform, id) }

func (m *Model) Copy(src node.Node) {
	s, ok := src.(*Model)
	if !ok {
		return
	}
	m.CopyBase(&s.Base)
	m.Polygons = s.Polygons
	m.Visible = s.Visible
}

func (m *Model) WriteAttributes() map[string]string {
	return map[string]string{
		"polygons": strconv.Itoa(m.Polygons),
		"visible":  strconv.FormatBool(m.Visible),
	}
}

func (m *Model) ReadAttributes(attrs map[string]string) error {
	r := attrReader{attrs: attrs}
	r.integer("polygons", &m.Polygons)
	r.flag("visible", &m.Visible)
	return r.err
}
