package nodes

import "github.com/gyaneshwarpardhi/scenegraph/internal/node"

// RoleParent links a transform to the transform it is composed with.
const RoleParent = "parent"

// Transform is a linear 4x4 transform, row major.
type Transform struct {
	node.Base
	Matrix [16]float64
}

func NewTransform() *Transform {
	t := &Transform{}
	for i := 0; i < 4; i++ {
		t.Matrix[i*5] = 1
	}
	return t
}

func (t *Transform) ClassName() string { return "Transform" }
func (t *Transform) TypeTag() string { return "Transform" }
func (t *Transform) NewInstance() node.Node { return NewTransform() }
func (t *Transform) ParentID() string { return t.Reference(RoleParent) }
func (t *Transform) SetParentID(id string) { t.SetReference(RoleParent, id) }

func (t *Transform) Copy(src node.Node) {
	s, ok := src.(*Transform)
	if !ok {
		return
	}
	t.CopyBase(&s.Base)
	t.Matrix = s.Matrix
}

func (t *Transform) WriteAttributes() map[string]string {
	return map[string]string{"matrix": formatFloats(t.Matrix[:])}
}

func (t *Transform) ReadAttributes(attrs map[string]string) error {
	r := attrReader{attrs: attrs}
	r.vector("matrix", t.Matrix[:])
	return r.err
}
