package nodes

import (
	"strconv"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// Display holds rendering properties shared by the nodes that point at it.
type Display struct {
	node.Base
	Color          [3]float64
	Opacity        float64
	Visible        bool
	Representation string
}

func NewDisplay() *Display {
	return &Display{Color: [3]float64{0.5, 0.5, 0.5}, Opacity: 1, Visible: true, Representation: "surface"}
}

func (d *Display) ClassName() string { return "Display" }
func (d *Display) TypeTag() string { return "Display" }
func (d *Display) NewInstance() node.Node { return NewDisplay() }

func (d *Display) Copy(src node.Node) {
	s, ok := src.(*Display)
	if !ok {
		return
	}
	d.CopyBase(&s.Base)
	d.Color = s.Color
	d.Opacity = s.Opacity
	d.Visible = s.Visible
	d.Representation = s.Representation
}

func (d *Display) WriteAttributes() map[string]string {
	return map[string]string{
		"color":          formatFloats(d.Color[:]),
		"opacity":        formatFloat(d.Opacity),
		"visible":        strconv.FormatBool(d.Visible),
		"representation": d.Representation,
	}
}

func (d *Display) ReadAttributes(attrs map[string]string) error {
	r := attrReader{attrs: attrs}
	r.vector("color", d.Color[:])
	r.number("opacity", &d.Opacity)
	r.flag("visible", &d.Visible)
	r.text("representation", &d.Representation)
	return r.err
}
