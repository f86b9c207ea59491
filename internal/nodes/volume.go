package nodes

import "github.com/gyaneshwarpardhi/scenegraph/internal/node"

// Volume is a scalar image with a window/level display mapping.
type Volume struct {
	node.Base
	Window  float64
	Level   float64
	Spacing [3]float64
}

func NewVolume() *Volume {
	return &Volume{Window: 256, Level: 128, Spacing: [3]float64{1, 1, 1}}
}

func (v *Volume) ClassName() string { return "Volume" }
func (v *Volume) TypeTag() string { return "Volume" }
func (v *Volume) NewInstance() node.Node { return NewVolume() }

func (v *Volume) Copy(src node.Node) {
	s, ok := src.(*Volume)
	if !ok {
		return
	}
	v.CopyBase(&s.Base)
	v.copyImage(s)
}

func (v *Volume) copyImage(s *Volume) {
	v.Window = s.Window
	v.Level = s.Level
	v.Spacing = s.Spacing
}

func (v *Volume) WriteAttributes() map[string]string {
	return map[string]string{
		"window":  formatFloat(v.Window),
		"level":   formatFloat(v.Level),
		"spacing": formatFloats(v.Spacing[:]),
	}
}

func (v *Volume) ReadAttributes(attrs map[string]string) error {
	r := attrReader{attrs: attrs}
	r.number("window", &v.Window)
	r.number("level", &v.Level)
	r.vector("spacing", v.Spacing[:])
	return r.err
}

// LabelMapVolume is a segmentation volume; it is a Volume for class queries.
type LabelMapVolume struct {
	Volume
	ColorTable string
}

func NewLabelMapVolume() *LabelMapVolume {
	return &LabelMapVolume{Volume: *NewVolume(), ColorTable: "GenericAnatomy"}
}

func (l *LabelMapVolume) ClassName() string { return "LabelMapVolume" }
func (l *LabelMapVolume) TypeTag() string { return "LabelMapVolume" }
func (l *LabelMapVolume) SuperClasses() []string { return []string{"Volume"} }
func (l *LabelMapVolume) NewInstance() node.Node { return NewLabelMapVolume() }

// Copy accepts a plain Volume too, taking only the fields they share.
func (l *LabelMapVolume) Copy(src node.Node) {
	switch s := src.(type) {
	case *LabelMapVolume:
		l.CopyBase(&s.Base)
		l.copyImage(&s.Volume)
		l.ColorTable = s.ColorTable
	case *Volume:
		l.CopyBase(&s.Base)
		l.copyImage(s)
	}
}

func (l *LabelMapVolume) WriteAttributes() map[string]string {
	attrs := l.Volume.WriteAttributes()
	attrs["colorTable"] = l.ColorTable
	return attrs
}

func (l *LabelMapVolume) ReadAttributes(attrs map[string]string) error {
	if err := l.Volume.ReadAttributes(attrs); err != nil {
		return err
	}
	r := attrReader{attrs: attrs}
	r.text("colorTable", &l.ColorTable)
	return r.err
}
