// Package sceneio reads and writes scene documents as YAML.
package sceneio

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
	"github.com/gyaneshwarpardhi/scenegraph/internal/registry"
)

// Version is written into every document.
const Version = "v1"

// Document is the top-level YAML structure.
type Document struct {
	Version string       `yaml:"version"`
	Nodes   []NodeRecord `yaml:"nodes"`
}

// NodeRecord is one serialized node.
type NodeRecord struct {
	Tag       string            `json:"tag" yaml:"tag"`
	ID        string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
	Singleton string            `json:"singleton,omitempty" yaml:"singleton,omitempty"`
	Hidden    bool              `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Refs      []node.Reference  `json:"refs,omitempty" yaml:"refs,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Codec builds nodes through a registry.
type Codec struct {
	reg *registry.Registry
}

func NewCodec(reg *registry.Registry) *Codec { return &Codec{reg: reg} }

// Parse decodes a whole document into unintegrated nodes in document
// order. Nothing is returned unless every record decodes.
func (c *Codec) Parse(r io.Reader) ([]node.Node, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	if doc.Version != "" && doc.Version != Version {
		return nil, fmt.Errorf("unsupported scene version %q", doc.Version)
	}
	out := make([]node.Node, 0, len(doc.Nodes))
	for i, rec := range doc.Nodes {
		n, err := c.Decode(rec)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Decode builds one unintegrated node from rec.
func (c *Codec) Decode(rec NodeRecord) (node.Node, error) {
	if rec.Tag == "" {
		return nil, errors.New("tag is required")
	}
	n, err := c.reg.CreateByTag(rec.Tag)
	if err != nil {
		return nil, err
	}
	b := n.Core()
	b.SetID(rec.ID)
	b.SetName(rec.Name)
	if rec.Singleton != "" {
		b.SetSingletonTag(rec.Singleton)
	}
	b.SetHideFromEditors(rec.Hidden)
	for _, ref := range rec.Refs {
		b.SetReference(ref.Role, ref.ID)
	}
	if len(rec.Attrs) > 0 {
		p, ok := n.(node.Persistable)
		if !ok {
			return nil, fmt.Errorf("%s %s: type has no attributes", rec.Tag, rec.ID)
		}
		if err := p.ReadAttributes(rec.Attrs); err != nil {
			return nil, fmt.Errorf("%s %s: %w", rec.Tag, rec.ID, err)
		}
	}
	return n, nil
}

// Write encodes nodes in order. Callers filter out nodes that are not
// saved with the scene.
func (c *Codec) Write(w io.Writer, nodes []node.Node) error {
	doc := Document{Version: Version, Nodes: make([]NodeRecord, 0, len(nodes))}
	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, c.Record(n))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	return enc.Close()
}

// Record describes n in document form.
func (c *Codec) Record(n node.Node) NodeRecord {
	tag := n.TypeTag()
	if t, ok := c.reg.TagForClass(n.ClassName()); ok {
		tag = t
	}
	return NodeRecord{
		Tag:       tag,
		ID:        n.ID(),
		Name:      n.Name(),
		Singleton: n.SingletonTag(),
		Hidden:    n.Core().HideFromEditors(),
		Refs:      n.Core().References(),
		Attrs:     node.Attributes(n),
	}
}
