// Package registry maps node type tags to prototypes and default templates.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// ErrUnknownType is returned when no registered prototype matches a lookup.
var ErrUnknownType = errors.New("unknown node type")

// Registration binds a tag to a prototype.
type Registration struct {
	Tag       string
	Prototype node.Node
}

// Registry is owned by one scene. Lookups scan linearly; the catalog is small.
type Registry struct {
	mu        sync.RWMutex
	entries   []Registration
	templates map[string]node.Node // class → template
	logger    *slog.Logger
}

// New creates an empty Registry. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{templates: make(map[string]node.Node), logger: logger}
}

// Register stores proto under tag, or under proto.TypeTag() when tag is
// empty. An existing registration for the tag is replaced with a warning.
func (r *Registry) Register(proto node.Node, tag string) {
	if proto == nil {
		return
	}
	if tag == "" {
		tag = proto.TypeTag()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.Tag == tag {
			r.logger.Warn("duplicate node type registration, replacing",
				"tag", tag, "old_class", e.Prototype.ClassName(), "new_class", proto.ClassName())
			r.entries[i].Prototype = proto
			return
		}
	}
	r.entries = append(r.entries, Registration{Tag: tag, Prototype: proto})
}

// CreateByTypeName returns a fresh node of className, seeded from the
// class's default template when one is set.
func (r *Registry) CreateByTypeName(className string) (node.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Prototype.ClassName() == className {
			return r.instantiate(e.Prototype), nil
		}
	}
	return nil, fmt.Errorf("create %q: %w", className, ErrUnknownType)
}

// CreateByTag is CreateByTypeName keyed by tag.
func (r *Registry) CreateByTag(tag string) (node.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Tag == tag {
			return r.instantiate(e.Prototype), nil
		}
	}
	return nil, fmt.Errorf("create tag %q: %w", tag, ErrUnknownType)
}

func (r *Registry) instantiate(proto node.Node) node.Node {
	n := proto.NewInstance()
	if tmpl, ok := r.templates[proto.ClassName()]; ok {
		n.Copy(tmpl)
		n.SetName("")
	}
	return n
}

// TagForClass returns the tag registered for className.
func (r *Registry) TagForClass(className string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Prototype.ClassName() == className {
			return e.Tag, true
		}
	}
	return "", false
}

// ClassForTag returns the class registered under tag.
func (r *Registry) ClassForTag(tag string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Tag == tag {
			return e.Prototype.ClassName(), true
		}
	}
	return "", false
}

// SetDefaultTemplate seeds new nodes of className from tmpl. The registry
// keeps its own copy.
func (r *Registry) SetDefaultTemplate(className string, tmpl node.Node) {
	if tmpl == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[className] = node.Clone(tmpl)
}

func (r *Registry) ClearDefaultTemplate(className string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.templates, className)
}

// DefaultTemplate returns the template for className, or nil.
func (r *Registry) DefaultTemplate(className string) node.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[className]
}

// Registrations returns a snapshot in registration order.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Registration, len(r.entries))
	copy(out, r.entries)
	return out
}

// Tags returns the registered tags in registration order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Tag
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// CopyTo registers every prototype and template of r into dst.
func (r *Registry) CopyTo(dst *Registry) {
	if dst == nil || dst == r {
		return
	}
	r.mu.RLock()
	entries := make([]Registration, len(r.entries))
	copy(entries, r.entries)
	templates := make(map[string]node.Node, len(r.templates))
	for k, v := range r.templates {
		templates[k] = v
	}
	r.mu.RUnlock()

	for _, e := range entries {
		dst.Register(e.Prototype.NewInstance(), e.Tag)
	}
	for class, t := range templates {
		dst.SetDefaultTemplate(class, t)
	}
}
