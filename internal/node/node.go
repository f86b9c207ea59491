// Package node defines the capability set every scene record implements.
//
// Nodes never hold pointers to sibling nodes. A node that depends on
// another stores that node's ID and resolves it through a Resolver when
// the scene asks it to refresh.
package node

// Lifecycle is the integration state of a node.
type Lifecycle int

const (
	Unintegrated Lifecycle = iota // constructed, not owned by a scene
	Live                          // owned by a scene
	Removed                       // removed from a scene; terminal
)

func (l Lifecycle) String() string {
	switch l {
	case Unintegrated:
		return "unintegrated"
	case Live:
		return "live"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Resolver looks up live nodes by ID.
type Resolver interface {
	NodeByID(id string) Node
}

// Identifiable exposes identity and type information.
type Identifiable interface {
	ID() string
	SetID(id string)
	Name() string
	SetName(name string)
	// ClassName is the concrete type, used for ID generation and class queries.
	ClassName() string
	// TypeTag is the registry tag, used for default names and serialization.
	TypeTag() string
	// SingletonTag is empty for ordinary nodes.
	SingletonTag() string
}

// Copyable manufactures and content-copies nodes of the same type.
type Copyable interface {
	// NewInstance returns a fresh, unintegrated node of the same type.
	NewInstance() Node
	// Copy overwrites the receiver's content with src's, keeping the
	// receiver's ID and lifecycle.
	Copy(src Node)
}

// ReferenceAware exposes the IDs a node stores for other nodes.
type ReferenceAware interface {
	ReferencedIDs() []string
	// UpdateReferenceID rewrites every stored reference to oldID.
	UpdateReferenceID(oldID, newID string)
	// UpdateReferences drops or refreshes references against r.
	UpdateReferences(r Resolver)
}

// Node is the minimum contract of a scene record.
type Node interface {
	Identifiable
	Copyable
	ReferenceAware

	AddToScene() bool
	SaveWithScene() bool
	Lifecycle() Lifecycle
	SetLifecycle(l Lifecycle)

	// Core returns the embedded Base.
	Core() *Base
}

// Persistable nodes carry type-specific attributes through serialization.
type Persistable interface {
	WriteAttributes() map[string]string
	ReadAttributes(attrs map[string]string) error
}

// Hierarchical nodes report the classes they specialize, nearest first.
type Hierarchical interface {
	SuperClasses() []string
}

// UndoExcluded nodes are never captured in undo frames.
type UndoExcluded interface {
	ExcludeFromUndo() bool
}

// IsA reports whether n is of class className or specializes it.
func IsA(n Node, className string) bool {
	if n == nil {
		return false
	}
	if n.ClassName() == className {
		return true
	}
	if h, ok := n.(Hierarchical); ok {
		for _, c := range h.SuperClasses() {
			if c == className {
				return true
			}
		}
	}
	return false
}

// Clone returns an unintegrated deep copy of n that shares its ID.
func Clone(n Node) Node {
	c := n.NewInstance()
	c.Copy(n)
	c.SetID(n.ID())
	return c
}

// Excluded reports whether n opts out of undo capture.
func Excluded(n Node) bool {
	u, ok := n.(UndoExcluded)
	return ok && u.ExcludeFromUndo()
}

// Attributes returns n's type-specific attributes, or nil.
func Attributes(n Node) map[string]string {
	if p, ok := n.(Persistable); ok {
		return p.WriteAttributes()
	}
	return nil
}
