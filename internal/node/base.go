package node

import "sort"

// Reference is one stored pointer-by-ID to another node.
type Reference struct {
	Role string `json:"role" yaml:"role"`
	ID   string `json:"id" yaml:"id"`
}

// Base carries the fields every node shares. Concrete node types embed it.
// The zero value is an unintegrated node that is added to and saved with
// the scene.
type Base struct {
	id           string
	name         string
	singletonTag string
	skipScene    bool
	skipSave     bool
	hidden       bool
	refs         []Reference
	lifecycle    Lifecycle
}

func (b *Base) Core() *Base { return b }

func (b *Base) ID() string          { return b.id }
func (b *Base) SetID(id string)     { b.id = id }
func (b *Base) Name() string        { return b.name }
func (b *Base) SetName(name string) { b.name = name }

func (b *Base) SingletonTag() string       { return b.singletonTag }
func (b *Base) SetSingletonTag(tag string) { b.singletonTag = tag }

func (b *Base) AddToScene() bool        { return !b.skipScene }
func (b *Base) SetAddToScene(v bool)    { b.skipScene = !v }
func (b *Base) SaveWithScene() bool     { return !b.skipSave }
func (b *Base) SetSaveWithScene(v bool) { b.skipSave = !v }
func (b *Base) HideFromEditors() bool   { return b.hidden }
func (b *Base) SetHideFromEditors(v bool) {
	b.hidden = v
}

func (b *Base) Lifecycle() Lifecycle     { return b.lifecycle }
func (b *Base) SetLifecycle(l Lifecycle) { b.lifecycle = l }

// Reference returns the ID stored under role, or "".
func (b *Base) Reference(role string) string {
	for _, r := range b.refs {
		if r.Role == role {
			return r.ID
		}
	}
	return ""
}

// SetReference stores id under role. An empty id clears the role.
func (b *Base) SetReference(role, id string) {
	for i, r := range b.refs {
		if r.Role != role {
			continue
		}
		if id == "" {
			b.refs = append(b.refs[:i], b.refs[i+1:]...)
		} else {
			b.refs[i].ID = id
		}
		return
	}
	if id != "" {
		b.refs = append(b.refs, Reference{Role: role, ID: id})
	}
}

// References returns a copy of the stored references in insertion order.
func (b *Base) References() []Reference {
	out := make([]Reference, len(b.refs))
	copy(out, b.refs)
	return out
}

// ReferencedIDs returns the distinct referenced IDs, sorted.
func (b *Base) ReferencedIDs() []string {
	if len(b.refs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(b.refs))
	out := make([]string, 0, len(b.refs))
	for _, r := range b.refs {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r.ID)
	}
	sort.Strings(out)
	return out
}

func (b *Base) UpdateReferenceID(oldID, newID string) {
	for i := range b.refs {
		if b.refs[i].ID == oldID {
			b.refs[i].ID = newID
		}
	}
}

// UpdateReferences drops references whose target is not live in r.
func (b *Base) UpdateReferences(r Resolver) {
	kept := b.refs[:0]
	for _, ref := range b.refs {
		if r.NodeByID(ref.ID) != nil {
			kept = append(kept, ref)
		}
	}
	b.refs = kept
}

// CopyBase copies src's shared content into b. The ID and lifecycle are
// left alone; an empty source name does not clear b's name.
func (b *Base) CopyBase(src *Base) {
	if src.name != "" {
		b.name = src.name
	}
	b.singletonTag = src.singletonTag
	b.skipScene = src.skipScene
	b.skipSave = src.skipSave
	b.hidden = src.hidden
	b.refs = append(b.refs[:0:0], src.refs...)
}
