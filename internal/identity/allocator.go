// Package identity mints collision-free node IDs and display names.
package identity

import (
	"strconv"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// Lookup reports which IDs and names are live.
type Lookup interface {
	HasID(id string) bool
	HasName(name string) bool
}

// Allocator remembers the last suffix issued per base so freed suffixes
// are never reissued within its lifetime.
type Allocator struct {
	live     Lookup
	lastID   map[string]int
	lastName map[string]int
	reserved map[string]struct{}
}

func New(live Lookup) *Allocator {
	a := &Allocator{live: live}
	a.Reset()
	return a
}

// BuildID joins base and index; index 0 is the bare base.
func BuildID(base string, index int) string {
	if index == 0 {
		return base
	}
	return base + strconv.Itoa(index)
}

// BuildName joins base and index as base_N; index 0 is the bare base.
func BuildName(base string, index int) string {
	if index == 0 {
		return base
	}
	return base + "_" + strconv.Itoa(index)
}

// SingletonID is the fixed ID of a singleton node.
func SingletonID(className, tag string) string { return className + tag }

// GenerateUniqueID returns the first ID for base that is neither live nor
// reserved, probing upward from the last index issued for base.
func (a *Allocator) GenerateUniqueID(base string) string {
	idx := next(a.lastID, base)
	for {
		id := BuildID(base, idx)
		if !a.live.HasID(id) && !a.IsReserved(id) {
			a.lastID[base] = idx
			return id
		}
		idx++
	}
}

// GenerateUniqueIDFor returns an ID for n. Singleton nodes get their
// class+tag ID unless it is live or reserved, in which case it is used as
// the base for a suffixed ID.
func (a *Allocator) GenerateUniqueIDFor(n node.Node) string {
	if tag := n.SingletonTag(); tag != "" {
		id := SingletonID(n.ClassName(), tag)
		if a.live.HasID(id) || a.IsReserved(id) {
			// Another node owns or is about to own the bare ID.
			return a.GenerateUniqueID(id)
		}
		return id
	}
	return a.GenerateUniqueID(n.ClassName())
}

// GenerateUniqueName returns the first unused display name for base.
func (a *Allocator) GenerateUniqueName(base string) string {
	idx := next(a.lastName, base)
	for {
		name := BuildName(base, idx)
		if !a.live.HasName(name) {
			a.lastName[base] = idx
			return name
		}
		idx++
	}
}

// GenerateUniqueNameFor uses n's type tag as the base.
func (a *Allocator) GenerateUniqueNameFor(n node.Node) string {
	return a.GenerateUniqueName(n.TypeTag())
}

func next(last map[string]int, base string) int {
	if i, ok := last[base]; ok {
		return i + 1
	}
	return 0
}

// Reserve marks id unavailable until ClearReservations.
func (a *Allocator) Reserve(id string) {
	if id != "" {
		a.reserved[id] = struct{}{}
	}
}

func (a *Allocator) IsReserved(id string) bool {
	_, ok := a.reserved[id]
	return ok
}

func (a *Allocator) ClearReservations() {
	a.reserved = make(map[string]struct{})
}

// Reset forgets every issued suffix and reservation.
func (a *Allocator) Reset() {
	a.lastID = make(map[string]int)
	a.lastName = make(map[string]int)
	a.reserved = make(map[string]struct{})
}
