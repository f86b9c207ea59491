// Package refindex keeps the referenced → referencing edge index between
// scene nodes. It is derived from node content and can always be rebuilt.
package refindex

import "sort"

type set map[string]struct{}

// Index holds an inverted index (referenced → referencing) and the matching
// forward index (referencing → referenced). Not safe for concurrent use.
type Index struct {
	inverted map[string]set
	forward  map[string]set
}

func New() *Index {
	return &Index{inverted: make(map[string]set), forward: make(map[string]set)}
}

// AddEdge records that referencingID stores referencedID. Empty IDs are ignored.
func (x *Index) AddEdge(referencedID, referencingID string) {
	if referencedID == "" || referencingID == "" {
		return
	}
	add(x.inverted, referencedID, referencingID)
	add(x.forward, referencingID, referencedID)
}

// RemoveEdge drops one edge. Missing edges and empty IDs are ignored.
func (x *Index) RemoveEdge(referencedID, referencingID string) {
	if referencedID == "" || referencingID == "" {
		return
	}
	del(x.inverted, referencedID, referencingID)
	del(x.forward, referencingID, referencedID)
}

func (x *Index) HasEdge(referencedID, referencingID string) bool {
	_, ok := x.inverted[referencedID][referencingID]
	return ok
}

// ReferencingIDs returns the IDs that reference referencedID, sorted.
func (x *Index) ReferencingIDs(referencedID string) []string {
	return sorted(x.inverted[referencedID])
}

// ReferencedIDs returns the IDs referencingID references, sorted.
func (x *Index) ReferencedIDs(referencingID string) []string {
	return sorted(x.forward[referencingID])
}

// SetReferences replaces every outbound edge of referencingID with refs.
func (x *Index) SetReferences(referencingID string, refs []string) {
	x.RemoveReferencing(referencingID)
	for _, r := range refs {
		x.AddEdge(r, referencingID)
	}
}

// RemoveReferencing drops every outbound edge of referencingID.
func (x *Index) RemoveReferencing(referencingID string) {
	for target := range x.forward[referencingID] {
		del(x.inverted, target, referencingID)
	}
	delete(x.forward, referencingID)
}

// RenamePropagate re-keys edges pointing at oldID to newID. Only edges
// whose referencing ID passes accept are moved; a nil accept moves all.
// update is called with each moved referencing ID so that node can rewrite
// its stored reference. It returns the moved referencing IDs, sorted.
func (x *Index) RenamePropagate(oldID, newID string, accept func(referencingID string) bool, update func(referencingID string)) []string {
	if oldID == "" || newID == "" || oldID == newID {
		return nil
	}
	var moved []string
	for _, src := range sorted(x.inverted[oldID]) {
		if accept != nil && !accept(src) {
			continue
		}
		x.RemoveEdge(oldID, src)
		x.AddEdge(newID, src)
		moved = append(moved, src)
	}
	if update != nil {
		for _, src := range moved {
			update(src)
		}
	}
	return moved
}

// PurgeDangling removes edges whose endpoints are not live and returns how
// many were removed.
func (x *Index) PurgeDangling(live func(id string) bool) int {
	removed := 0
	for target, sources := range x.inverted {
		for src := range sources {
			if live(target) && live(src) {
				continue
			}
			x.RemoveEdge(target, src)
			removed++
		}
	}
	return removed
}

// Closure returns the IDs reachable from id through outbound edges,
// excluding id, in breadth-first order.
func (x *Index) Closure(id string) []string {
	seen := set{id: {}}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range sorted(x.forward[cur]) {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

// Len returns the number of edges.
func (x *Index) Len() int {
	n := 0
	for _, s := range x.inverted {
		n += len(s)
	}
	return n
}

func (x *Index) Clear() {
	x.inverted = make(map[string]set)
	x.forward = make(map[string]set)
}

func add(m map[string]set, k, v string) {
	s, ok := m[k]
	if !ok {
		s = make(set)
		m[k] = s
	}
	s[v] = struct{}{}
}

func del(m map[string]set, k, v string) {
	s, ok := m[k]
	if !ok {
		return
	}
	delete(s, v)
	if len(s) == 0 {
		delete(m, k)
	}
}

func sorted(s set) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
