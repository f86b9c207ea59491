package store

import (
	"slices"
	"sort"
	"strings"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// NameMatch selects how GetByName compares names.
type NameMatch int

const (
	MatchExact NameMatch = iota + 1
	// MatchSubstring returns the first node whose name contains the query.
	// Kept for callers that search by partial names; prefer MatchExact.
	MatchSubstring
)

// NodeByID implements node.Resolver.
func (s *Store) NodeByID(id string) node.Node {
	if n, ok := s.byID[id]; ok {
		return n
	}
	return nil
}

// GetByID returns the live node with id, or nil.
func (s *Store) GetByID(id string) node.Node { return s.NodeByID(id) }

func (s *Store) HasID(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Store) HasName(name string) bool {
	for _, n := range s.nodes {
		if n.Name() == name {
			return true
		}
	}
	return false
}

// IsPresent reports whether n itself is live in this store.
func (s *Store) IsPresent(n node.Node) bool {
	if n == nil || n.Lifecycle() != node.Live {
		return false
	}
	return s.byID[n.ID()] == n
}

// GetByName returns the first live node whose name matches, or nil.
func (s *Store) GetByName(name string, match NameMatch) node.Node {
	for _, n := range s.nodes {
		switch match {
		case MatchExact:
			if n.Name() == name {
				return n
			}
		case MatchSubstring:
			if strings.Contains(n.Name(), name) {
				return n
			}
		}
	}
	return nil
}

// GetNodesByName returns every live node named exactly name.
func (s *Store) GetNodesByName(name string) []node.Node {
	return s.filter(func(n node.Node) bool { return n.Name() == name })
}

// GetAllByClass returns the live nodes that are a className, in order.
func (s *Store) GetAllByClass(className string) []node.Node {
	return s.filter(func(n node.Node) bool { return node.IsA(n, className) })
}

// GetNodesByClassByName returns the nodes that are a className and named name.
func (s *Store) GetNodesByClassByName(className, name string) []node.Node {
	return s.filter(func(n node.Node) bool {
		return node.IsA(n, className) && n.Name() == name
	})
}

// GetNthByClass returns the i-th live node that is a className, or nil.
func (s *Store) GetNthByClass(i int, className string) node.Node {
	if i < 0 {
		return nil
	}
	for _, n := range s.nodes {
		if !node.IsA(n, className) {
			continue
		}
		if i == 0 {
			return n
		}
		i--
	}
	return nil
}

// GetNthNode returns the i-th live node, or nil.
func (s *Store) GetNthNode(i int) node.Node {
	if i < 0 || i >= len(s.nodes) {
		return nil
	}
	return s.nodes[i]
}

// GetFirstNode returns the first node matching both name and className.
// An empty argument matches anything.
func (s *Store) GetFirstNode(name, className string) node.Node {
	for _, n := range s.nodes {
		if name != "" && n.Name() != name {
			continue
		}
		if className != "" && !node.IsA(n, className) {
			continue
		}
		return n
	}
	return nil
}

// GetSingleton returns the live node that is a className with tag, or nil.
func (s *Store) GetSingleton(className, tag string) node.Node {
	if tag == "" {
		return nil
	}
	for _, n := range s.nodes {
		if n.SingletonTag() == tag && node.IsA(n, className) {
			return n
		}
	}
	return nil
}

// singleton finds the merge target for an incoming singleton. Unlike
// GetSingleton it requires the exact class, so a Volume never merges into
// a LabelMapVolume.
func (s *Store) singleton(className, tag string) node.Node {
	for _, n := range s.nodes {
		if n.SingletonTag() == tag && n.ClassName() == className {
			return n
		}
	}
	return nil
}

// Nodes returns the live nodes in order.
func (s *Store) Nodes() []node.Node { return slices.Clone(s.nodes) }

func (s *Store) Len() int { return len(s.nodes) }

// NodeClasses returns the distinct class names of live nodes, sorted.
func (s *Store) NodeClasses() []string {
	seen := make(map[string]struct{})
	for _, n := range s.nodes {
		seen[n.ClassName()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (s *Store) NumberOfNodesByClass(className string) int {
	count := 0
	for _, n := range s.nodes {
		if node.IsA(n, className) {
			count++
		}
	}
	return count
}

// ChangedID follows the rename log from oldID to the ID now in use.
// It returns "" if oldID was never renamed.
func (s *Store) ChangedID(oldID string) string {
	cur, ok := s.renames[oldID]
	if !ok {
		return ""
	}
	for i := 0; i < len(s.renames); i++ {
		next, ok := s.renames[cur]
		if !ok || next == cur {
			break
		}
		cur = next
	}
	return cur
}

// ReferencingNodes returns the live nodes that reference n.
func (s *Store) ReferencingNodes(n node.Node) []node.Node {
	if n == nil {
		return nil
	}
	return s.resolve(s.refs.ReferencingIDs(n.ID()))
}

// ReferencedClosure returns n followed by every live node reachable from
// it through references.
func (s *Store) ReferencedClosure(n node.Node) []node.Node {
	if !s.IsPresent(n) {
		return nil
	}
	return append([]node.Node{n}, s.resolve(s.refs.Closure(n.ID()))...)
}

// ReferencingIDs exposes the index for one referenced ID.
func (s *Store) ReferencingIDs(id string) []string { return s.refs.ReferencingIDs(id) }

// EdgeCount returns the number of indexed reference edges.
func (s *Store) EdgeCount() int { return s.refs.Len() }

func (s *Store) resolve(ids []string) []node.Node {
	out := make([]node.Node, 0, len(ids))
	for _, id := range ids {
		if n := s.byID[id]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) filter(keep func(node.Node) bool) []node.Node {
	var out []node.Node
	for _, n := range s.nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
