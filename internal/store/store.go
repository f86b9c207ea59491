// Package store owns the ordered collection of live scene nodes and keeps
// IDs, singletons and the reference index consistent as nodes come and go.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
	"github.com/gyaneshwarpardhi/scenegraph/internal/identity"
	"github.com/gyaneshwarpardhi/scenegraph/internal/metrics"
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
	"github.com/gyaneshwarpardhi/scenegraph/internal/refindex"
	"github.com/gyaneshwarpardhi/scenegraph/internal/registry"
	"github.com/gyaneshwarpardhi/scenegraph/internal/state"
)

var (
	ErrNilNode        = errors.New("nil node")
	ErrNodeNotPresent = errors.New("node not present in scene")
	ErrAlreadyLive    = errors.New("node already in a scene")
	ErrRemoved        = errors.New("node was removed and cannot be re-added")
	ErrReentrant      = errors.New("scene mutation from within a notification")
)

// Store is single-writer. Callers serialize access; see the engine package.
type Store struct {
	reg    *registry.Registry
	ids    *identity.Allocator
	refs   *refindex.Index
	bus    *event.Bus
	states *state.Machine
	logger *slog.Logger

	nodes    []node.Node
	byID     map[string]node.Node
	renames  map[string]string    // old ID → new ID
	defaults map[string]node.Node // class → default content

	dirty   bool
	version uint64
}

// New wires a store to its collaborators. Deferred reference cleanup runs
// when the last batch state ends.
func New(reg *registry.Registry, bus *event.Bus, states *state.Machine, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		reg:      reg,
		refs:     refindex.New(),
		bus:      bus,
		states:   states,
		logger:   logger,
		byID:     make(map[string]node.Node),
		renames:  make(map[string]string),
		defaults: make(map[string]node.Node),
	}
	s.ids = identity.New(s)
	states.OnBatchEnd(s.reconcile)
	return s
}

func (s *Store) Allocator() *identity.Allocator { return s.ids }
func (s *Store) Registry() *registry.Registry   { return s.reg }

// Version increases on every mutation.
func (s *Store) Version() uint64 { return s.version }

// Add integrates n and returns the live node that now holds its content:
// n itself, or the existing singleton n was merged into. A node that does
// not want to be added yields (nil, nil).
func (s *Store) Add(n node.Node) (node.Node, error) {
	return s.add(n, nil, false)
}

// InsertBefore integrates n ahead of anchor, appending when anchor is not live.
func (s *Store) InsertBefore(anchor, n node.Node) (node.Node, error) {
	return s.add(n, anchor, false)
}

// InsertAfter integrates n behind anchor, appending when anchor is not live.
func (s *Store) InsertAfter(anchor, n node.Node) (node.Node, error) {
	return s.add(n, anchor, true)
}

func (s *Store) add(n, anchor node.Node, after bool) (node.Node, error) {
	if n == nil {
		return nil, ErrNilNode
	}
	if !n.AddToScene() {
		return nil, nil
	}
	if err := s.checkReentrant("add", n); err != nil {
		return nil, err
	}
	switch n.Lifecycle() {
	case node.Live:
		return nil, fmt.Errorf("add %s: %w", n.ID(), ErrAlreadyLive)
	case node.Removed:
		return nil, fmt.Errorf("add %s: %w", n.ID(), ErrRemoved)
	}

	if tag := n.SingletonTag(); tag != "" {
		if existing := s.singleton(n.ClassName(), tag); existing != nil {
			s.mergeSingleton(existing, n)
			return existing, nil
		}
	}

	s.assignIdentity(n)
	s.emit(event.NodeAboutToBeAdded, n)

	pos := len(s.nodes)
	if anchor != nil {
		if i := s.indexOf(anchor); i >= 0 {
			pos = i
			if after {
				pos++
			}
		}
	}
	s.nodes = slices.Insert(s.nodes, pos, n)
	s.byID[n.ID()] = n
	n.SetLifecycle(node.Live)
	s.refs.SetReferences(n.ID(), n.ReferencedIDs())
	s.touch()

	metrics.NodesAdded.WithLabelValues(n.ClassName()).Inc()
	s.emit(event.NodeAdded, n)
	return n, nil
}

// assignIdentity gives n a fresh ID when it has none or its ID is taken,
// and a fresh name when it has none.
func (s *Store) assignIdentity(n node.Node) {
	oldID := n.ID()
	if oldID == "" || s.HasID(oldID) {
		// A singleton whose class+tag ID is held by a plain node, or reserved
		// by an incoming one, gets a suffix rather than stealing that ID.
		newID := s.ids.GenerateUniqueIDFor(n)
		n.SetID(newID)
		if oldID != "" {
			s.recordRename(oldID, newID)
		}
	}
	if n.Name() == "" {
		n.SetName(s.ids.GenerateUniqueNameFor(n))
	}
}

func (s *Store) mergeSingleton(existing, incoming node.Node) {
	oldID := incoming.ID()
	tag := existing.SingletonTag()
	existing.Copy(incoming)
	existing.Core().SetSingletonTag(tag)
	if oldID != "" && oldID != existing.ID() {
		s.recordRename(oldID, existing.ID())
	}
	s.refs.SetReferences(existing.ID(), existing.ReferencedIDs())
	s.touch()
	metrics.SingletonMerges.Inc()
	s.logger.Debug("singleton merged", "id", existing.ID(), "tag", tag, "incoming_id", oldID)
	s.emit(event.NodeModified, existing)
}

func (s *Store) recordRename(oldID, newID string) {
	s.renames[oldID] = newID
	metrics.IDRenames.Inc()
}

// Remove detaches a live node. Outside batch processing the nodes that
// referenced it refresh their references immediately; inside, the refresh
// is deferred to the end of the batch.
func (s *Store) Remove(n node.Node) error {
	if n == nil {
		return ErrNilNode
	}
	if err := s.checkReentrant("remove", n); err != nil {
		return err
	}
	if !s.IsPresent(n) {
		s.logger.Warn("remove of node not in scene", "id", n.ID(), "lifecycle", n.Lifecycle().String())
		return fmt.Errorf("remove %s: %w", n.ID(), ErrNodeNotPresent)
	}

	s.emit(event.NodeAboutToBeRemoved, n)
	id := n.ID()
	s.nodes = slices.DeleteFunc(s.nodes, func(c node.Node) bool { return c == n })
	delete(s.byID, id)
	n.SetLifecycle(node.Removed)
	s.touch()
	metrics.NodesRemoved.WithLabelValues(n.ClassName()).Inc()
	s.emit(event.NodeRemoved, n)

	if s.states.IsBatchProcessing() {
		s.dirty = true
		return nil
	}
	s.refs.RemoveReferencing(id)
	for _, refID := range s.refs.ReferencingIDs(id) {
		if r := s.byID[refID]; r != nil {
			r.UpdateReferences(s)
			s.Reindex(r)
		}
	}
	s.purge()
	return nil
}

// Overwrite copies src's content into the live node dst, keeping dst's ID,
// and notifies observers.
func (s *Store) Overwrite(dst, src node.Node) error {
	if !s.IsPresent(dst) {
		return fmt.Errorf("overwrite %s: %w", dst.ID(), ErrNodeNotPresent)
	}
	if err := s.checkReentrant("overwrite", dst); err != nil {
		return err
	}
	id := dst.ID()
	dst.Copy(src)
	dst.SetID(id)
	s.Reindex(dst)
	s.touch()
	s.emit(event.NodeModified, dst)
	return nil
}

// Reindex refreshes the outbound edges of a live node after its stored
// references changed.
func (s *Store) Reindex(n node.Node) {
	if !s.IsPresent(n) {
		return
	}
	s.refs.SetReferences(n.ID(), n.ReferencedIDs())
}

// PurgeDangling drops edges whose endpoints are no longer live.
func (s *Store) PurgeDangling() int { return s.purge() }

func (s *Store) purge() int {
	n := s.refs.PurgeDangling(s.HasID)
	if n > 0 {
		metrics.DanglingEdgesPurged.Add(float64(n))
	}
	return n
}

// reconcile runs the cleanup deferred by removals during a batch.
func (s *Store) reconcile() {
	if !s.dirty {
		return
	}
	s.dirty = false
	for _, n := range s.nodes {
		n.UpdateReferences(s)
		s.refs.SetReferences(n.ID(), n.ReferencedIDs())
	}
	purged := s.purge()
	s.logger.Debug("batch reconciled", "nodes", len(s.nodes), "edges_purged", purged)
}

// PropagateRename moves references from oldID to newID for the live nodes
// accept admits, and lets each of them rewrite its stored ID.
func (s *Store) PropagateRename(oldID, newID string, accept func(id string) bool) []string {
	return s.refs.RenamePropagate(oldID, newID, accept, func(id string) {
		if r := s.byID[id]; r != nil {
			r.UpdateReferenceID(oldID, newID)
		}
	})
}

// Clear removes every node, or every non-singleton node when
// keepSingletons is set, and forgets issued IDs and renames.
func (s *Store) Clear(keepSingletons bool) {
	victims := make([]node.Node, 0, len(s.nodes))
	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		if keepSingletons && n.SingletonTag() != "" {
			continue
		}
		victims = append(victims, n)
	}
	for _, n := range victims {
		if err := s.Remove(n); err != nil {
			s.logger.Warn("clear: remove failed", "id", n.ID(), "err", err)
		}
	}
	if !keepSingletons {
		s.refs.Clear()
	}
	s.ids.Reset()
	clear(s.renames)
	s.touch()
}

// RegisterDefaultNode stores a copy of n as the default content for its class.
func (s *Store) RegisterDefaultNode(n node.Node) {
	if n == nil {
		return
	}
	s.defaults[n.ClassName()] = node.Clone(n)
}

// DefaultNode returns the default content registered for className, or nil.
func (s *Store) DefaultNode(className string) node.Node {
	return s.defaults[className]
}

// Reset restores n's content from its class default, then the registry
// template, then a fresh instance. ID, name and singleton tag survive.
func (s *Store) Reset(n node.Node) error {
	if n == nil {
		return ErrNilNode
	}
	src := s.defaults[n.ClassName()]
	if src == nil && s.reg != nil {
		src = s.reg.DefaultTemplate(n.ClassName())
	}
	if src == nil {
		src = n.NewInstance()
	}
	name, tag := n.Name(), n.SingletonTag()
	if !s.IsPresent(n) {
		n.Copy(src)
		n.SetName(name)
		n.Core().SetSingletonTag(tag)
		return nil
	}
	id := n.ID()
	n.Copy(src)
	n.SetID(id)
	n.SetName(name)
	n.Core().SetSingletonTag(tag)
	s.Reindex(n)
	s.touch()
	s.emit(event.NodeModified, n)
	return nil
}

// ResetNodes resets every live node.
func (s *Store) ResetNodes() {
	for _, n := range s.Nodes() {
		_ = s.Reset(n)
	}
}

func (s *Store) checkReentrant(op string, n node.Node) error {
	if s.bus != nil && s.bus.Dispatching() {
		s.logger.Warn("rejected mutation during notification", "op", op, "id", n.ID())
		return fmt.Errorf("%s %s: %w", op, n.ID(), ErrReentrant)
	}
	return nil
}

func (s *Store) touch() {
	s.version++
	metrics.LiveNodes.Set(float64(len(s.nodes)))
}

func (s *Store) emit(k event.Kind, n node.Node) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(event.Notification{Kind: k, Node: n})
}

func (s *Store) indexOf(n node.Node) int {
	return slices.IndexFunc(s.nodes, func(c node.Node) bool { return c == n })
}
