// Package undo keeps bounded undo and redo stacks of scene frames.
//
// A frame lists every live node when it was pushed. Entries share the live
// node until the caller names it in SaveStateForUndo, which swaps in a deep
// copy; only nodes about to change pay for a copy.
package undo

import (
	"log/slog"

	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
	"github.com/gyaneshwarpardhi/scenegraph/internal/metrics"
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// Store is the part of the node store a replay needs.
type Store interface {
	Nodes() []node.Node
	GetByID(id string) node.Node
	IsPresent(n node.Node) bool
	Add(n node.Node) (node.Node, error)
	Remove(n node.Node) error
	Overwrite(dst, src node.Node) error
	PurgeDangling() int
	ReferencingNodes(n node.Node) []node.Node
}

// BatchChecker reports whether bulk processing is active.
type BatchChecker interface {
	IsBatchProcessing() bool
}

type frame []node.Node

// Manager is single-writer, like the store it replays into.
type Manager struct {
	st     Store
	states BatchChecker
	logger *slog.Logger

	enabled   bool
	maxDepth  int
	undo      []frame
	redo      []frame
	replaying bool
	unsub     func()
}

// New creates an enabled manager. When bus is non-nil, node notifications
// seen outside a replay clear the redo stack.
func New(st Store, states BatchChecker, bus *event.Bus, maxDepth int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{st: st, states: states, logger: logger, enabled: true, maxDepth: maxDepth}
	if bus != nil {
		m.unsub = bus.Subscribe(m.observe)
	}
	return m
}

func (m *Manager) observe(n event.Notification) {
	switch n.Kind {
	case event.NodeAboutToBeRemoved:
		if !m.replaying {
			m.detachReferencers(n.Node)
		}
	case event.NodeAdded, event.NodeRemoved, event.NodeModified:
		m.Invalidate()
	}
}

// detachReferencers gives every stacked frame its own copy of the live
// nodes whose references the removal of n is about to rewrite.
func (m *Manager) detachReferencers(n node.Node) {
	for _, r := range m.st.ReferencingNodes(n) {
		for _, f := range m.undo {
			f.detach(r)
		}
		for _, f := range m.redo {
			f.detach(r)
		}
	}
}

// Close detaches the manager from the bus.
func (m *Manager) Close() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}

func (m *Manager) Enabled() bool     { return m.enabled }
func (m *Manager) SetEnabled(v bool) { m.enabled = v }
func (m *Manager) Replaying() bool   { return m.replaying }
func (m *Manager) MaxDepth() int     { return m.maxDepth }
func (m *Manager) UndoDepth() int    { return len(m.undo) }
func (m *Manager) RedoDepth() int    { return len(m.redo) }
func (m *Manager) CanUndo() bool     { return m.enabled && len(m.undo) > 0 }
func (m *Manager) CanRedo() bool     { return m.enabled && len(m.redo) > 0 }

// SetMaxDepth bounds the undo stack, evicting the oldest frames if needed.
// Zero or less means unbounded.
func (m *Manager) SetMaxDepth(n int) {
	m.maxDepth = n
	m.trim()
}

// SaveStateForUndo pushes a frame before the caller mutates nodes. It does
// nothing while disabled, replaying or batch processing.
func (m *Manager) SaveStateForUndo(nodes ...node.Node) {
	if !m.enabled || m.replaying || m.states.IsBatchProcessing() {
		return
	}
	m.redo = nil
	f := m.capture()
	for _, n := range nodes {
		if n != nil {
			f.detach(n)
		}
	}
	m.undo = append(m.undo, f)
	m.trim()
	metrics.UndoOps.WithLabelValues("save").Inc()
	metrics.UndoDepth.Set(float64(len(m.undo)))
}

// SaveStateForUndoAll pushes a frame holding a copy of every live node.
func (m *Manager) SaveStateForUndoAll() {
	m.SaveStateForUndo(m.st.Nodes()...)
}

// Undo restores the top undo frame. It reports whether a frame was applied.
func (m *Manager) Undo() bool {
	if !m.CanUndo() {
		return false
	}
	m.undo, m.redo = m.replay(m.undo, m.redo)
	metrics.UndoOps.WithLabelValues("undo").Inc()
	metrics.UndoDepth.Set(float64(len(m.undo)))
	return true
}

// Redo reapplies the top redo frame.
func (m *Manager) Redo() bool {
	if !m.CanRedo() {
		return false
	}
	m.redo, m.undo = m.replay(m.redo, m.undo)
	metrics.UndoOps.WithLabelValues("redo").Inc()
	metrics.UndoDepth.Set(float64(len(m.undo)))
	return true
}

// Invalidate clears the redo stack unless a replay is running.
func (m *Manager) Invalidate() {
	if m.replaying {
		return
	}
	m.redo = nil
}

func (m *Manager) ClearUndoStack() {
	m.undo = nil
	metrics.UndoDepth.Set(0)
}

func (m *Manager) ClearRedoStack() { m.redo = nil }

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.ClearUndoStack()
	m.ClearRedoStack()
}

// replay pops src, pushes the current state onto dst and reconciles the
// live scene with the popped frame by ID.
func (m *Manager) replay(src, dst []frame) ([]frame, []frame) {
	m.st.PurgeDangling()
	m.replaying = true
	defer func() { m.replaying = false }()

	target := src[len(src)-1]
	src = src[:len(src)-1]
	current := m.capture()
	dst = append(dst, current)

	live := make(map[string]node.Node)
	for _, n := range current {
		live[n.ID()] = n
	}
	wanted := make(map[string]struct{}, len(target))

	var adds []node.Node
	for _, t := range target {
		wanted[t.ID()] = struct{}{}
		cur, ok := live[t.ID()]
		switch {
		case !ok:
			adds = append(adds, t)
		case cur != t:
			current.detach(cur)
			if err := m.st.Overwrite(cur, t); err != nil {
				m.logger.Warn("undo: overwrite failed", "id", t.ID(), "err", err)
			}
		}
	}
	for _, t := range adds {
		if _, err := m.st.Add(node.Clone(t)); err != nil {
			m.logger.Warn("undo: re-add failed", "id", t.ID(), "err", err)
		}
	}
	var removals []node.Node
	for _, n := range current {
		if _, ok := wanted[n.ID()]; !ok {
			removals = append(removals, n)
		}
	}
	// Remove refreshes referencers in place, so every stacked frame must
	// hold its own copy of the removed nodes and of whatever points at them.
	for _, n := range removals {
		touched := append([]node.Node{n}, m.st.ReferencingNodes(n)...)
		for _, t := range touched {
			for _, f := range src {
				f.detach(t)
			}
			for _, f := range dst {
				f.detach(t)
			}
		}
	}
	for _, n := range removals {
		// A previous removal may already have taken it out.
		if !m.st.IsPresent(n) {
			continue
		}
		if err := m.st.Remove(n); err != nil {
			m.logger.Warn("undo: remove failed", "id", n.ID(), "err", err)
		}
	}
	m.st.PurgeDangling()
	m.logger.Debug("undo frame applied", "nodes", len(target), "added", len(adds))
	return src, dst
}

// capture lists the live nodes that take part in undo.
func (m *Manager) capture() frame {
	all := m.st.Nodes()
	f := make(frame, 0, len(all))
	for _, n := range all {
		if !node.Excluded(n) {
			f = append(f, n)
		}
	}
	return f
}

// detach replaces the shared entry for n with a deep copy.
func (f frame) detach(n node.Node) {
	if node.Excluded(n) {
		return
	}
	for i, e := range f {
		if e == n {
			f[i] = node.Clone(n)
			return
		}
	}
}

func (m *Manager) trim() {
	if m.maxDepth <= 0 || len(m.undo) <= m.maxDepth {
		return
	}
	drop := len(m.undo) - m.maxDepth
	clear(m.undo[:drop])
	m.undo = m.undo[drop:]
}
