// Package scene composes the node store, undo stacks and state machine
// into one scene that callers drive.
package scene

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/scenegraph/internal/config"
	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
	"github.com/gyaneshwarpardhi/scenegraph/internal/nodes"
	"github.com/gyaneshwarpardhi/scenegraph/internal/query"
	"github.com/gyaneshwarpardhi/scenegraph/internal/registry"
	"github.com/gyaneshwarpardhi/scenegraph/internal/state"
	"github.com/gyaneshwarpardhi/scenegraph/internal/store"
	"github.com/gyaneshwarpardhi/scenegraph/internal/undo"
)

// Scene is single-writer. The embedded Store provides node operations and
// read queries.
type Scene struct {
	*store.Store

	id     string
	logger *slog.Logger
	reg    *registry.Registry
	bus    *event.Bus
	states *state.Machine
	undo   *undo.Manager

	readVersion uint64
}

// New creates an empty scene with the node catalog registered.
func New(conf config.UndoConf, logger *slog.Logger) *Scene {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("scene", id)

	bus := event.NewBus()
	states := state.New(bus, logger)
	reg := registry.New(logger)
	nodes.RegisterAll(reg)
	st := store.New(reg, bus, states, logger)

	s := &Scene{
		Store:  st,
		id:     id,
		logger: logger,
		reg:    reg,
		bus:    bus,
		states: states,
		undo:   undo.New(st, states, bus, conf.MaxDepth, logger),
	}
	s.undo.SetEnabled(!conf.Disabled)
	return s
}

func (s *Scene) ID() string                   { return s.id }
func (s *Scene) Logger() *slog.Logger         { return s.logger }
func (s *Scene) Registry() *registry.Registry { return s.reg }

// Observe subscribes h to every notification the scene emits. Handlers
// must not mutate the scene.
func (s *Scene) Observe(h event.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(h)
}

// CreateNodeByClass returns a new unintegrated node of className.
func (s *Scene) CreateNodeByClass(className string) (node.Node, error) {
	return s.reg.CreateByTypeName(className)
}

// AddNewNodeByClass creates a node of className, names it and adds it.
func (s *Scene) AddNewNodeByClass(className, name string) (node.Node, error) {
	n, err := s.reg.CreateByTypeName(className)
	if err != nil {
		return nil, err
	}
	n.SetName(name)
	return s.Add(n)
}

// CopyNode adds a new node whose content is copied from n.
func (s *Scene) CopyNode(n node.Node) (node.Node, error) {
	if n == nil {
		return nil, store.ErrNilNode
	}
	c := n.NewInstance()
	c.Copy(n)
	return s.Add(c)
}

// SetReference stores id under role on a live node and reindexes it.
func (s *Scene) SetReference(n node.Node, role, id string) error {
	if !s.IsPresent(n) {
		return fmt.Errorf("set reference on %s: %w", n.ID(), store.ErrNodeNotPresent)
	}
	n.Core().SetReference(role, id)
	s.Reindex(n)
	return nil
}

// Query returns the live nodes matching a filter expression.
func (s *Scene) Query(expression string) ([]node.Node, error) {
	f, err := query.Compile(expression)
	if err != nil {
		return nil, err
	}
	return f.Select(s.Nodes())
}

// ModifiedSinceRead reports whether the scene changed after the last
// import, connect, commit or bootstrap.
func (s *Scene) ModifiedSinceRead() bool { return s.Version() != s.readVersion }

func (s *Scene) markRead() { s.readVersion = s.Version() }

// CopySingletonsTo adds a copy of every singleton to dst, merging into
// dst's singletons where they exist.
func (s *Scene) CopySingletonsTo(dst *Scene) error {
	for _, n := range s.Nodes() {
		if n.SingletonTag() == "" {
			continue
		}
		c := n.NewInstance()
		c.Copy(n)
		c.SetID(n.ID())
		if _, err := dst.Add(c); err != nil {
			return fmt.Errorf("copy singleton %s: %w", n.ID(), err)
		}
	}
	return nil
}

// CopyRegisteredTo registers this scene's node types and templates in dst.
func (s *Scene) CopyRegisteredTo(dst *Scene) { s.reg.CopyTo(dst.reg) }

// Undo stack.

func (s *Scene) SaveStateForUndo(nodes ...node.Node) { s.undo.SaveStateForUndo(nodes...) }
func (s *Scene) SaveStateForUndoAll()                { s.undo.SaveStateForUndoAll() }
func (s *Scene) CanUndo() bool                       { return s.undo.CanUndo() }
func (s *Scene) CanRedo() bool                       { return s.undo.CanRedo() }
func (s *Scene) UndoDepth() int                      { return s.undo.UndoDepth() }
func (s *Scene) RedoDepth() int                      { return s.undo.RedoDepth() }
func (s *Scene) UndoEnabled() bool                   { return s.undo.Enabled() }
func (s *Scene) ClearUndoStack()                     { s.undo.ClearUndoStack() }
func (s *Scene) ClearRedoStack()                     { s.undo.ClearRedoStack() }

// Undo reverts to the last saved frame. It reports whether one was applied.
func (s *Scene) Undo() bool {
	ok := s.undo.Undo()
	s.logger.Debug("undo", "applied", ok, "undo_depth", s.undo.UndoDepth())
	return ok
}

// Redo reapplies the last undone frame.
func (s *Scene) Redo() bool {
	ok := s.undo.Redo()
	s.logger.Debug("redo", "applied", ok, "redo_depth", s.undo.RedoDepth())
	return ok
}

// ApplyUndoConfig updates undo settings, typically on config reload.
func (s *Scene) ApplyUndoConfig(conf config.UndoConf) {
	s.undo.SetEnabled(!conf.Disabled)
	s.undo.SetMaxDepth(conf.MaxDepth)
	if conf.Disabled {
		s.undo.Clear()
	}
}

// States.

func (s *Scene) StartState(st event.State, maxProgress int) { s.states.Start(st, maxProgress) }
func (s *Scene) EndState(st event.State) error              { return s.states.End(st) }
func (s *Scene) ProgressState(st event.State, amount int)   { s.states.Progress(st, amount) }
func (s *Scene) States() event.State                        { return s.states.States() }
func (s *Scene) IsBatchProcessing() bool                    { return s.states.IsBatchProcessing() }
func (s *Scene) IsImporting() bool                          { return s.states.IsImporting() }
func (s *Scene) IsClosing() bool                            { return s.states.IsClosing() }
func (s *Scene) IsRestoring() bool                          { return s.states.IsRestoring() }
