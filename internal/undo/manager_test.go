package undo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
	"github.com/gyaneshwarpardhi/scenegraph/internal/nodes"
	"github.com/gyaneshwarpardhi/scenegraph/internal/registry"
	"github.com/gyaneshwarpardhi/scenegraph/internal/state"
	"github.com/gyaneshwarpardhi/scenegraph/internal/store"
	"github.com/gyaneshwarpardhi/scenegraph/internal/undo"
)

type fixture struct {
	states *state.Machine
	st     *store.Store
	mgr    *undo.Manager
}

func newFixture(t *testing.T, depth int) *fixture {
	t.Helper()
	bus := event.NewBus()
	states := state.New(bus, nil)
	reg := registry.New(nil)
	nodes.RegisterAll(reg)
	st := store.New(reg, bus, states, nil)
	mgr := undo.New(st, states, bus, depth, nil)
	t.Cleanup(mgr.Close)
	return &fixture{states: states, st: st, mgr: mgr}
}

func (f *fixture) add(t *testing.T, n node.Node) node.Node {
	t.Helper()
	got, err := f.st.Add(n)
	require.NoError(t, err)
	return got
}

func TestUndoRedoContentRoundTrip(t *testing.T) {
	f := newFixture(t, 10)
	m := nodes.NewModel()
	m.Polygons = 100
	f.add(t, m)
	id := m.ID()

	f.mgr.SaveStateForUndo(m)
	m.Polygons = 5000
	m.SetName("edited")

	require.True(t, f.mgr.Undo())
	assert.Equal(t, 100, m.Polygons)
	assert.Equal(t, "Model", m.Name())
	assert.Equal(t, id, m.ID())
	assert.Same(t, m, f.st.GetByID(id), "live identity is preserved")

	require.True(t, f.mgr.Redo())
	assert.Equal(t, 5000, m.Polygons)
	assert.Equal(t, "edited", m.Name())
	assert.False(t, f.mgr.CanRedo())
	assert.True(t, f.mgr.CanUndo())
}

func TestUndoRemovesAddedAndRestoresRemoved(t *testing.T) {
	f := newFixture(t, 10)
	keep := f.add(t, nodes.NewVolume())
	gone := f.add(t, nodes.NewTransform())

	f.mgr.SaveStateForUndo()
	require.NoError(t, f.st.Remove(gone))
	added := f.add(t, nodes.NewDisplay())

	require.True(t, f.mgr.Undo())
	assert.Nil(t, f.st.GetByID(added.ID()))
	restored := f.st.GetByID(gone.ID())
	require.NotNil(t, restored)
	assert.Equal(t, "Transform", restored.ClassName())
	assert.Same(t, keep, f.st.GetByID(keep.ID()))
	assert.Equal(t, 2, f.st.Len())

	require.True(t, f.mgr.Redo())
	assert.Nil(t, f.st.GetByID(gone.ID()))
	assert.NotNil(t, f.st.GetByID(added.ID()))
}

func TestUndoRestoresReferences(t *testing.T) {
	f := newFixture(t, 10)
	disp := f.add(t, nodes.NewDisplay())
	m := nodes.NewModel()
	m.SetDisplayID(disp.ID())
	f.add(t, m)

	f.mgr.SaveStateForUndo()
	require.NoError(t, f.st.Remove(disp))
	assert.Empty(t, m.DisplayID())

	// The removal rewrote m, so the frame was given its own copy of it.
	require.True(t, f.mgr.Undo())
	assert.NotNil(t, f.st.GetByID(disp.ID()))
	assert.Equal(t, disp.ID(), m.DisplayID())
	assert.Equal(t, 1, f.st.EdgeCount())

	f.mgr.SaveStateForUndo(m)
	m.SetDisplayID("")
	f.st.Reindex(m)
	assert.Zero(t, f.st.EdgeCount())
	require.True(t, f.mgr.Undo())
	assert.Equal(t, disp.ID(), m.DisplayID())
	assert.Equal(t, 1, f.st.EdgeCount())
}

func TestMutationClearsRedo(t *testing.T) {
	f := newFixture(t, 10)
	m := f.add(t, nodes.NewModel()).(*nodes.Model)

	f.mgr.SaveStateForUndo(m)
	m.Polygons = 1
	require.True(t, f.mgr.Undo())
	require.True(t, f.mgr.CanRedo())

	f.add(t, nodes.NewModel())
	assert.False(t, f.mgr.CanRedo())
	assert.False(t, f.mgr.Redo())
}

func TestSaveSkippedWhileDisabledOrBatching(t *testing.T) {
	f := newFixture(t, 10)
	f.mgr.SetEnabled(false)
	f.mgr.SaveStateForUndo()
	assert.Zero(t, f.mgr.UndoDepth())
	assert.False(t, f.mgr.Undo())

	f.mgr.SetEnabled(true)
	f.states.Start(event.Import, 0)
	f.mgr.SaveStateForUndo()
	assert.Zero(t, f.mgr.UndoDepth())
	require.NoError(t, f.states.End(event.Import))

	f.mgr.SaveStateForUndo()
	assert.Equal(t, 1, f.mgr.UndoDepth())
}

func TestDepthLimitEvictsOldest(t *testing.T) {
	f := newFixture(t, 2)
	m := f.add(t, nodes.NewModel()).(*nodes.Model)

	for i := 1; i <= 3; i++ {
		f.mgr.SaveStateForUndo(m)
		m.Polygons = i
	}
	assert.Equal(t, 2, f.mgr.UndoDepth())

	require.True(t, f.mgr.Undo())
	require.True(t, f.mgr.Undo())
	assert.Equal(t, 1, m.Polygons, "the frame saved at zero polygons was evicted")
	assert.False(t, f.mgr.Undo())

	f.mgr.SetMaxDepth(0)
	for i := 0; i < 5; i++ {
		f.mgr.SaveStateForUndo()
	}
	assert.Equal(t, 5, f.mgr.UndoDepth())
}

func TestExcludedNodesAreNotCaptured(t *testing.T) {
	f := newFixture(t, 10)
	f.mgr.SaveStateForUndo()
	view := f.add(t, nodes.NewSceneView())

	require.True(t, f.mgr.Undo())
	assert.Same(t, view, f.st.GetByID(view.ID()))
}

func TestSaveStateForUndoAll(t *testing.T) {
	f := newFixture(t, 10)
	a := f.add(t, nodes.NewModel()).(*nodes.Model)
	b := f.add(t, nodes.NewVolume()).(*nodes.Volume)

	f.mgr.SaveStateForUndoAll()
	a.Polygons = 7
	b.Window = 1

	require.True(t, f.mgr.Undo())
	assert.Zero(t, a.Polygons)
	assert.Equal(t, 256.0, b.Window)
}

func TestRedoKeepsReferencesBetweenRemovedNodes(t *testing.T) {
	f := newFixture(t, 10)
	f.mgr.SaveStateForUndo()
	disp := f.add(t, nodes.NewDisplay())
	m := nodes.NewModel()
	m.SetDisplayID(disp.ID())
	f.add(t, m)

	require.True(t, f.mgr.Undo())
	assert.Zero(t, f.st.Len())

	require.True(t, f.mgr.Redo())
	got, ok := f.st.GetByID(m.ID()).(*nodes.Model)
	require.True(t, ok)
	assert.Equal(t, disp.ID(), got.DisplayID())
	assert.Equal(t, 1, f.st.EdgeCount())
}

func TestRedoKeepsReferencesOfSurvivingNodes(t *testing.T) {
	f := newFixture(t, 10)
	disp := f.add(t, nodes.NewDisplay())
	m := f.add(t, nodes.NewModel()).(*nodes.Model)

	f.mgr.SaveStateForUndo(m)
	m.SetDisplayID(disp.ID())
	f.st.Reindex(m)
	tr := f.add(t, nodes.NewTransform())
	m.SetTransformID(tr.ID())
	f.st.Reindex(m)

	require.True(t, f.mgr.Undo())
	assert.Empty(t, m.DisplayID())
	assert.Nil(t, f.st.GetByID(tr.ID()))

	require.True(t, f.mgr.Redo())
	assert.Equal(t, disp.ID(), m.DisplayID())
	assert.Equal(t, tr.ID(), m.TransformID())
	assert.Equal(t, 2, f.st.EdgeCount())
}

// assertConsistent checks that IDs are unique and that every reference,
// in either direction, names a live node.
func assertConsistent(t *testing.T, st *store.Store) {
	t.Helper()
	live := make(map[string]bool)
	for _, n := range st.Nodes() {
		require.False(t, live[n.ID()], "duplicate id %q", n.ID())
		live[n.ID()] = true
	}
	for _, n := range st.Nodes() {
		for _, id := range n.ReferencedIDs() {
			assert.True(t, live[id], "%s references missing %s", n.ID(), id)
		}
		for _, id := range st.ReferencingIDs(n.ID()) {
			assert.True(t, live[id], "%s is referenced by missing %s", n.ID(), id)
		}
	}
}

func TestMutationSequenceKeepsIDsAndReferencesConsistent(t *testing.T) {
	f := newFixture(t, 0)
	byID := func(id string) node.Node {
		n := f.st.GetByID(id)
		require.NotNil(t, n, id)
		return n
	}
	addModel := func(displayID string) {
		m := nodes.NewModel()
		m.SetDisplayID(displayID)
		f.add(t, m)
	}

	steps := []struct {
		name      string
		do        func()
		wantLen   int
		wantEdges int
	}{
		{"add display and model", func() {
			f.mgr.SaveStateForUndo()
			disp := f.add(t, nodes.NewDisplay())
			addModel(disp.ID())
		}, 2, 1},
		{"undo removes both", func() { require.True(t, f.mgr.Undo()) }, 0, 0},
		{"redo restores both", func() { require.True(t, f.mgr.Redo()) }, 2, 1},
		{"remove display", func() {
			f.mgr.SaveStateForUndo(byID("Model"))
			require.NoError(t, f.st.Remove(byID("Display")))
		}, 1, 0},
		{"undo restores display", func() { require.True(t, f.mgr.Undo()) }, 2, 1},
		{"redo removes display", func() { require.True(t, f.mgr.Redo()) }, 1, 0},
		{"undo restores display again", func() { require.True(t, f.mgr.Undo()) }, 2, 1},
		{"add second model", func() {
			f.mgr.SaveStateForUndo()
			addModel("Display")
		}, 3, 2},
		{"remove shared display", func() {
			f.mgr.SaveStateForUndoAll()
			require.NoError(t, f.st.Remove(byID("Display")))
		}, 2, 0},
		{"undo shared removal", func() { require.True(t, f.mgr.Undo()) }, 3, 2},
		{"redo shared removal", func() { require.True(t, f.mgr.Redo()) }, 2, 0},
		{"undo shared removal again", func() { require.True(t, f.mgr.Undo()) }, 3, 2},
		{"undo second model", func() { require.True(t, f.mgr.Undo()) }, 2, 1},
		{"redo second model", func() { require.True(t, f.mgr.Redo()) }, 3, 2},
	}
	for _, step := range steps {
		step.do()
		assert.Equal(t, step.wantLen, f.st.Len(), step.name)
		assert.Equal(t, step.wantEdges, f.st.EdgeCount(), step.name)
		assertConsistent(t, f.st)
		if t.Failed() {
			t.Fatalf("inconsistent after %q", step.name)
		}
	}
	assert.Equal(t, "Display", byID("Model").(*nodes.Model).DisplayID())
}
