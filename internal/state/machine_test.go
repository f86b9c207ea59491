package state_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
	"github.com/gyaneshwarpardhi/scenegraph/internal/state"
)

func record(bus *event.Bus) *[]string {
	var out []string
	bus.Subscribe(func(n event.Notification) {
		out = append(out, fmt.Sprintf("%s:%s", n.Kind, n.State))
	})
	return &out
}

func TestImportImpliesBatch(t *testing.T) {
	bus := event.NewBus()
	got := record(bus)
	m := state.New(bus, nil)

	m.Start(event.Import, 10)
	assert.True(t, m.IsImporting())
	assert.True(t, m.IsBatchProcessing())
	assert.False(t, m.IsClosing())
	require.NoError(t, m.End(event.Import))
	assert.False(t, m.IsBatchProcessing())

	assert.Equal(t, []string{
		"state_started:batch_process",
		"state_started:import",
		"state_ended:import",
		"state_ended:batch_process",
	}, *got)
}

func TestNestedStartsAreSilent(t *testing.T) {
	bus := event.NewBus()
	got := record(bus)
	m := state.New(bus, nil)

	m.Start(event.BatchProcess, 0)
	m.Start(event.Import, 0)
	m.Start(event.Import, 0)
	require.NoError(t, m.End(event.Import))
	require.NoError(t, m.End(event.Import))
	require.NoError(t, m.End(event.BatchProcess))

	assert.Equal(t, []string{
		"state_started:batch_process",
		"state_started:import",
		"state_ended:import",
		"state_ended:batch_process",
	}, *got)
	assert.Zero(t, m.Depth())
}

func TestSaveDoesNotImplyBatch(t *testing.T) {
	bus := event.NewBus()
	got := record(bus)
	m := state.New(bus, nil)

	m.Start(event.Save, 0)
	assert.False(t, m.IsBatchProcessing())
	assert.True(t, m.IsSaving())
	require.NoError(t, m.End(event.Save))

	assert.Equal(t, []string{"state_started:save", "state_ended:save"}, *got)
}

func TestBatchEndHooksRunBeforeNotification(t *testing.T) {
	bus := event.NewBus()
	got := record(bus)
	m := state.New(bus, nil)
	m.OnBatchEnd(func() { *got = append(*got, "hook") })

	m.Start(event.Close, 0)
	m.Start(event.BatchProcess, 0)
	require.NoError(t, m.End(event.BatchProcess))
	require.NoError(t, m.End(event.Close))

	assert.Equal(t, []string{
		"state_started:batch_process",
		"state_started:close",
		"state_ended:close",
		"hook",
		"state_ended:batch_process",
	}, *got)
}

func TestEndImbalance(t *testing.T) {
	m := state.New(event.NewBus(), nil)

	require.ErrorIs(t, m.End(event.Import), state.ErrStackImbalance)

	m.Start(event.Close, 0)
	err := m.End(event.Import)
	require.ErrorIs(t, err, state.ErrStackImbalance)
	assert.Zero(t, m.Depth(), "mismatched end still pops")
	assert.False(t, m.IsClosing())
}

func TestProgress(t *testing.T) {
	bus := event.NewBus()
	got := record(bus)
	m := state.New(bus, nil)

	m.Progress(event.Import, 5)
	assert.Empty(t, *got)

	m.Start(event.Import, 10)
	*got = nil
	m.Progress(event.Import, 5)
	m.Progress(event.Restore, 5)
	assert.Equal(t, []string{"state_progress:batch_process", "state_progress:import"}, *got)
}
