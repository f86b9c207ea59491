package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
)

func TestBusOrderAndUnsubscribe(t *testing.T) {
	bus := event.NewBus()
	var got []string
	unsubA := bus.Subscribe(func(n event.Notification) { got = append(got, "a:"+n.Kind.String()) })
	bus.Subscribe(func(n event.Notification) { got = append(got, "b:"+n.Kind.String()) })

	bus.Emit(event.Notification{Kind: event.NodeAdded})
	unsubA()
	unsubA()
	bus.Emit(event.Notification{Kind: event.NodeRemoved})

	assert.Equal(t, []string{"a:node_added", "b:node_added", "b:node_removed"}, got)
	assert.Equal(t, 1, bus.Len())
}

func TestBusSequenceAndDispatching(t *testing.T) {
	bus := event.NewBus()
	var seqs []uint64
	var during bool
	bus.Subscribe(func(n event.Notification) {
		seqs = append(seqs, n.Seq)
		during = bus.Dispatching()
		require.False(t, n.At.IsZero())
	})

	assert.False(t, bus.Dispatching())
	bus.Emit(event.Notification{Kind: event.NewScene})
	bus.Emit(event.Notification{Kind: event.NewScene})

	assert.Equal(t, []uint64{1, 2}, seqs)
	assert.True(t, during)
	assert.False(t, bus.Dispatching())
}

func TestStateImpliesBatch(t *testing.T) {
	tests := []struct {
		state event.State
		batch bool
		name  string
	}{
		{event.BatchProcess, true, "batch_process"},
		{event.Close, true, "close"},
		{event.Import, true, "import"},
		{event.Restore, true, "restore"},
		{event.Save, false, "save"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.batch, tt.state.ImpliesBatch())
			assert.Equal(t, tt.name, tt.state.String())
		})
	}
}
