// Package state tracks the stack of active scene states and emits their
// start, end and progress notifications.
package state

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/scenegraph/internal/event"
)

// ErrStackImbalance is returned by End when it does not match the top of
// the stack.
var ErrStackImbalance = errors.New("state stack imbalance")

// Machine is a re-entrant stack of state tokens.
type Machine struct {
	stack      []event.State
	bus        *event.Bus
	logger     *slog.Logger
	onBatchEnd []func()
}

func New(bus *event.Bus, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{bus: bus, logger: logger}
}

// OnBatchEnd registers fn to run when the last batch-implying state ends,
// before the batch end notification is emitted.
func (m *Machine) OnBatchEnd(fn func()) {
	m.onBatchEnd = append(m.onBatchEnd, fn)
}

// Start pushes s. A batch start is emitted on the transition into batch
// processing, and a start for s only when s was not already active.
func (m *Machine) Start(s event.State, maxProgress int) {
	wasBatch := m.IsBatchProcessing()
	wasIn := m.Is(s)
	m.stack = append(m.stack, s)
	if !wasBatch && m.IsBatchProcessing() {
		m.emit(event.StateStarted, event.BatchProcess, 0)
	}
	if s != event.BatchProcess && !wasIn {
		m.emit(event.StateStarted, s, maxProgress)
	}
}

// End pops the top state. A mismatched End is logged and the top is popped
// anyway so the stack cannot grow without bound.
func (m *Machine) End(s event.State) error {
	if len(m.stack) == 0 {
		m.logger.Error("end state without matching start", "state", s.String())
		return fmt.Errorf("end %s on empty stack: %w", s, ErrStackImbalance)
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]

	var err error
	if top != s {
		m.logger.Error("end state does not match top of stack",
			"state", s.String(), "top", top.String())
		err = fmt.Errorf("end %s with %s on top: %w", s, top, ErrStackImbalance)
	}

	if top != event.BatchProcess && !m.Is(top) {
		m.emit(event.StateEnded, top, 0)
	}
	if top.ImpliesBatch() && !m.IsBatchProcessing() {
		for _, fn := range m.onBatchEnd {
			fn()
		}
		m.emit(event.StateEnded, event.BatchProcess, 0)
	}
	return err
}

// Progress reports progress for s if s is active.
func (m *Machine) Progress(s event.State, amount int) {
	if !m.Is(s) {
		return
	}
	if s.ImpliesBatch() {
		m.emit(event.StateProgress, event.BatchProcess, amount)
	}
	if s != event.BatchProcess {
		m.emit(event.StateProgress, s, amount)
	}
}

// States returns the union of all active tokens.
func (m *Machine) States() event.State {
	var all event.State
	for _, s := range m.stack {
		all |= s
	}
	return all
}

// Depth returns the number of active tokens.
func (m *Machine) Depth() int { return len(m.stack) }

// Is reports whether every bit of s is active.
func (m *Machine) Is(s event.State) bool { return s != 0 && m.States()&s == s }

func (m *Machine) IsBatchProcessing() bool { return m.Is(event.BatchProcess) }
func (m *Machine) IsImporting() bool       { return m.Is(event.Import) }
func (m *Machine) IsClosing() bool         { return m.Is(event.Close) }
func (m *Machine) IsRestoring() bool       { return m.Is(event.Restore) }
func (m *Machine) IsSaving() bool          { return m.Is(event.Save) }

func (m *Machine) emit(k event.Kind, s event.State, progress int) {
	if m.bus == nil {
		return
	}
	m.bus.Emit(event.Notification{Kind: k, State: s, Progress: progress})
}
