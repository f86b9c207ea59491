// Package event carries scene notifications to synchronous observers.
package event

import (
	"strings"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// Kind identifies a notification.
type Kind int

const (
	NodeAboutToBeAdded Kind = iota + 1
	NodeAdded
	NodeAboutToBeRemoved
	NodeRemoved
	NodeModified
	NewScene
	StateStarted
	StateEnded
	StateProgress
)

var kindNames = map[Kind]string{
	NodeAboutToBeAdded:   "node_about_to_be_added",
	NodeAdded:            "node_added",
	NodeAboutToBeRemoved: "node_about_to_be_removed",
	NodeRemoved:          "node_removed",
	NodeModified:         "node_modified",
	NewScene:             "new_scene",
	StateStarted:         "state_started",
	StateEnded:           "state_ended",
	StateProgress:        "state_progress",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// State is a scene state token. Tokens are bit flags; composite states
// carry the BatchProcess bit.
type State uint32

const (
	BatchProcess State = 0x0001
	Close        State = 0x0002 | BatchProcess
	Import       State = 0x0004 | BatchProcess
	Restore      State = 0x0008 | BatchProcess
	Save         State = 0x0010
)

// ImpliesBatch reports whether s carries the BatchProcess bit.
func (s State) ImpliesBatch() bool { return s&BatchProcess != 0 }

func (s State) String() string {
	switch s {
	case BatchProcess:
		return "batch_process"
	case Close:
		return "close"
	case Import:
		return "import"
	case Restore:
		return "restore"
	case Save:
		return "save"
	}
	var parts []string
	for _, c := range []State{Close, Import, Restore, Save} {
		if s&c == c {
			parts = append(parts, c.String())
		}
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// Notification is one synchronous event. Node is set for node events and
// State for state events.
type Notification struct {
	Kind     Kind
	Node     node.Node
	State    State
	Progress int
	// BatchID groups the notifications of one import.
	BatchID string
	Seq     uint64
	At      time.Time
}

// Handler observes notifications. Handlers must not mutate the scene.
type Handler func(Notification)

// Bus dispatches notifications in subscription order.
type Bus struct {
	mu       sync.Mutex
	handlers map[uint64]Handler
	order    []uint64
	nextID   uint64
	seq      uint64
	depth    int
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = h
	b.order = append(b.order, id)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.handlers[id]; !ok {
			return
		}
		delete(b.handlers, id)
		for i, o := range b.order {
			if o == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Emit stamps n and delivers it to every handler before returning.
func (b *Bus) Emit(n Notification) {
	b.mu.Lock()
	b.seq++
	n.Seq = b.seq
	if n.At.IsZero() {
		n.At = time.Now()
	}
	hs := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		hs = append(hs, b.handlers[id])
	}
	b.depth++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.depth--
		b.mu.Unlock()
	}()
	for _, h := range hs {
		h(n)
	}
}

// Dispatching reports whether a notification is being delivered.
func (b *Bus) Dispatching() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth > 0
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
