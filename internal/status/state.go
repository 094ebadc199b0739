package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ripplechat/ripple/internal/bus"
)

// State represents a single connection's lifecycle state.
type State string

const (
	// Connecting: transport handshake in flight.
	Connecting State = "CONNECTING"
	// Connected: handshake done, identity not yet announced. The
	// connection is not in any room and receives nothing.
	Connected State = "CONNECTED"
	// Registered: identity verified and the connection joined its room.
	Registered State = "REGISTERED"
	// Disconnected: terminal. A reconnect is a brand-new connection
	// instance with its own machine.
	Disconnected State = "DISCONNECTED"
)

// validTransitions defines allowed state transitions. Disconnected is
// terminal: no transition leaves it.
var validTransitions = map[State][]State{
	Connecting:   {Connected, Disconnected},
	Connected:    {Registered, Disconnected},
	Registered:   {Disconnected},
	Disconnected: {},
}

// Machine tracks and enforces one connection's lifecycle transitions.
type Machine struct {
	mu      sync.RWMutex
	connID  string
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine for the given connection id,
// starting in Connecting.
func NewMachine(connID string, b *bus.Bus) *Machine {
	return &Machine{
		connID:  connID,
		current: Connecting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid; the state is left unchanged in that case.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindConnStateChanged,
			Timestamp: time.Now(),
			Payload: Change{
				ConnID: m.connID,
				From:   from,
				To:     to,
			},
		})
	}
	return nil
}

// Change is the payload for connection state change events.
type Change struct {
	ConnID string
	From   State
	To     State
}
