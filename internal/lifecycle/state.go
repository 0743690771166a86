// Package lifecycle tracks the gateway process's own run state, separately
// from the health of any single Neo4j connection. It adapts pkg/lifecycle's
// agent state machine to a single stateless HTTP server: there is no Paused
// or Failed state and no restart path, since a failed gateway process is
// simply replaced by the orchestrator rather than recovered in place.
//
// The lifecycle flow is linear:
//
//	Starting → Ready → Draining → Stopped
//
// Ready is reached once the startup capabilities probe (or ProfileSSR
// override) completes; Draining begins when the process receives a
// shutdown signal and stops accepting new connections while in-flight
// requests finish; Stopped is terminal.
package lifecycle

import (
	"sync"

	sserr "github.com/StricklySoft/cypher-gateway/pkg/errors"
)

// State represents the run state of the gateway process. States form a
// finite state machine with validated transitions defined by
// [ValidTransition].
//
// The zero value ("") is not a valid state; the [Tracker] is initialized
// with [StateStarting] at construction time.
type State string

const (
	// StateStarting indicates the process is resolving configuration,
	// probing Neo4j capabilities, and constructing the request pipeline.
	// The HTTP listener, if already bound, must fail readiness checks
	// while in this state.
	StateStarting State = "starting"

	// StateReady indicates the process is accepting and serving requests.
	// This is the only state in which [Tracker.Health] reports healthy.
	StateReady State = "ready"

	// StateDraining indicates the process has received a shutdown signal.
	// New connections should be refused (or routed elsewhere by a load
	// balancer reading the readiness probe) while in-flight requests and
	// open streaming cursors are allowed to finish within the configured
	// shutdown timeout.
	StateDraining State = "draining"

	// StateStopped indicates the process has completed a clean shutdown.
	// This is a terminal state; there is no restart transition, unlike
	// an agent returning to StateStarting.
	StateStopped State = "stopped"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Valid reports whether the state is one of the recognized run states.
// The zero value ("") is not valid.
func (s State) Valid() bool {
	switch s {
	case StateStarting, StateReady, StateDraining, StateStopped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the state is the terminal run state.
func (s State) IsTerminal() bool {
	return s == StateStopped
}

// validTransitions defines the allowed state transitions. Each key is a
// source state, and the value is the set of states it may transition to.
// Transitions not present in this map are rejected by [ValidTransition].
//
// Transition matrix:
//
//	Starting → Ready, Stopped   (Stopped covers a failed startup probe)
//	Ready    → Draining
//	Draining → Stopped
//	Stopped  → (none, terminal)
var validTransitions = map[State][]State{
	StateStarting: {StateReady, StateStopped},
	StateReady:    {StateDraining},
	StateDraining: {StateStopped},
}

// ValidTransition reports whether transitioning from state from to state to
// is allowed by the run-state machine. Both from and to must be valid
// states, and the transition must be present in the [validTransitions]
// matrix. Same-state transitions (from == to) are always rejected.
func ValidTransition(from, to State) bool {
	if from == to {
		return false
	}
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// Tracker holds the gateway process's current run state behind a mutex, so
// an HTTP health handler on one goroutine and a shutdown handler on another
// can read and mutate it concurrently.
type Tracker struct {
	mu    sync.RWMutex
	state State
}

// NewTracker returns a Tracker initialized to [StateStarting].
func NewTracker() *Tracker {
	return &Tracker{state: StateStarting}
}

// State returns the current run state. Safe for concurrent use.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// SetState transitions the tracker to the given state after validating the
// transition against [ValidTransition]. Returns a [*sserr.Error] with code
// [sserr.CodeConflict] if the transition is not allowed.
func (t *Tracker) SetState(new State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.state
	if !ValidTransition(old, new) {
		return sserr.Newf(sserr.CodeConflict,
			"lifecycle: invalid state transition from %q to %q", old, new)
	}
	t.state = new
	return nil
}

// Health reports whether the process should be considered healthy by a
// readiness probe. Only [StateReady] is healthy; a process still starting
// or already draining must fail readiness so a load balancer stops routing
// new traffic to it.
func (t *Tracker) Health() error {
	state := t.State()
	if state != StateReady {
		return sserr.Newf(sserr.CodeUnavailable,
			"lifecycle: gateway is not ready, current state is %q", state)
	}
	return nil
}
