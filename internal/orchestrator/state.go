// Package orchestrator sequences the scrape, clean and load stages as
// supervised, time-bounded OS processes and reduces their outcomes to a
// single run summary.
package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// State is a pipeline run state.
type State string

// Pipeline states.
const (
	StateInit     State = "INIT"
	StateScraping State = "SCRAPING"
	StateCleaning State = "CLEANING"
	StateLoading  State = "LOADING"
	StateDone     State = "DONE"
	StateAborted  State = "ABORTED"
	StateFailed   State = "FAILED"
	StateCanceled State = "CANCELED"
)

// ErrIllegalTransition is returned for a transition the machine does not allow.
var ErrIllegalTransition = errors.New("illegal state transition")

var validTransitions = map[State][]State{
	StateInit:     {StateScraping, StateCanceled},
	StateScraping: {StateCleaning, StateCanceled},
	StateCleaning: {StateLoading, StateAborted, StateCanceled},
	StateLoading:  {StateDone, StateFailed, StateCanceled},
}

// IsTransitionAllowed reports whether from → to is a legal edge.
func IsTransitionAllowed(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// ParseState parses a state name case-insensitively.
func ParseState(s string) (State, error) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StateInit, StateScraping, StateCleaning, StateLoading,
		StateDone, StateAborted, StateFailed, StateCanceled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown state %q", s)
	}
}

// Machine tracks the current state and the path taken to reach it.
type Machine struct {
	mu      sync.Mutex
	current State
	history []State
}

// NewMachine returns a Machine in StateInit.
func NewMachine() *Machine {
	return &Machine{current: StateInit, history: []State{StateInit}}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// History returns every state visited, in order.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}

// Transition moves to next or returns ErrIllegalTransition.
func (m *Machine) Transition(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !IsTransitionAllowed(m.current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.current, next)
	}
	m.current = next
	m.history = append(m.history, next)
	return nil
}
