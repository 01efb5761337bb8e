// Package fsm is a small table-driven state machine engine.
//
// A Table maps each state to its hooks and to the transitions taken on
// events. Events a state does not list are ignored. Events fired while the
// machine is already handling one (from a hook, an action or another
// goroutine) are queued and handled in order once the current one is done,
// so transitions never nest.
package fsm

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Action runs as part of a transition and receives the arguments given
// to Fire.
type Action func(args ...any)

// Transition is what a state does on an event. Build one with To, ToWith
// or Stay.
type Transition[S comparable] struct {
	target S
	action Action
	stay   bool
}

// To moves to state s.
func To[S comparable](s S) Transition[S] {
	return Transition[S]{target: s}
}

// ToWith runs action and then moves to state s.
func ToWith[S comparable](s S, action Action) Transition[S] {
	return Transition[S]{target: s, action: action}
}

// Stay runs action without leaving the current state. No exit or entry
// hooks fire.
func Stay[S comparable](action Action) Transition[S] {
	return Transition[S]{action: action, stay: true}
}

// State describes one state of a machine.
type State[S, E comparable] struct {
	OnEntry func()
	OnExit  func()
	On      map[E]Transition[S]
}

// Table is the full definition of a machine.
type Table[S, E comparable] map[S]State[S, E]

type queued[E comparable] struct {
	event E
	args  []any
}

// Machine is a running instance of a Table.
type Machine[S, E comparable] struct {
	name  string
	table Table[S, E]

	mu      sync.Mutex
	current S
	queue   []queued[E]
	running bool
}

// New checks table and returns a machine in state initial. Every
// transition target must be a state of the table.
func New[S, E comparable](name string, table Table[S, E], initial S) (*Machine[S, E], error) {
	if _, ok := table[initial]; !ok {
		return nil, fmt.Errorf("fsm %s: initial state %v not in table", name, initial)
	}
	for s, st := range table {
		for e, tr := range st.On {
			if tr.stay {
				continue
			}
			if _, ok := table[tr.target]; !ok {
				return nil, fmt.Errorf("fsm %s: state %v on %v goes to unknown state %v", name, s, e, tr.target)
			}
		}
	}
	return &Machine[S, E]{name: name, table: table, current: initial}, nil
}

// MustNew is like New but panics on an invalid table.
func MustNew[S, E comparable](name string, table Table[S, E], initial S) *Machine[S, E] {
	m, err := New(name, table, initial)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the name given to New.
func (m *Machine[S, E]) Name() string {
	return m.name
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Handles reports whether the current state has a transition for e.
func (m *Machine[S, E]) Handles(e E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.table[m.current].On[e]
	return ok
}

// Fire delivers event e. If the machine is idle, e and anything queued
// behind it are handled before Fire returns. Otherwise e is queued for the
// call already in progress.
func (m *Machine[S, E]) Fire(e E, args ...any) {
	m.mu.Lock()
	m.queue = append(m.queue, queued[E]{event: e, args: args})
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	done := false
	defer func() {
		// A hook panicked; leave the machine usable.
		if !done {
			m.mu.Lock()
			m.running = false
			m.queue = nil
			m.mu.Unlock()
		}
	}()

	for len(m.queue) > 0 {
		q := m.queue[0]
		m.queue = m.queue[1:]
		from := m.current
		st := m.table[from]
		tr, ok := st.On[q.event]
		m.mu.Unlock()

		if ok {
			m.step(from, st, tr, q)
		} else {
			log.Debug("fsm event ignored", "machine", m.name, "state", from, "event", q.event)
		}
		m.mu.Lock()
	}
	m.queue = nil
	m.running = false
	done = true
	m.mu.Unlock()
}

// step runs one transition. Action first, then exit, state change, entry.
func (m *Machine[S, E]) step(from S, st State[S, E], tr Transition[S], q queued[E]) {
	if tr.action != nil {
		tr.action(q.args...)
	}
	if tr.stay {
		return
	}
	if st.OnExit != nil {
		st.OnExit()
	}
	m.mu.Lock()
	m.current = tr.target
	m.mu.Unlock()
	log.Debug("fsm transition", "machine", m.name, "event", q.event, "from", from, "to", tr.target)
	if next := m.table[tr.target]; next.OnEntry != nil {
		next.OnEntry()
	}
}
