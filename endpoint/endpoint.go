// Package endpoint implements the connection lifecycle shared by every
// transport: connect when enabled, retry after a fixed delay when the
// connection fails or drops, and tear down when disabled.
package endpoint

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"kissaprs/fsm"
)

// DefaultRetryDelay is how long an endpoint waits before reconnecting.
const DefaultRetryDelay = 5 * time.Second

// State of an endpoint.
type State int

const (
	Idle State = iota
	Connecting
	Connected
	WaitingRetry
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case WaitingRetry:
		return "waitingRetry"
	}
	return "unknown"
}

type event int

const (
	evEnable event = iota
	evDisable
	evConnectionSucceeded
	evConnectionFailed
	evError
	evTimeout
	evRetryElapsed // Internal, carries the timer generation
)

func (e event) String() string {
	return [...]string{"enable", "disable", "connectionSucceeded", "connectionFailed", "error", "timeout", "retryElapsed"}[e]
}

// Binding is what a transport supplies. The methods are called from the
// endpoint's state machine and must not block; OpenConnection reports its
// outcome later through ConnectionSucceeded or ConnectionFailed.
type Binding interface {
	OpenConnection()
	CloseConnection()
	EmitConnect()
	CloseConnectionAndEmitDisconnect()
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithRetryDelay sets the wait between connection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(e *Endpoint) {
		if d > 0 {
			e.retryDelay = d
		}
	}
}

// WithAfterFunc replaces the timer used for retries.
func WithAfterFunc(f fsm.AfterFunc) Option {
	return func(e *Endpoint) { e.afterFunc = f }
}

// Endpoint drives a Binding through Idle, Connecting, Connected and
// WaitingRetry.
type Endpoint struct {
	name       string
	binding    Binding
	m          *fsm.Machine[State, event]
	retryDelay time.Duration
	afterFunc  fsm.AfterFunc

	mu      sync.Mutex
	gen     uint64
	stop    func() bool
	lastErr error
}

// New returns an idle endpoint for b.
func New(name string, b Binding, opts ...Option) *Endpoint {
	e := &Endpoint{
		name:       name,
		binding:    b,
		retryDelay: DefaultRetryDelay,
		afterFunc:  fsm.StdAfterFunc,
	}
	for _, o := range opts {
		o(e)
	}
	e.m = fsm.MustNew(name, e.table(), Idle)
	return e
}

func (e *Endpoint) table() fsm.Table[State, event] {
	return fsm.Table[State, event]{
		Idle: {
			On: map[event]fsm.Transition[State]{
				evEnable: fsm.To(Connecting),
			},
		},
		Connecting: {
			OnEntry: e.binding.OpenConnection,
			On: map[event]fsm.Transition[State]{
				evConnectionSucceeded: fsm.To(Connected),
				evConnectionFailed:    fsm.ToWith(WaitingRetry, e.recordError),
				evError:               fsm.ToWith(WaitingRetry, e.recordError),
				evDisable: fsm.ToWith(Idle, func(...any) {
					e.binding.CloseConnection()
				}),
			},
		},
		Connected: {
			OnEntry: e.connected,
			OnExit:  e.binding.CloseConnectionAndEmitDisconnect,
			On: map[event]fsm.Transition[State]{
				evError:   fsm.ToWith(WaitingRetry, e.recordError),
				evDisable: fsm.To(Idle),
			},
		},
		WaitingRetry: {
			OnEntry: e.triggerWait,
			OnExit:  e.cancelWait,
			On: map[event]fsm.Transition[State]{
				evTimeout:      fsm.To(Connecting),
				evDisable:      fsm.To(Idle),
				evError:        fsm.Stay[State](e.recordError),
				evRetryElapsed: fsm.Stay[State](e.retryElapsed),
			},
		},
	}
}

func (e *Endpoint) connected() {
	log.Info("connected", "endpoint", e.name)
	e.mu.Lock()
	e.lastErr = nil
	e.mu.Unlock()
	e.binding.EmitConnect()
}

func (e *Endpoint) recordError(args ...any) {
	var err error
	if len(args) > 0 {
		err, _ = args[0].(error)
	}
	log.Warn("connection problem", "endpoint", e.name, "state", e.m.Current(), "err", err)
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}

// triggerWait arms the retry timer. The timer carries the generation it was
// armed in; leaving WaitingRetry bumps the generation so a late firing is
// ignored.
func (e *Endpoint) triggerWait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	gen := e.gen
	log.Debug("retrying later", "endpoint", e.name, "delay", e.retryDelay)
	e.stop = e.afterFunc(e.retryDelay, func() {
		e.m.Fire(evRetryElapsed, gen)
	})
}

func (e *Endpoint) cancelWait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
}

func (e *Endpoint) retryElapsed(args ...any) {
	gen, _ := args[0].(uint64)
	e.mu.Lock()
	current := gen == e.gen
	e.mu.Unlock()
	if current {
		e.m.Fire(evTimeout)
	}
}

// Name returns the endpoint's name.
func (e *Endpoint) Name() string { return e.name }

// State returns the current state.
func (e *Endpoint) State() State { return e.m.Current() }

// LastError returns the error that last sent the endpoint to WaitingRetry,
// cleared on connect.
func (e *Endpoint) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Enable starts connecting from Idle.
func (e *Endpoint) Enable() { e.m.Fire(evEnable) }

// Disable closes any connection and returns to Idle.
func (e *Endpoint) Disable() { e.m.Fire(evDisable) }

// ConnectionSucceeded reports that OpenConnection worked.
func (e *Endpoint) ConnectionSucceeded() { e.m.Fire(evConnectionSucceeded) }

// ConnectionFailed reports that OpenConnection did not work.
func (e *Endpoint) ConnectionFailed(err error) { e.m.Fire(evConnectionFailed, err) }

// Error reports a failure of an open or opening connection.
func (e *Endpoint) Error(err error) { e.m.Fire(evError, err) }

// Timeout ends a retry wait early.
func (e *Endpoint) Timeout() { e.m.Fire(evTimeout) }
