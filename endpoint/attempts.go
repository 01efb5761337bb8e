package endpoint

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrStaleConnection is reported when the machine reaches Connected but the
// attempt that got there has since been abandoned.
var ErrStaleConnection = errors.New("endpoint: connection belongs to an abandoned attempt")

// Attempts tracks the connection attempts of a Binding. Every attempt has a
// generation; a result offered for an older generation is closed and
// dropped, so a late dial can never become the live connection.
type Attempts[C io.Closer] struct {
	mu         sync.Mutex
	gen        uint64
	cancel     context.CancelFunc
	pending    C
	hasPending bool
	active     C
	hasActive  bool
}

// Start abandons whatever attempt came before and begins a new one. The
// context is cancelled when the attempt is abandoned.
func (a *Attempts[C]) Start() (context.Context, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.abandonLocked()
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	return ctx, a.gen
}

// Offer stores c as the result of attempt gen. If gen is no longer current,
// c is closed and Offer returns false.
func (a *Attempts[C]) Offer(gen uint64, c C) bool {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		c.Close()
		return false
	}
	if a.hasPending {
		a.pending.Close()
	}
	a.pending, a.hasPending = c, true
	a.mu.Unlock()
	return true
}

// Current reports whether gen is still the latest attempt.
func (a *Attempts[C]) Current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return gen == a.gen
}

// Activate makes the offered result of the current attempt the active
// connection. It returns ErrStaleConnection if nothing was offered since
// the last Start.
func (a *Attempts[C]) Activate() (C, uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasPending {
		var zero C
		return zero, 0, ErrStaleConnection
	}
	c := a.pending
	var zero C
	a.pending, a.hasPending = zero, false
	a.active, a.hasActive = c, true
	a.cancel = nil
	return c, a.gen, nil
}

// Active returns the active connection, if any.
func (a *Attempts[C]) Active() (C, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active, a.hasActive
}

// Abandon ends the current attempt: its context is cancelled, an offered
// result is closed, and the generation moves on. The active connection, if
// any, is detached and returned for the caller to close.
func (a *Attempts[C]) Abandon() (C, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.active, a.hasActive
	var zero C
	a.active, a.hasActive = zero, false
	a.abandonLocked()
	return c, ok
}

func (a *Attempts[C]) abandonLocked() {
	a.gen++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.hasPending {
		a.pending.Close()
		var zero C
		a.pending, a.hasPending = zero, false
	}
}
