package kiss

import "sync"

// EventKind says what an Event reports.
type EventKind int

const (
	// Connecting: a connection attempt has started.
	Connecting EventKind = iota
	// Connect: a link is up. Event.Conn is the link.
	Connect
	// Disconnect: a link went down. For a Server with a nil Conn, the
	// listening socket itself closed.
	Disconnect
	// Listening: a Server's socket is accepting connections.
	Listening
	// Data: a frame arrived on Event.Conn.
	Data
	// Error: a connection attempt or a link failed.
	Error
)

func (k EventKind) String() string {
	switch k {
	case Connecting:
		return "connecting"
	case Connect:
		return "connect"
	case Disconnect:
		return "disconnect"
	case Listening:
		return "listening"
	case Data:
		return "data"
	case Error:
		return "error"
	}
	return "unknown"
}

// Event is delivered to subscribers of an Endpoint or Server.
type Event struct {
	Kind  EventKind
	Conn  *Conn
	Frame []byte
	Err   error
}

// Handler receives events. It is called synchronously from the endpoint's
// goroutines and must not block.
type Handler func(Event)

type emitter struct {
	mu   sync.Mutex
	next int
	subs map[int]Handler
}

// Subscribe registers h and returns a function that removes it.
func (em *emitter) Subscribe(h Handler) (cancel func()) {
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.subs == nil {
		em.subs = make(map[int]Handler)
	}
	id := em.next
	em.next++
	em.subs[id] = h
	return func() {
		em.mu.Lock()
		delete(em.subs, id)
		em.mu.Unlock()
	}
}

func (em *emitter) emit(ev Event) {
	em.mu.Lock()
	hs := make([]Handler, 0, len(em.subs))
	for _, h := range em.subs {
		hs = append(hs, h)
	}
	em.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}
