package request

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"kissaprs/fsm"
)

// Table tracks outstanding requests by message id.
type Table struct {
	timeout   time.Duration
	afterFunc fsm.AfterFunc

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*Request
}

// Option configures a Table.
type Option func(*Table)

// WithTimeout sets how long requests wait for a reply.
func WithTimeout(d time.Duration) Option {
	return func(t *Table) { t.timeout = d }
}

// WithAfterFunc replaces the timer used for reply timeouts.
func WithAfterFunc(f fsm.AfterFunc) Option {
	return func(t *Table) { t.afterFunc = f }
}

// NewTable returns an empty table.
func NewTable(opts ...Option) *Table {
	t := &Table{
		timeout:   DefaultTimeout,
		afterFunc: fsm.StdAfterFunc,
		pending:   make(map[uint64]*Request),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Initiate assigns msg the next message id, records it, and sends it with
// send. The request leaves the table when it settles.
func (t *Table) Initiate(msg Message, send func(Message) error) *Future {
	t.mu.Lock()
	t.nextID++
	msg.MsgID = t.nextID
	r := New(msg, t.timeout, t.afterFunc)
	t.pending[msg.MsgID] = r
	t.mu.Unlock()

	return r.Send(send, func() { t.remove(msg.MsgID) })
}

// Incoming routes a reply to the request it answers. It reports whether
// msg was a reply to an outstanding request.
func (t *Table) Incoming(msg Message) bool {
	if msg.ReplyTo == 0 {
		return false
	}
	t.mu.Lock()
	r, ok := t.pending[msg.ReplyTo]
	t.mu.Unlock()
	if !ok {
		log.Debug("reply to unknown request", "replyTo", msg.ReplyTo, "type", msg.Type)
		return false
	}
	r.Reply(msg)
	return true
}

// Len returns the number of outstanding requests.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close settles every outstanding request with ErrClosed.
func (t *Table) Close() {
	t.mu.Lock()
	reqs := make([]*Request, 0, len(t.pending))
	for _, r := range t.pending {
		reqs = append(reqs, r)
	}
	t.mu.Unlock()
	for _, r := range reqs {
		r.Fail(ErrClosed)
	}
}

func (t *Table) remove(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}
