// Package request pairs outgoing application messages with their replies.
// Each outstanding request is a small state machine, Idle to Sending to
// Complete, that settles exactly once: with the reply, with a timeout, or
// with the error that stopped it from being sent.
package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"kissaprs/fsm"
)

// DefaultTimeout is how long a request waits for its reply.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout settles a request whose reply did not arrive in time.
	ErrTimeout = errors.New("request: timed out waiting for reply")
	// ErrClosed settles requests still outstanding when their table closes.
	ErrClosed = errors.New("request: closed")
)

// Message is an application message. Requests get a MsgID; replies name
// the request they answer in ReplyTo.
type Message struct {
	MsgID   uint64              `json:"msgId,omitempty"`
	ReplyTo uint64              `json:"replyTo,omitempty"`
	Type    string              `json:"type"`
	Payload jsoniter.RawMessage `json:"payload,omitempty"`
}

type state int

const (
	idle state = iota
	sending
	complete
)

func (s state) String() string {
	return [...]string{"idle", "sending", "complete"}[s]
}

type event int

const (
	evSend event = iota
	evReply
	evTimeout
	evFail
)

func (e event) String() string {
	return [...]string{"send", "reply", "timeout", "fail"}[e]
}

// Future is the eventual outcome of a request.
type Future struct {
	done  chan struct{}
	reply Message
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Done is closed once the request has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result blocks until the request settles and returns its outcome.
func (f *Future) Result() (Message, error) {
	<-f.done
	return f.reply, f.err
}

// Wait is Result bounded by ctx.
func (f *Future) Wait(ctx context.Context) (Message, error) {
	select {
	case <-f.done:
		return f.reply, f.err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Request is one outbound message awaiting its reply.
type Request struct {
	Data Message

	m         *fsm.Machine[state, event]
	timeout   time.Duration
	afterFunc fsm.AfterFunc
	future    *Future

	sender    func(Message) error
	completer func()
	stop      func() bool
}

// New returns an idle request for msg.
func New(msg Message, timeout time.Duration, afterFunc fsm.AfterFunc) *Request {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if afterFunc == nil {
		afterFunc = fsm.StdAfterFunc
	}
	r := &Request{Data: msg, timeout: timeout, afterFunc: afterFunc, future: newFuture()}
	r.m = fsm.MustNew(fmt.Sprintf("request %d", msg.MsgID), fsm.Table[state, event]{
		idle: {
			On: map[event]fsm.Transition[state]{
				evSend: fsm.ToWith(sending, r.accept),
			},
		},
		sending: {
			OnEntry: r.send,
			OnExit:  r.disarm,
			On: map[event]fsm.Transition[state]{
				evReply:   fsm.ToWith(complete, r.settleReply),
				evTimeout: fsm.ToWith(complete, r.settleErr(ErrTimeout)),
				evFail:    fsm.ToWith(complete, r.settleErr(nil)),
			},
		},
		complete: {
			OnEntry: r.complete,
			On: map[event]fsm.Transition[state]{
				evReply:   fsm.Stay[state](nil),
				evTimeout: fsm.Stay[state](nil),
				evFail:    fsm.Stay[state](nil),
			},
		},
	}, idle)
	return r
}

// Send hands the request to sender and arms the reply timeout. completer
// runs once when the request settles. Calling Send again returns the same
// future and does nothing else.
func (r *Request) Send(sender func(Message) error, completer func()) *Future {
	r.m.Fire(evSend, sender, completer)
	return r.future
}

// Reply settles the request with msg. Later calls are ignored.
func (r *Request) Reply(msg Message) { r.m.Fire(evReply, msg) }

// Timeout settles the request with ErrTimeout. Later calls are ignored.
func (r *Request) Timeout() { r.m.Fire(evTimeout) }

// Fail settles the request with err.
func (r *Request) Fail(err error) { r.m.Fire(evFail, err) }

// Future returns the request's outcome.
func (r *Request) Future() *Future { return r.future }

func (r *Request) accept(args ...any) {
	r.sender, _ = args[0].(func(Message) error)
	r.completer, _ = args[1].(func())
}

func (r *Request) send() {
	r.stop = r.afterFunc(r.timeout, r.Timeout)
	if r.sender == nil {
		return
	}
	if err := r.sender(r.Data); err != nil {
		r.Fail(fmt.Errorf("sending request %d: %w", r.Data.MsgID, err))
	}
}

func (r *Request) disarm() {
	if r.stop != nil {
		r.stop()
	}
}

func (r *Request) settleReply(args ...any) {
	r.future.reply, _ = args[0].(Message)
}

// settleErr settles with err, or with the event's own error when err is nil.
func (r *Request) settleErr(err error) fsm.Action {
	return func(args ...any) {
		if err == nil && len(args) > 0 {
			err, _ = args[0].(error)
		}
		r.future.err = err
	}
}

func (r *Request) complete() {
	close(r.future.done)
	if r.completer != nil {
		r.completer()
	}
}
