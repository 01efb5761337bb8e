package kiss

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"kissaprs/config"
	"kissaprs/endpoint"
)

// Dialer opens the byte stream to a TNC.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// NewDialer picks a Dialer for the interface config. Type "kiss" means TCP
// when the device looks like host:port and serial otherwise.
func NewDialer(conf config.InterfaceConfig) (Dialer, error) {
	switch strings.ToLower(conf.Type) {
	case "tcp":
		return TCPDialer{Address: conf.Device}, nil
	case "serial":
		return SerialDialer{Device: conf.Device, Baud: conf.Baud}, nil
	case "kiss":
		if strings.Contains(conf.Device, ":") {
			return TCPDialer{Address: conf.Device}, nil
		}
		return SerialDialer{Device: conf.Device, Baud: conf.Baud}, nil
	default:
		return nil, fmt.Errorf("unknown interface type: %s", conf.Type)
	}
}

// Option configures an Endpoint or Server.
type Option func(*options)

type options struct {
	bufferSize int
	params     Params
	endpoint   []endpoint.Option
}

// WithBufferSize sets the largest frame accepted from the link.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufferSize = n }
}

// WithParams sets the TNC parameters an Endpoint sends on every connect.
func WithParams(p Params) Option {
	return func(o *options) { o.params = p }
}

// WithEndpointOptions passes options to the underlying connection machine.
func WithEndpointOptions(opts ...endpoint.Option) Option {
	return func(o *options) { o.endpoint = append(o.endpoint, opts...) }
}

func buildOptions(opts []Option) options {
	o := options{bufferSize: DefaultBufferSize}
	for _, f := range opts {
		f(&o)
	}
	return o
}

// Endpoint keeps a KISS link to a TNC open. Once enabled it dials, emits
// Connect, reads frames as Data events, and redials after a delay whenever
// the link fails.
type Endpoint struct {
	emitter

	name    string
	dialer  Dialer
	bufSize int
	params  Params
	ep      *endpoint.Endpoint
	dials   endpoint.Attempts[io.ReadWriteCloser]

	mu   sync.Mutex
	conn *Conn
}

// NewEndpoint returns an idle endpoint that dials with d.
func NewEndpoint(name string, d Dialer, opts ...Option) *Endpoint {
	o := buildOptions(opts)
	e := &Endpoint{name: name, dialer: d, bufSize: o.bufferSize, params: o.params}
	e.ep = endpoint.New(name, e, o.endpoint...)
	return e
}

// Enable starts connecting.
func (e *Endpoint) Enable() { e.ep.Enable() }

// Disable drops the link and stops reconnecting.
func (e *Endpoint) Disable() { e.ep.Disable() }

// State returns the connection state.
func (e *Endpoint) State() endpoint.State { return e.ep.State() }

// LastError returns the most recent connection failure.
func (e *Endpoint) LastError() error { return e.ep.LastError() }

// Send writes a frame on the current link.
func (e *Endpoint) Send(frame []byte) error {
	e.mu.Lock()
	c := e.conn
	e.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.Send(frame)
}

// OpenConnection dials in the background.
func (e *Endpoint) OpenConnection() {
	ctx, gen := e.dials.Start()
	log.Info("connecting", "endpoint", e.name, "dialer", e.dialer)
	e.emit(Event{Kind: Connecting})
	go Dial(ctx, e.dialer, gen, &e.dials, e.ep, func(err error) {
		e.emit(Event{Kind: Error, Err: err})
	})
}

// CloseConnection abandons a dial in progress.
func (e *Endpoint) CloseConnection() { e.dials.Abandon() }

// EmitConnect wraps the dialed stream, announces it and starts reading. If
// the dial that got the machine here was abandoned, nothing is announced and
// the machine is told the link failed.
func (e *Endpoint) EmitConnect() {
	rwc, gen, err := e.dials.Activate()
	if err != nil {
		log.Warn("dropping connection", "endpoint", e.name, "err", err)
		e.ep.Error(err)
		return
	}
	c := NewConn(rwc)
	e.mu.Lock()
	e.conn = c
	e.mu.Unlock()

	e.emit(Event{Kind: Connect, Conn: c})
	go e.read(c, gen)
	if frames := e.params.Frames(); len(frames) > 0 {
		go e.configure(c, frames)
	}
}

func (e *Endpoint) configure(c *Conn, frames [][]byte) {
	for _, f := range frames {
		if err := c.Send(f); err != nil {
			log.Warn("setting TNC parameters", "endpoint", e.name, "err", err)
			return
		}
	}
	log.Debug("TNC parameters set", "endpoint", e.name, "frames", len(frames))
}

// CloseConnectionAndEmitDisconnect closes the link.
func (e *Endpoint) CloseConnectionAndEmitDisconnect() {
	rwc, active := e.dials.Abandon()
	e.mu.Lock()
	c := e.conn
	e.conn = nil
	e.mu.Unlock()

	if c == nil {
		if active {
			rwc.Close()
		}
		return
	}
	c.Close()
	log.Info("disconnected", "endpoint", e.name)
	e.emit(Event{Kind: Disconnect, Conn: c})
}

func (e *Endpoint) read(c *Conn, gen uint64) {
	err := c.serve(e.bufSize, func(frame []byte) {
		e.emit(Event{Kind: Data, Conn: c, Frame: frame})
	})
	if err == nil || !e.dials.Current(gen) {
		return
	}
	e.emit(Event{Kind: Error, Conn: c, Err: err})
	e.ep.Error(err)
}

// Dial runs one connection attempt for a Binding and reports the outcome to
// ep. A result for an attempt that is no longer current is closed and not
// reported. onFail, if set, sees failures of the current attempt first.
func Dial(ctx context.Context, d Dialer, gen uint64, dials *endpoint.Attempts[io.ReadWriteCloser], ep *endpoint.Endpoint, onFail func(error)) {
	rwc, err := d.Dial(ctx)
	if err != nil {
		if !dials.Current(gen) {
			return
		}
		if onFail != nil {
			onFail(err)
		}
		ep.ConnectionFailed(err)
		return
	}
	if dials.Offer(gen, rwc) {
		ep.ConnectionSucceeded()
	}
}
