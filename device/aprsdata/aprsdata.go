// Package aprsdata is a client for peers that exchange decoded APRS traffic
// as JSON lines. Each line is one request.Message. Requests carry a msgId
// and are answered by a message whose replyTo names it; everything else is
// handed to subscribers.
package aprsdata

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	jsoniter "github.com/json-iterator/go"

	"kissaprs/device/kiss"
	"kissaprs/endpoint"
	"kissaprs/request"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotConnected is returned when sending with no connection.
var ErrNotConnected = errors.New("aprsdata: not connected")

// maxLine bounds a single JSON line.
const maxLine = 64 * 1024

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the TCP dialer.
func WithDialer(d kiss.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithEndpointOptions passes options to the connection machine.
func WithEndpointOptions(opts ...endpoint.Option) Option {
	return func(c *Client) { c.epOpts = append(c.epOpts, opts...) }
}

// WithRequestOptions passes options to the request table.
func WithRequestOptions(opts ...request.Option) Option {
	return func(c *Client) { c.reqOpts = append(c.reqOpts, opts...) }
}

// Client keeps a connection to a data peer and correlates requests with
// replies.
type Client struct {
	addr     string
	dialer   kiss.Dialer
	epOpts   []endpoint.Option
	reqOpts  []request.Option
	ep       *endpoint.Endpoint
	requests *request.Table

	dials endpoint.Attempts[io.ReadWriteCloser]

	wmu sync.Mutex

	smu  sync.Mutex
	next int
	subs map[int]func(request.Message)
}

// NewClient returns an idle client for the peer at addr ("host:port").
func NewClient(addr string, opts ...Option) *Client {
	c := &Client{
		addr:   addr,
		dialer: kiss.TCPDialer{Address: addr},
		subs:   make(map[int]func(request.Message)),
	}
	for _, o := range opts {
		o(c)
	}
	c.requests = request.NewTable(c.reqOpts...)
	c.ep = endpoint.New("aprsdata "+addr, c, c.epOpts...)
	return c
}

// Enable starts connecting.
func (c *Client) Enable() { c.ep.Enable() }

// Disable drops the connection and stops reconnecting.
func (c *Client) Disable() { c.ep.Disable() }

// Close disables the client and fails every outstanding request.
func (c *Client) Close() {
	c.Disable()
	c.requests.Close()
}

// State returns the connection state.
func (c *Client) State() endpoint.State { return c.ep.State() }

// Subscribe registers f for messages that are not replies to our requests.
func (c *Client) Subscribe(f func(request.Message)) (cancel func()) {
	c.smu.Lock()
	defer c.smu.Unlock()
	id := c.next
	c.next++
	c.subs[id] = f
	return func() {
		c.smu.Lock()
		delete(c.subs, id)
		c.smu.Unlock()
	}
}

// Request sends a message of type typ and waits for its reply.
func (c *Client) Request(ctx context.Context, typ string, payload any) (request.Message, error) {
	msg, err := newMessage(typ, payload)
	if err != nil {
		return request.Message{}, err
	}
	return c.requests.Initiate(msg, c.send).Wait(ctx)
}

// Notify sends a message that expects no reply.
func (c *Client) Notify(typ string, payload any) error {
	msg, err := newMessage(typ, payload)
	if err != nil {
		return err
	}
	return c.send(msg)
}

// Reply answers a request received from the peer.
func (c *Client) Reply(to request.Message, typ string, payload any) error {
	msg, err := newMessage(typ, payload)
	if err != nil {
		return err
	}
	msg.ReplyTo = to.MsgID
	return c.send(msg)
}

func newMessage(typ string, payload any) (request.Message, error) {
	msg := request.Message{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return msg, fmt.Errorf("encoding %s payload: %w", typ, err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

func (c *Client) send(msg request.Message) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	conn, ok := c.dials.Active()
	if !ok {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = conn.Write(line)
	return err
}

func (c *Client) OpenConnection() {
	ctx, gen := c.dials.Start()
	go kiss.Dial(ctx, c.dialer, gen, &c.dials, c.ep, nil)
}

func (c *Client) CloseConnection() { c.dials.Abandon() }

func (c *Client) EmitConnect() {
	conn, gen, err := c.dials.Activate()
	if err != nil {
		log.Warn("dropping data peer connection", "addr", c.addr, "err", err)
		c.ep.Error(err)
		return
	}
	log.Info("data peer connected", "addr", c.addr)
	go c.read(conn, gen)
}

func (c *Client) CloseConnectionAndEmitDisconnect() {
	conn, ok := c.dials.Abandon()
	if !ok {
		return
	}
	conn.Close()
	log.Info("data peer disconnected", "addr", c.addr)
}

func (c *Client) read(conn io.Reader, gen uint64) {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), maxLine)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg request.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Warn("bad message from data peer", "addr", c.addr, "err", err)
			continue
		}
		if c.requests.Incoming(msg) {
			continue
		}
		c.deliver(msg)
	}

	err := sc.Err()
	if err == nil {
		err = io.EOF
	}
	if c.dials.Current(gen) {
		c.ep.Error(fmt.Errorf("data peer %s: %w", c.addr, err))
	}
}

func (c *Client) deliver(msg request.Message) {
	c.smu.Lock()
	fs := make([]func(request.Message), 0, len(c.subs))
	for _, f := range c.subs {
		fs = append(fs, f)
	}
	c.smu.Unlock()
	for _, f := range fs {
		f(msg)
	}
}
