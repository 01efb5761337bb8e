package kiss

import (
	"context"
	"net"
	"sync"

	"github.com/charmbracelet/log"

	"kissaprs/endpoint"
)

// Server listens for KISS clients over TCP, the way a software TNC does.
// Once enabled it opens the listening socket, emits Listening, and emits
// Connect for every client that arrives. If the socket cannot be opened or
// fails, it tries again after a delay.
type Server struct {
	emitter

	addr    string
	bufSize int
	ep      *endpoint.Endpoint
	listens endpoint.Attempts[net.Listener]
	listen  func(ctx context.Context, network, address string) (net.Listener, error)

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// NewServer returns an idle server for addr ("host:port").
func NewServer(addr string, opts ...Option) *Server {
	o := buildOptions(opts)
	s := &Server{
		addr:    addr,
		bufSize: o.bufferSize,
		listen:  new(net.ListenConfig).Listen,
		conns:   make(map[*Conn]struct{}),
	}
	s.ep = endpoint.New("kiss server "+addr, s, o.endpoint...)
	return s
}

// Enable opens the listening socket.
func (s *Server) Enable() { s.ep.Enable() }

// Disable closes the socket and every client.
func (s *Server) Disable() { s.ep.Disable() }

// State returns the socket state. Connected means listening.
func (s *Server) State() endpoint.State { return s.ep.State() }

// Addr returns the bound address while listening, nil otherwise.
func (s *Server) Addr() net.Addr {
	ln, ok := s.listens.Active()
	if !ok {
		return nil
	}
	return ln.Addr()
}

// Broadcast sends frame to every connected client and returns the first
// error seen.
func (s *Server) Broadcast(frame []byte) error {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var first error
	for _, c := range conns {
		if err := c.Send(frame); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Server) OpenConnection() {
	ctx, gen := s.listens.Start()
	s.emit(Event{Kind: Connecting})
	go func() {
		ln, err := s.listen(ctx, "tcp", s.addr)
		if err != nil {
			if s.listens.Current(gen) {
				s.emit(Event{Kind: Error, Err: err})
				s.ep.ConnectionFailed(err)
			}
			return
		}
		if s.listens.Offer(gen, ln) {
			s.ep.ConnectionSucceeded()
		}
	}()
}

func (s *Server) CloseConnection() { s.listens.Abandon() }

// EmitConnect emits Listening and starts accepting clients. A socket from
// an abandoned attempt is never used; the machine is told it failed.
func (s *Server) EmitConnect() {
	ln, gen, err := s.listens.Activate()
	if err != nil {
		log.Warn("dropping listener", "addr", s.addr, "err", err)
		s.ep.Error(err)
		return
	}
	log.Info("listening", "addr", ln.Addr())
	s.emit(Event{Kind: Listening})
	go s.accept(ln, gen)
}

// CloseConnectionAndEmitDisconnect closes the socket and all clients.
func (s *Server) CloseConnectionAndEmitDisconnect() {
	ln, listening := s.listens.Abandon()
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[*Conn]struct{})
	s.mu.Unlock()

	for c := range conns {
		c.Close()
	}
	if !listening {
		return
	}
	ln.Close()
	s.emit(Event{Kind: Disconnect})
}

func (s *Server) accept(ln net.Listener, gen uint64) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if s.listens.Current(gen) {
				s.emit(Event{Kind: Error, Err: err})
				s.ep.Error(err)
			}
			return
		}

		c := NewConn(nc)
		s.mu.Lock()
		if !s.listens.Current(gen) {
			s.mu.Unlock()
			c.Close()
			return
		}
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		log.Debug("client connected", "remote", nc.RemoteAddr())
		s.emit(Event{Kind: Connect, Conn: c})
		go s.serve(c)
	}
}

func (s *Server) serve(c *Conn) {
	err := c.serve(s.bufSize, func(frame []byte) {
		s.emit(Event{Kind: Data, Conn: c, Frame: frame})
	})
	c.Close()
	s.mu.Lock()
	_, tracked := s.conns[c]
	delete(s.conns, c)
	s.mu.Unlock()
	if !tracked {
		return
	}
	log.Debug("client disconnected", "err", err)
	s.emit(Event{Kind: Disconnect, Conn: c})
}
