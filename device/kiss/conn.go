package kiss

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrNotConnected is returned when sending on an endpoint with no link.
var ErrNotConnected = errors.New("kiss: not connected")

// Conn is a KISS framed link over a byte stream.
type Conn struct {
	rwc io.ReadWriteCloser

	wmu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn wraps rwc.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{rwc: rwc, closed: make(chan struct{})}
}

// Send writes one frame. The frame starts with its KISS command byte, as
// produced by ax25.Encode.
func (c *Conn) Send(frame []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.rwc.Write(Escape(frame)); err != nil {
		return fmt.Errorf("writing KISS frame: %w", err)
	}
	return nil
}

// Close closes the underlying stream. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.rwc.Close()
	})
	return err
}

// Closed is closed once Close has been called.
func (c *Conn) Closed() <-chan struct{} { return c.closed }

func (c *Conn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// serve reads until the stream fails, handing each de-escaped frame to
// onFrame. It returns nil if the stream ended because Close was called.
func (c *Conn) serve(bufSize int, onFrame func([]byte)) error {
	u := NewUnescaper(bufSize)
	buf := make([]byte, 4096)
	for {
		n, err := c.rwc.Read(buf)
		if n > 0 {
			for frame := range u.Feed(buf[:n]) {
				onFrame(frame)
			}
		}
		if err != nil {
			if c.isClosed() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("connection closed by peer: %w", err)
			}
			return fmt.Errorf("reading KISS stream: %w", err)
		}
		// Serial ports return (0, nil) when the read timeout passes.
		if n == 0 && c.isClosed() {
			return nil
		}
	}
}
