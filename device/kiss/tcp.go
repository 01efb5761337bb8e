package kiss

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultDialTimeout bounds a TCP connection attempt.
const DefaultDialTimeout = 10 * time.Second

// TCPDialer connects to a KISS TNC over TCP (e.g. "192.168.1.30:8001").
type TCPDialer struct {
	Address string
	Timeout time.Duration
}

// Dial connects to the TNC at d.Address.
func (d TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if d.Address == "" {
		return nil, fmt.Errorf("no device address (ip:port) provided for KISS TCP")
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	nd := net.Dialer{Timeout: timeout}
	conn, err := nd.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to KISS TNC at %s: %w", d.Address, err)
	}
	return conn, nil
}

func (d TCPDialer) String() string { return "tcp " + d.Address }
