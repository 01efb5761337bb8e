package kiss

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

const (
	DefaultBaud              = 9600
	DefaultSerialReadTimeout = time.Second
)

// SerialDialer opens a KISS TNC on a serial port.
type SerialDialer struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// Dial opens the port. ctx is checked before opening; serial.Open itself
// does not block for long.
func (d SerialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if d.Device == "" {
		return nil, fmt.Errorf("no device path (e.g., /dev/ttyUSB0 or COM3) provided for KISS serial")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: d.Baud,
	}
	if mode.BaudRate <= 0 {
		mode.BaudRate = DefaultBaud
	}

	port, err := serial.Open(d.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", d.Device, err)
	}

	// Read must return now and then so a closed link is noticed.
	timeout := d.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultSerialReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return port, nil
}

func (d SerialDialer) String() string { return "serial " + d.Device }
