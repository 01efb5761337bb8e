// Package ax25 decodes and builds AX.25 UI frames as carried inside KISS
// data frames.
package ax25

import (
	"kissaprs/packet"
)

const (
	kissDataFrame byte = 0x00

	ControlUI   byte = 0x03
	PIDNoLayer3 byte = 0xF0

	// MaxRepeaters is the longest repeater path AX.25 allows.
	MaxRepeaters = 8
)

// Decode parses a de-escaped KISS data frame: command byte, destination,
// source, repeater path, control, PID and info. An empty buffer yields a
// nil frame and a nil error; it marks the end of a batch, not a failure.
// All other problems are reported as *packet.FrameError.
func Decode(buf []byte) (*packet.Frame, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if buf[0] != kissDataFrame {
		return nil, packet.FrameErrorf("expected data frame command 0, got 0x%02x", buf[0])
	}
	off := 1

	next := func() (packet.Address, error) {
		if off+AddrLen > len(buf) {
			return packet.Address{}, packet.FrameErrorf("incomplete address at %d", off)
		}
		a, err := DecodeAddress(buf[off : off+AddrLen])
		off += AddrLen
		return a, err
	}

	f := &packet.Frame{}
	var err error
	if f.Destination, err = next(); err != nil {
		return nil, err
	}
	if f.Source, err = next(); err != nil {
		return nil, err
	}
	for last := f.Source; !last.ExtensionBit; {
		if last, err = next(); err != nil {
			return nil, err
		}
		f.RepeaterPath = append(f.RepeaterPath, last)
	}

	if off >= len(buf) {
		return nil, packet.FrameErrorf("frame ended before control field")
	}
	if buf[off]&0xEF != ControlUI {
		return nil, packet.FrameErrorf("expected UI frame control, got 0x%02x", buf[off])
	}
	off++
	if off >= len(buf) {
		return nil, packet.FrameErrorf("frame ended before protocol id")
	}
	f.Protocol = buf[off]
	off++
	f.Info = string(buf[off:])
	return f, nil
}

// Encode builds the KISS data frame for f, command byte first, ready to be
// escaped onto the wire. f is validated on a copy; the caller's frame is
// not modified.
func Encode(f packet.Frame) ([]byte, error) {
	f.RepeaterPath = append([]packet.Address(nil), f.RepeaterPath...)
	if err := Validate(&f); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, Len(f))
	buf = append(buf, kissDataFrame)
	var err error
	if buf, err = AppendAddress(buf, f.Destination); err != nil {
		return nil, err
	}
	if buf, err = AppendAddress(buf, f.Source); err != nil {
		return nil, err
	}
	for _, a := range f.RepeaterPath {
		if buf, err = AppendAddress(buf, a); err != nil {
			return nil, err
		}
	}
	buf = append(buf, ControlUI, f.Protocol)
	return append(buf, f.Info...), nil
}

// Len is the size of the encoded frame, KISS command byte included.
func Len(f packet.Frame) int {
	return 17 + AddrLen*len(f.RepeaterPath) + len(f.Info)
}
