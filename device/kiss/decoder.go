package kiss

import (
	"bufio"
	"io"
	"iter"

	"github.com/charmbracelet/log"
)

// KISS protocol constants
const (
	FEND  byte = 0xC0 // Frame End
	FESC  byte = 0xDB // Frame Escape
	TFEND byte = 0xDC // Transposed Frame End
	TFESC byte = 0xDD // Transposed Frame Escape
)

// KISS command codes, the first byte inside a frame (port 0).
const (
	CmdDataFrame   byte = 0x00
	CmdTxDelay     byte = 0x01
	CmdPersistence byte = 0x02
	CmdSlotTime    byte = 0x03
	CmdTxTail      byte = 0x04
	CmdFullDuplex  byte = 0x05
)

// DefaultBufferSize is the largest de-escaped frame kept by default.
// APRS frames are far shorter.
const DefaultBufferSize = 1024

type state int

const (
	stateIdle    state = iota // Discarding until the first FEND
	statePlain                // Accumulating frame bytes
	stateEscaped              // Previous byte was FESC
	stateIgnore               // Frame overflowed, discarding until FEND
)

// Unescaper turns a KISS byte stream, delivered in arbitrary chunks, into
// de-escaped frames. Frames larger than the buffer are dropped silently.
type Unescaper struct {
	state   state
	size    int
	buf     []byte
	pending []byte
}

// NewUnescaper returns an Unescaper whose frames are at most size bytes.
// A size of zero or less selects DefaultBufferSize.
func NewUnescaper(size int) *Unescaper {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Unescaper{size: size, buf: make([]byte, 0, size)}
}

// Push queues a chunk of the stream for decoding.
func (u *Unescaper) Push(chunk []byte) {
	u.pending = append(u.pending, chunk...)
}

// Frames lazily decodes queued bytes, yielding each complete frame. Stopping
// the iteration early leaves the remaining bytes queued for the next call.
func (u *Unescaper) Frames() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(u.pending) > 0 {
			b := u.pending[0]
			u.pending = u.pending[1:]
			if frame := u.step(b); frame != nil && !yield(frame) {
				break
			}
		}
		if len(u.pending) == 0 {
			u.pending = nil
		}
	}
}

// Feed queues chunk and returns the frames now available.
func (u *Unescaper) Feed(chunk []byte) iter.Seq[[]byte] {
	u.Push(chunk)
	return u.Frames()
}

// Reset drops queued input and any partial frame, and waits for a new FEND.
func (u *Unescaper) Reset() {
	u.state = stateIdle
	u.buf = u.buf[:0]
	u.pending = nil
}

// step advances the state machine by one byte and returns a frame when b
// completes one.
func (u *Unescaper) step(b byte) []byte {
	switch u.state {
	case stateIdle, stateIgnore:
		if b == FEND {
			u.state = statePlain
		}
	case statePlain:
		switch b {
		case FEND:
			return u.flush()
		case FESC:
			u.state = stateEscaped
		default:
			u.put(b)
		}
	case stateEscaped:
		// Any other byte, FEND included, is a bad escape and is dropped.
		u.state = statePlain
		switch b {
		case TFESC:
			u.put(FESC)
		case TFEND:
			u.put(FEND)
		}
	}
	return nil
}

func (u *Unescaper) put(b byte) {
	if len(u.buf) >= u.size {
		log.Debug("kiss frame overflow, dropping", "limit", u.size)
		u.buf = u.buf[:0]
		u.state = stateIgnore
		return
	}
	u.buf = append(u.buf, b)
}

func (u *Unescaper) flush() []byte {
	if len(u.buf) == 0 {
		return nil
	}
	frame := make([]byte, len(u.buf))
	copy(frame, u.buf)
	u.buf = u.buf[:0]
	return frame
}

// Decoder reads KISS frames from an io.Reader
type Decoder struct {
	r *bufio.Reader
	u *Unescaper
}

// NewDecoder creates a new KISS frame decoder
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderSize(r, DefaultBufferSize)
}

// NewDecoderSize creates a decoder that drops frames longer than size.
func NewDecoderSize(r io.Reader, size int) *Decoder {
	return &Decoder{r: bufio.NewReader(r), u: NewUnescaper(size)}
}

// ReadFrame blocks until a complete, de-escaped frame has been read.
// The frame still starts with its KISS command byte.
func (d *Decoder) ReadFrame() ([]byte, error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if frame := d.u.step(b); frame != nil {
			return frame, nil
		}
	}
}
