package kiss

import (
	"bytes"
	"io"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func collect(u *Unescaper, chunk []byte) [][]byte {
	return slices.Collect(u.Feed(chunk))
}

func TestEscape(t *testing.T) {
	in := []byte{0x00, 'A', FEND, 'B', FESC, 'C'}
	want := []byte{FEND, 0x00, 'A', FESC, TFEND, 'B', FESC, TFESC, 'C', FEND}
	assert.Equal(t, want, Escape(in))
	assert.Equal(t, want, EscapeCommand(CmdDataFrame, in[1:]))
	assert.Equal(t, []byte{FEND, FEND}, Escape(nil))
}

func TestUnescaperSkipsUntilFirstFEND(t *testing.T) {
	u := NewUnescaper(0)
	frames := collect(u, []byte{'n', 'o', 'i', 's', 'e', FEND, 'a', 'b', FEND})
	assert.Equal(t, [][]byte{[]byte("ab")}, frames)
}

func TestUnescaperRepeatedFENDs(t *testing.T) {
	u := NewUnescaper(0)
	frames := collect(u, []byte{FEND, FEND, FEND, 'x', FEND, FEND, 'y', FEND})
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y")}, frames)
}

func TestUnescaperSplitAcrossChunks(t *testing.T) {
	u := NewUnescaper(0)
	assert.Empty(t, collect(u, []byte{FEND, 'a', FESC}))
	assert.Empty(t, collect(u, []byte{TFEND, 'b'}))
	frames := collect(u, []byte{FESC, TFESC, FEND})
	assert.Equal(t, [][]byte{{'a', FEND, 'b', FESC}}, frames)
}

func TestUnescaperBadEscapeIsDropped(t *testing.T) {
	u := NewUnescaper(0)
	frames := collect(u, []byte{FEND, 'a', FESC, 'q', 'b', FEND})
	assert.Equal(t, [][]byte{[]byte("ab")}, frames)

	// A FEND right after FESC is swallowed by the escape.
	frames = collect(u, []byte{'c', FESC, FEND, 'd', FEND})
	assert.Equal(t, [][]byte{[]byte("cd")}, frames)
}

func TestUnescaperOverflow(t *testing.T) {
	u := NewUnescaper(4)
	in := []byte{FEND, '1', '2', '3', '4', '5', '6', FEND, 'o', 'k', FEND}
	assert.Equal(t, [][]byte{[]byte("ok")}, collect(u, in))

	// Exactly at capacity is fine.
	assert.Equal(t, [][]byte{[]byte("1234")}, collect(u, []byte{'1', '2', '3', '4', FEND}))
}

func TestUnescaperIsRestartable(t *testing.T) {
	u := NewUnescaper(0)
	u.Push([]byte{FEND, 'a', FEND, 'b', FEND, 'c', FEND})

	var got [][]byte
	for f := range u.Frames() {
		got = append(got, f)
		break
	}
	assert.Equal(t, [][]byte{[]byte("a")}, got)

	got = slices.Collect(u.Frames())
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, got)
}

func TestUnescaperFramesAreIndependent(t *testing.T) {
	u := NewUnescaper(0)
	frames := collect(u, []byte{FEND, 'a', FEND, 'b', FEND})
	require.Len(t, frames, 2)
	frames[0][0] = 'z'
	assert.Equal(t, []byte("b"), frames[1])
}

func TestUnescaperReset(t *testing.T) {
	u := NewUnescaper(0)
	assert.Empty(t, collect(u, []byte{FEND, 'a', 'b'}))
	u.Reset()
	assert.Empty(t, collect(u, []byte{'c', FEND}))
	assert.Equal(t, [][]byte{[]byte("d")}, collect(u, []byte{'d', FEND}))
}

func TestEscapeUnescapeInverse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOfN(rapid.Byte(), 1, DefaultBufferSize).Draw(t, "in")
		wire := Escape(in)

		// Deliver the wire bytes in arbitrary chunks.
		cuts := rapid.SliceOf(rapid.IntRange(0, len(wire))).Draw(t, "cuts")
		slices.Sort(cuts)
		u := NewUnescaper(0)
		var got [][]byte
		prev := 0
		for _, c := range append(cuts, len(wire)) {
			got = append(got, collect(u, wire[prev:c])...)
			prev = c
		}
		if len(got) != 1 || !bytes.Equal(got[0], in) {
			t.Fatalf("round trip of %x gave %x", in, got)
		}
	})
}

func TestDecoderReadFrame(t *testing.T) {
	var stream []byte
	stream = append(stream, Escape([]byte{0x00, 'h', 'i', FEND})...)
	stream = append(stream, EscapeCommand(CmdDataFrame, []byte("there"))...)

	d := NewDecoder(bytes.NewReader(stream))
	f, err := d.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 'h', 'i', FEND}, f)

	f, err = d.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00there"), f)

	_, err = d.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}
