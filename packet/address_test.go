package packet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddress(t *testing.T) {
	a, err := NewAddress(" ve3gxv ", 7)
	require.NoError(t, err)
	assert.Equal(t, "VE3GXV", a.Callsign)
	assert.Equal(t, 7, a.SSID)
	assert.Equal(t, uint8(DefaultRR), a.RR)
	assert.False(t, a.ExtensionBit)

	for _, tc := range []struct {
		name string
		call string
		ssid int
	}{
		{"empty", "", 0},
		{"too long", "VE3GXVX", 0},
		{"bad char", "VE3-X", 0},
		{"ssid high", "VE3GXV", 16},
		{"ssid negative", "VE3GXV", -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAddress(tc.call, tc.ssid)
			var fe *FormatError
			assert.True(t, errors.As(err, &fe), "got %v", err)
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in       string
		call     string
		ssid     int
		repeated bool
		ok       bool
	}{
		{"VE3YAP*", "VE3YAP", 0, true, true},
		{"VE3KWW-1*", "VE3KWW", 1, true, true},
		{"WIDE2-1", "WIDE2", 1, false, true},
		{"TCPIP", "TCPIP", 0, false, true},
		{"APU25N", "APU25N", 0, false, true},
		{"", "", 0, false, false},
		{"VE3KWW-16", "", 0, false, false},
		{"VE3KWW-", "", 0, false, false},
		{"ABCDEFGHIJ", "", 0, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			a, err := ParseAddress(tc.in)
			if !tc.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.call, a.Callsign)
			assert.Equal(t, tc.ssid, a.SSID)
			assert.Equal(t, tc.repeated, a.HasBeenRepeated)
		})
	}
}

func TestPathString(t *testing.T) {
	path := []Address{
		MustParseAddress("VE3YAP*"),
		MustParseAddress("VE3KWW-1*"),
		MustParseAddress("WIDE2-1"),
	}
	assert.Equal(t, "VE3YAP*,VE3KWW-1*,WIDE2-1", PathString(path))
	assert.Equal(t, "", PathString(nil))

	h := Header{
		Destination:  MustAddress("BEACON", 0),
		Source:       MustAddress("VE3GXV", 0),
		RepeaterPath: path,
	}
	assert.Equal(t, "VE3GXV>BEACON,VE3YAP*,VE3KWW-1*,WIDE2-1", h.String())
}

func TestFrameClone(t *testing.T) {
	f := Frame{
		Header:     Header{RepeaterPath: []Address{MustAddress("WIDE1", 1)}},
		Forwarding: []Header{{RepeaterPath: []Address{MustAddress("WIDE2", 2)}}},
	}
	c := f.Clone()
	c.RepeaterPath[0].SSID = 5
	c.Forwarding[0].RepeaterPath[0].SSID = 5
	assert.Equal(t, 1, f.RepeaterPath[0].SSID)
	assert.Equal(t, 2, f.Forwarding[0].RepeaterPath[0].SSID)
}

func TestDataTypeString(t *testing.T) {
	assert.Equal(t, "micEData", TypeMicE.String())
	assert.Equal(t, "undecoded", (&Undecoded{}).DataType().String())
	assert.Equal(t, "positionWithTimestamp", (&PositionReport{Timestamped: true}).DataType().String())
	assert.Equal(t, "positionWithoutTimestamp", (&PositionReport{}).DataType().String())
	assert.Equal(t, "unknown", DataType(99).String())
}
