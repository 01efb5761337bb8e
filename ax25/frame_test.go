package ax25

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kissaprs/packet"
)

const beaconInfo = "!4335.12N/07938.98W-PHG4130/A=000522/Mississauga City Centre\r"

var beaconHeader = []byte{
	0x0,
	0x84, 0x8a, 0x82, 0x86, 0x9e, 0x9c, 0x60,
	0xac, 0x8a, 0x66, 0x8e, 0xb0, 0xac, 0x60,
	0xac, 0x8a, 0x66, 0xb2, 0x82, 0xa0, 0xe0,
	0xac, 0x8a, 0x66, 0x96, 0xae, 0xae, 0xe2,
	0xae, 0x92, 0x88, 0x8a, 0x64, 0x40, 0x63,
	0x3, 0xf0,
}

func beaconFrame() packet.Frame {
	return packet.Frame{
		Header: packet.Header{
			Destination: packet.MustAddress("BEACON", 0),
			Source:      packet.MustAddress("VE3GXV", 0),
			RepeaterPath: []packet.Address{
				packet.MustParseAddress("VE3YAP*"),
				packet.MustParseAddress("VE3KWW-1*"),
				packet.MustParseAddress("WIDE2-1"),
			},
		},
		Protocol: 240,
		Info:     beaconInfo,
	}
}

func TestDecodeAddress(t *testing.T) {
	a, err := DecodeAddress([]byte{0x9c, 0x94, 0x6e, 0xa0, 0x40, 0x40, 0xe0})
	require.NoError(t, err)
	assert.Equal(t, "NJ7P", a.Callsign)
	assert.Equal(t, 0, a.SSID)
	assert.True(t, a.HasBeenRepeated)
	assert.Equal(t, uint8(3), a.RR)
	assert.False(t, a.ExtensionBit)

	a, err = DecodeAddress([]byte{0x9c, 0x94, 0x6e, 0xa0, 0x40, 0x40, 0xe2})
	require.NoError(t, err)
	assert.Equal(t, "NJ7P", a.Callsign)
	assert.Equal(t, 1, a.SSID)

	_, err = DecodeAddress([]byte{0x9c, 0x94})
	assert.Error(t, err)
}

func TestEncodeBeacon(t *testing.T) {
	f := beaconFrame()
	buf, err := Encode(f)
	require.NoError(t, err)

	want := append(append([]byte(nil), beaconHeader...), beaconInfo...)
	assert.Equal(t, want, buf)
	assert.Equal(t, Len(f), len(buf))

	// The caller's frame is untouched.
	assert.False(t, f.RepeaterPath[2].ExtensionBit)
}

func TestDecodeBeacon(t *testing.T) {
	buf := append(append([]byte(nil), beaconHeader...), beaconInfo...)
	f, err := Decode(buf)
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, "BEACON", f.Destination.Callsign)
	assert.Equal(t, "VE3GXV", f.Source.Callsign)
	require.Len(t, f.RepeaterPath, 3)
	assert.Equal(t, "VE3YAP*,VE3KWW-1*,WIDE2-1", packet.PathString(f.RepeaterPath))
	assert.True(t, f.RepeaterPath[2].ExtensionBit)
	assert.Equal(t, byte(0xF0), f.Protocol)
	assert.Equal(t, beaconInfo, f.Info)
	assert.Equal(t, packet.TypeNone, f.DataType)
}

func TestDecodeRepeaterPath(t *testing.T) {
	buf := []byte{
		0x00,
		0x82, 0xa0, 0xa4, 0xa6, 0x40, 0x40, 0x60, // APRS
		0x9c, 0x94, 0x6e, 0xa0, 0x40, 0x40, 0x60, // NJ7P
		0x9c, 0x6e, 0x98, 0x8a, 0x9a, 0x40, 0xe0, // N7LEM*
		0x9c, 0x6e, 0x9e, 0x9e, 0x40, 0x40, 0x61, // N7OO
		0x03, 0xf0, '>', 'h', 'i',
	}
	f, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, "NJ7P", f.Source.Callsign)
	require.Len(t, f.RepeaterPath, 2)
	assert.Equal(t, "N7LEM", f.RepeaterPath[0].Callsign)
	assert.Equal(t, "N7OO", f.RepeaterPath[1].Callsign)
	assert.Equal(t, ">hi", f.Info)
}

func TestDecodeEmpty(t *testing.T) {
	f, err := Decode(nil)
	assert.NoError(t, err)
	assert.Nil(t, f)
}

func TestDecodeErrors(t *testing.T) {
	full := append(append([]byte(nil), beaconHeader...), beaconInfo...)
	badControl := append([]byte(nil), full...)
	badControl[36] = 0x13 | 0x20

	tests := []struct {
		name string
		buf  []byte
	}{
		{"command byte", append([]byte{0x01}, full[1:]...)},
		{"short destination", full[:4]},
		{"short source", full[:12]},
		{"truncated path", full[:25]},
		{"no control", full[:36]},
		{"non-UI control", badControl},
		{"no protocol", full[:37]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Decode(tc.buf)
			assert.Nil(t, f)
			var fe *packet.FrameError
			assert.True(t, errors.As(err, &fe), "got %v", err)
		})
	}
}

func TestDecodeAcceptsPollBit(t *testing.T) {
	buf := append(append([]byte(nil), beaconHeader...), beaconInfo...)
	buf[36] = 0x13
	_, err := Decode(buf)
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	f := beaconFrame()
	f.Protocol = 0
	for i := range f.RepeaterPath {
		f.RepeaterPath[i].ExtensionBit = true
	}
	f.Destination.ExtensionBit = true
	require.NoError(t, Validate(&f))
	assert.Equal(t, PIDNoLayer3, f.Protocol)
	assert.False(t, f.Destination.ExtensionBit)
	assert.False(t, f.Source.ExtensionBit)
	assert.False(t, f.RepeaterPath[0].ExtensionBit)
	assert.False(t, f.RepeaterPath[1].ExtensionBit)
	assert.True(t, f.RepeaterPath[2].ExtensionBit)

	f.RepeaterPath = nil
	require.NoError(t, Validate(&f))
	assert.True(t, f.Source.ExtensionBit)
}

func TestValidateErrors(t *testing.T) {
	nine := beaconFrame()
	for len(nine.RepeaterPath) < 9 {
		nine.RepeaterPath = append(nine.RepeaterPath, packet.MustAddress("WIDE1", 1))
	}
	noSource := beaconFrame()
	noSource.Source = packet.Address{}
	noDest := beaconFrame()
	noDest.Destination = packet.Address{}

	for name, f := range map[string]packet.Frame{
		"nine repeaters": nine,
		"no source":      noSource,
		"no destination": noDest,
	} {
		t.Run(name, func(t *testing.T) {
			var fe *packet.FormatError
			assert.True(t, errors.As(Validate(&f), &fe))
		})
	}
}

func TestEncodeRejectsBadAddress(t *testing.T) {
	f := beaconFrame()
	f.Source.Callsign = "VE3GXVX"
	_, err := Encode(f)
	var fe *packet.FormatError
	assert.True(t, errors.As(err, &fe))

	f = beaconFrame()
	f.RepeaterPath[0].SSID = 16
	_, err = Encode(f)
	assert.True(t, errors.As(err, &fe))
}
