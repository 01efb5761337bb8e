package ax25_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"kissaprs/ax25"
	"kissaprs/device/kiss"
	"kissaprs/packet"
)

func addressGen() *rapid.Generator[packet.Address] {
	return rapid.Custom(func(t *rapid.T) packet.Address {
		return packet.Address{
			Callsign:        rapid.StringMatching(`[A-Z0-9]{1,6}`).Draw(t, "call"),
			SSID:            rapid.IntRange(0, 15).Draw(t, "ssid"),
			HasBeenRepeated: rapid.Bool().Draw(t, "repeated"),
			RR:              uint8(rapid.IntRange(0, 3).Draw(t, "rr")),
		}
	})
}

func TestBuildParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := packet.Frame{
			Header: packet.Header{
				Destination:  addressGen().Draw(t, "dest"),
				Source:       addressGen().Draw(t, "src"),
				RepeaterPath: rapid.SliceOfN(addressGen(), 0, ax25.MaxRepeaters).Draw(t, "path"),
			},
			Protocol: byte(rapid.IntRange(1, 255).Draw(t, "pid")),
			Info:     string(rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "info")),
		}
		if len(f.RepeaterPath) == 0 {
			f.RepeaterPath = nil
		}

		buf, err := ax25.Encode(f)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		frames := slices.Collect(kiss.NewUnescaper(0).Feed(kiss.Escape(buf)))
		if len(frames) != 1 {
			t.Fatalf("got %d frames", len(frames))
		}
		got, err := ax25.Decode(frames[0])
		if err != nil {
			t.Fatalf("decode: %v", err)
		}

		want := f.Clone()
		if err := ax25.Validate(&want); err != nil {
			t.Fatal(err)
		}
		if !assert.ObjectsAreEqual(want, *got) {
			t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, *got)
		}
	})
}

func TestRoundTripDerivesExtensionBits(t *testing.T) {
	f := packet.Frame{
		Header: packet.Header{
			Destination: packet.MustAddress("APRS", 0),
			Source:      packet.MustAddress("VE3GXV", 9),
			RepeaterPath: []packet.Address{
				packet.MustAddress("WIDE1", 1),
				packet.MustAddress("WIDE2", 2),
				packet.MustAddress("RELAY", 0),
			},
		},
		Info: ">test",
	}
	buf, err := ax25.Encode(f)
	require.NoError(t, err)
	got, err := ax25.Decode(buf)
	require.NoError(t, err)

	assert.False(t, got.Destination.ExtensionBit)
	assert.False(t, got.Source.ExtensionBit)
	assert.False(t, got.RepeaterPath[0].ExtensionBit)
	assert.False(t, got.RepeaterPath[1].ExtensionBit)
	assert.True(t, got.RepeaterPath[2].ExtensionBit)
	assert.Equal(t, ax25.PIDNoLayer3, got.Protocol)
}
