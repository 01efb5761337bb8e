package ax25

import (
	"strings"

	"kissaprs/packet"
)

// AddrLen is the size of one encoded AX.25 address.
const AddrLen = 7

// DecodeAddress decodes a 7-byte AX.25 address field. Each of the first six
// bytes holds an ASCII character shifted left by one; the seventh packs
// the SSID, the has-been-repeated flag, the reserved bits and the extension
// bit.
func DecodeAddress(b []byte) (packet.Address, error) {
	if len(b) < AddrLen {
		return packet.Address{}, packet.FrameErrorf("address length is %d, not %d bytes", len(b), AddrLen)
	}
	var call [6]byte
	for i := range call {
		call[i] = b[i] >> 1
	}
	last := b[6]
	return packet.Address{
		Callsign:        strings.TrimSpace(string(call[:])),
		SSID:            int(last>>1) & 0x0F,
		HasBeenRepeated: last&0x80 != 0,
		RR:              (last >> 5) & 0x03,
		ExtensionBit:    last&0x01 != 0,
	}, nil
}

// AppendAddress appends the 7-byte encoding of a to dst. The callsign is
// space padded to six characters.
func AppendAddress(dst []byte, a packet.Address) ([]byte, error) {
	if err := packet.ValidateCallsign(a.Callsign); err != nil {
		return dst, err
	}
	if a.SSID < 0 || a.SSID > packet.MaxSSID {
		return dst, packet.FormatErrorf("ssid %d out of range 0-%d", a.SSID, packet.MaxSSID)
	}
	for i := 0; i < 6; i++ {
		c := byte(' ')
		if i < len(a.Callsign) {
			c = a.Callsign[i]
		}
		dst = append(dst, c<<1)
	}
	last := byte(a.SSID)<<1 | (a.RR&0x03)<<5
	if a.HasBeenRepeated {
		last |= 0x80
	}
	if a.ExtensionBit {
		last |= 0x01
	}
	return append(dst, last), nil
}
