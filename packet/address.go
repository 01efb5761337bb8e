package packet

import (
	"fmt"
	"strconv"
	"strings"
)

// Address limits imposed by the 7-byte AX.25 address field.
const (
	MaxCallsignLen = 6
	MaxSSID        = 15
	DefaultRR      = 3
)

// Address is one entry in an AX.25 address chain.
type Address struct {
	Callsign        string
	SSID            int
	HasBeenRepeated bool
	RR              uint8 // 2-bit reserved field
	ExtensionBit    bool  // Set on the last address of the chain
}

// NewAddress builds an address suitable for transmission. The callsign is
// trimmed and upper-cased, then checked against what fits in an AX.25
// address field.
func NewAddress(callsign string, ssid int) (Address, error) {
	call := strings.ToUpper(strings.TrimSpace(callsign))
	if err := ValidateCallsign(call); err != nil {
		return Address{}, err
	}
	if ssid < 0 || ssid > MaxSSID {
		return Address{}, FormatErrorf("ssid %d out of range 0-%d", ssid, MaxSSID)
	}
	return Address{Callsign: call, SSID: ssid, RR: DefaultRR}, nil
}

// MustAddress is like NewAddress but panics on error. It is meant for
// fixed addresses in code and tests.
func MustAddress(callsign string, ssid int) Address {
	a, err := NewAddress(callsign, ssid)
	if err != nil {
		panic(err)
	}
	return a
}

// ValidateCallsign reports whether call can be encoded into an AX.25
// address: 1-6 characters from A-Z and 0-9.
func ValidateCallsign(call string) error {
	if len(call) == 0 {
		return FormatErrorf("empty callsign")
	}
	if len(call) > MaxCallsignLen {
		return FormatErrorf("callsign %q longer than %d characters", call, MaxCallsignLen)
	}
	for i := 0; i < len(call); i++ {
		c := call[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return FormatErrorf("invalid character %q in callsign %q", c, call)
		}
	}
	return nil
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a.Callsign == ""
}

// String returns CALL or CALL-SSID. The repeated marker is not included.
func (a Address) String() string {
	if a.SSID == 0 {
		return a.Callsign
	}
	return a.Callsign + "-" + strconv.Itoa(a.SSID)
}

// PathString renders a repeater path the way monitors show it,
// e.g. "VE3YAP*,VE3KWW-1*,WIDE2-1".
func PathString(path []Address) string {
	var b strings.Builder
	for i, a := range path {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
		if a.HasBeenRepeated {
			b.WriteByte('*')
		}
	}
	return b.String()
}

// ParseAddress reads an address in TNC2 text form: "CALL", "CALL-N" or
// either followed by '*' when the station has repeated the frame. TNC2
// headers carry names that never go on air (TCPIP, network ids), so up to
// 9 characters are accepted here.
func ParseAddress(s string) (Address, error) {
	a := Address{RR: DefaultRR}
	if strings.HasSuffix(s, "*") {
		a.HasBeenRepeated = true
		s = s[:len(s)-1]
	}
	call, ssid, hasSSID := strings.Cut(s, "-")
	if len(call) == 0 || len(call) > 9 {
		return Address{}, FormatErrorf("bad callsign %q", s)
	}
	for i := 0; i < len(call); i++ {
		c := call[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return Address{}, FormatErrorf("invalid character %q in callsign %q", c, s)
		}
	}
	a.Callsign = call
	if hasSSID {
		n, err := strconv.Atoi(ssid)
		if err != nil || len(ssid) > 2 || n < 0 || n > MaxSSID {
			return Address{}, FormatErrorf("bad ssid in %q", s)
		}
		a.SSID = n
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(fmt.Sprintf("packet: %v", err))
	}
	return a
}
