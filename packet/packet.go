package packet

import "strings"

// DataType identifies which APRS sub-grammar decoded a frame's info field.
type DataType int

const (
	TypeNone                     DataType = iota // Not yet run through the info parser
	TypeStatus                                   // '>'
	TypeTelemetry                                // 'T'
	TypePositionWithTimestamp                    // '/' and '@'
	TypePositionWithoutTimestamp                 // '!' and '='
	TypeMicE                                     // '`' and '\''
	TypeMessage                                  // ':'
	TypeObject                                   // ';'
	TypeStationCapabilities                      // '<'
	TypeUndecoded                                // The info field failed to parse
)

var dataTypeNames = [...]string{
	TypeNone:                     "",
	TypeStatus:                   "status",
	TypeTelemetry:                "telemetry",
	TypePositionWithTimestamp:    "positionWithTimestamp",
	TypePositionWithoutTimestamp: "positionWithoutTimestamp",
	TypeMicE:                     "micEData",
	TypeMessage:                  "message",
	TypeObject:                   "object",
	TypeStationCapabilities:      "stationCapabilities",
	TypeUndecoded:                "undecoded",
}

func (t DataType) String() string {
	if t < 0 || int(t) >= len(dataTypeNames) {
		return "unknown"
	}
	return dataTypeNames[t]
}

// Header is the addressing part of a frame: who sent it, to what
// destination, and through which repeaters.
type Header struct {
	Destination  Address
	Source       Address
	RepeaterPath []Address
}

// String renders the header in TNC2 monitor form, e.g. "VE3GXV>BEACON,WIDE2-1".
func (h Header) String() string {
	var b strings.Builder
	b.WriteString(h.Source.String())
	b.WriteByte('>')
	b.WriteString(h.Destination.String())
	if len(h.RepeaterPath) > 0 {
		b.WriteByte(',')
		b.WriteString(PathString(h.RepeaterPath))
	}
	return b.String()
}

// Frame is a single AX.25 UI frame. The info parser fills in DataType and
// Payload; frames straight off the AX.25 codec have TypeNone and a nil Payload.
type Frame struct {
	Header
	Protocol byte   // AX.25 PID, 0xF0 = no layer 3
	Info     string // Raw information field

	DataType DataType
	Payload  Payload

	// Forwarding holds the original addressing of third-party traffic,
	// outermost first. Header then carries the embedded packet's addressing.
	Forwarding []Header
}

// Clone returns a copy of f that shares no slices with it.
func (f Frame) Clone() Frame {
	c := f
	c.RepeaterPath = clonePath(f.RepeaterPath)
	if f.Forwarding != nil {
		c.Forwarding = make([]Header, len(f.Forwarding))
		for i, h := range f.Forwarding {
			h.RepeaterPath = clonePath(h.RepeaterPath)
			c.Forwarding[i] = h
		}
	}
	return c
}

// Position returns the frame's position, if its payload carries one.
func (f Frame) Position() (Position, bool) {
	switch p := f.Payload.(type) {
	case *PositionReport:
		return p.Position, true
	case *MicE:
		return p.Position, true
	case *Object:
		return p.Position, true
	}
	return Position{}, false
}

// Station names what the frame reports on: the object for object reports,
// otherwise the source callsign.
func (f Frame) Station() string {
	if o, ok := f.Payload.(*Object); ok && o.Name != "" {
		return o.Name
	}
	return f.Source.String()
}

func clonePath(p []Address) []Address {
	if p == nil {
		return nil
	}
	return append([]Address(nil), p...)
}
