package packet

import "time"

// Payload is the decoded content of an info field. Each variant carries only
// its own fields; the concrete type always agrees with Frame.DataType.
type Payload interface {
	DataType() DataType
}

// Coords is a location with its precision and optional motion.
type Coords struct {
	Latitude  float64 // Signed degrees, north positive
	Longitude float64 // Signed degrees, east positive
	Accuracy  float64 // Meters, from position ambiguity
	Altitude  *float64
	Speed     *float64 // m/s
	Heading   *float64 // Degrees
}

// PHG is the power-height-gain-directivity data extension.
type PHG struct {
	Power       int  // Watts
	Height      int  // Feet above average terrain
	Gain        int  // dB
	Directivity *int // Degrees, nil for omni
}

// Position is a location report with its map symbol.
type Position struct {
	Coords        Coords
	SymbolTableID byte
	SymbolID      byte
	Timestamp     *time.Time
	PHG           *PHG
}

// Weather readings, keyed by name. A key is present only when its marker
// appeared in the comment.
type Weather map[string]float64

const (
	WindDirection     = "windDirection"
	WindSpeed         = "windSpeed"
	Gust              = "gust"
	Temperature       = "temperature"
	RainLastHour      = "rainLastHour"
	RainLast24Hour    = "rainLast24Hour"
	RainSinceMidnight = "rainSinceMidnight"
	Humidity          = "humidity"
	Barometer         = "barometer"
)

// Status is a '>' status report.
type Status struct {
	Timestamp *time.Time
	Text      string
}

func (*Status) DataType() DataType { return TypeStatus }

// Telemetry is a 'T' telemetry report.
type Telemetry struct {
	SequenceNumber *int // nil for MIC reports
	Values         [5]int
	Flags          uint8
	Comment        string
}

func (*Telemetry) DataType() DataType { return TypeTelemetry }

// PositionReport is a plain position, with or without a timestamp.
type PositionReport struct {
	Position
	Timestamped  bool
	HasMessaging bool
	Comment      string
	Weather      Weather // Set only for the weather symbol '_'
}

func (p *PositionReport) DataType() DataType {
	if p.Timestamped {
		return TypePositionWithTimestamp
	}
	return TypePositionWithoutTimestamp
}

// MicEMessageType tells which table a Mic-E message code is read from.
type MicEMessageType int

const (
	MicEStandard MicEMessageType = iota
	MicECustom
	MicEUndefined // Mixed standard and custom bits
)

func (t MicEMessageType) String() string {
	switch t {
	case MicEStandard:
		return "standard"
	case MicECustom:
		return "custom"
	}
	return "undefined"
}

// MicE is a position encoded across the destination callsign and info field.
type MicE struct {
	Position
	MessageBits uint8 // 3 bits, A/B/C from the first three destination characters
	MessageType MicEMessageType
	Message     string // Empty when MessageType is MicEUndefined
	Comment     string
}

func (*MicE) DataType() DataType { return TypeMicE }

// Message is a ':' message addressed to a station.
type Message struct {
	Addressee       string
	Text            string
	ID              string
	ReplyAckCapable bool
	ReplyAck        string
}

func (*Message) DataType() DataType { return TypeMessage }

// Object is a ';' object report.
type Object struct {
	Name   string
	Killed bool
	PositionReport
}

func (*Object) DataType() DataType { return TypeObject }

// Capabilities is a '<' station capabilities report.
type Capabilities struct {
	Capability        string
	MessageCount      int
	LocalStationCount int
}

func (*Capabilities) DataType() DataType { return TypeStationCapabilities }

// Undecoded is attached to a frame whose info field could not be parsed.
// The addressing is still good.
type Undecoded struct {
	Reason string
}

func (*Undecoded) DataType() DataType { return TypeUndecoded }
