package aprs

import (
	"strings"

	"kissaprs/packet"
)

const knotsToMetersPerSecond = 0.514444

// micEChar is what one destination callsign character encodes.
type micEChar struct {
	digit  byte  // Latitude digit, ' ' when ambiguous
	msg    uint8 // Message bit
	custom bool  // Message bit belongs to the custom table
	// Characters 4-6 also carry these. Only 0-9, L and P-Z are valid there.
	positional bool
	north      bool
	offset     bool // +100 degrees longitude
	west       bool
}

func micEDecode(c byte) (micEChar, bool) {
	switch {
	case c >= '0' && c <= '9':
		return micEChar{digit: c, positional: true}, true
	case c >= 'A' && c <= 'J':
		return micEChar{digit: '0' + c - 'A', msg: 1, custom: true}, true
	case c == 'K':
		return micEChar{digit: ' ', msg: 1, custom: true}, true
	case c == 'L':
		return micEChar{digit: ' ', positional: true}, true
	case c >= 'P' && c <= 'Y':
		return micEChar{digit: '0' + c - 'P', msg: 1, positional: true, north: true, offset: true, west: true}, true
	case c == 'Z':
		return micEChar{digit: ' ', msg: 1, positional: true, north: true, offset: true, west: true}, true
	}
	return micEChar{}, false
}

var (
	micEStandardMessages = [8]string{
		"Emergency", "Priority", "Special", "Committed",
		"Returning", "In Service", "En Route", "Off Duty",
	}
	micECustomMessages = [8]string{
		"Emergency", "Custom-6", "Custom-5", "Custom-4",
		"Custom-3", "Custom-2", "Custom-1", "Custom-0",
	}
)

// parseMicE decodes a Mic-E report. Latitude, the message code and the
// longitude hints come from the 6-character destination callsign; longitude,
// speed, course and symbol from the first 8 info bytes after the selector.
func parseMicE(dest string, l *lexer) (*packet.MicE, error) {
	if len(dest) != 6 {
		return nil, packet.FormatErrorf("mic-e destination %q should be 6 characters", dest)
	}
	var chars [6]micEChar
	for i := range chars {
		c, ok := micEDecode(dest[i])
		if !ok || (i >= 3 && !c.positional) {
			return nil, packet.FormatErrorf("invalid mic-e destination character %q at %d", dest[i], i)
		}
		chars[i] = c
	}

	m := &packet.MicE{}
	var custom uint8
	for _, c := range chars[:3] {
		m.MessageBits = m.MessageBits<<1 | c.msg
		custom <<= 1
		if c.custom {
			custom |= 1
		}
	}
	switch custom {
	case 0:
		m.MessageType = packet.MicEStandard
		m.Message = micEStandardMessages[m.MessageBits]
	case 7:
		m.MessageType = packet.MicECustom
		m.Message = micECustomMessages[m.MessageBits]
	default:
		m.MessageType = packet.MicEUndefined
	}

	lat := []byte{
		chars[0].digit, chars[1].digit, chars[2].digit, chars[3].digit, '.',
		chars[4].digit, chars[5].digit, 'S',
	}
	if chars[3].north {
		lat[7] = 'N'
	}
	var err error
	if m.Coords.Latitude, m.Coords.Accuracy, err = parseLatitude(string(lat)); err != nil {
		return nil, err
	}

	enc := l.fixed(8)
	if len(enc) < 8 {
		return nil, packet.FormatErrorf("mic-e information field truncated")
	}
	b := func(i int) int { return int(enc[i]) - 28 }

	deg := b(0)
	if chars[4].offset {
		deg += 100
	}
	switch {
	case deg >= 180 && deg <= 189:
		deg -= 80
	case deg >= 190 && deg <= 199:
		deg -= 190
	}
	mins := b(1)
	if mins >= 60 {
		mins -= 60
	}
	lon := float64(deg) + (float64(mins)+float64(b(2))/100)/60
	if chars[5].west {
		lon = -lon
	}
	m.Coords.Longitude = lon

	// Speed is SP*10 + DC/10 knots, course is (DC%10)*100 + SE degrees.
	dc := b(4)
	knots := b(3)*10 + dc/10
	if knots >= 800 {
		knots -= 800
	}
	course := (dc%10)*100 + b(5)
	if course >= 400 {
		course -= 400
	}
	speed := float64(knots) * knotsToMetersPerSecond
	heading := float64(course)
	m.Coords.Speed = &speed
	m.Coords.Heading = &heading

	m.SymbolID = enc[6]
	m.SymbolTableID = enc[7]
	m.Comment = strings.TrimSpace(l.rest())
	return m, nil
}
