package aprs

import (
	"regexp"
	"strconv"
	"strings"

	"kissaprs/packet"
)

var (
	messageTextRe  = regexp.MustCompile(`(?s)^([^{]*)(\{([^}]*))?((\})(.*))?$`)
	capabilitiesRe = regexp.MustCompile(`IGATE,MSG_CNT=(\d+),LOC_CNT=(\d+)`)

	telemetrySeqRe   = regexp.MustCompile(`^#(\d{1,3})`)
	telemetryValueRe = regexp.MustCompile(`^(\d{1,3})`)
	telemetryFlagsRe = regexp.MustCompile(`^([01]{8})`)
)

// parseMessage handles ':': a 9-character addressee, ':', then
// text{id}replyack.
func parseMessage(l *lexer) (*packet.Message, error) {
	addressee := l.fixed(9)
	if len(addressee) < 9 {
		return nil, packet.FormatErrorf("message addressee truncated: %q", addressee)
	}
	if !l.skip(":") {
		return nil, packet.FormatErrorf("message format is incorrect, should be ':' after addressee")
	}
	m := messageTextRe.FindStringSubmatch(l.rest())
	if m == nil {
		return nil, packet.FormatErrorf("bad format for message")
	}
	return &packet.Message{
		Addressee:       strings.TrimSpace(addressee),
		Text:            trimEOL(m[1]),
		ID:              trimEOL(m[3]),
		ReplyAckCapable: m[5] == "}",
		ReplyAck:        trimEOL(m[6]),
	}, nil
}

func trimEOL(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// parseCapabilities handles '<'. Only the IGATE report is understood.
func parseCapabilities(l *lexer) (*packet.Capabilities, error) {
	rest := l.rest()
	m := capabilitiesRe.FindStringSubmatch(rest)
	if m == nil {
		return nil, packet.FormatErrorf("unknown station capability: %q", rest)
	}
	c := &packet.Capabilities{Capability: "IGATE"}
	c.MessageCount, _ = strconv.Atoi(m[1])
	c.LocalStationCount, _ = strconv.Atoi(m[2])
	return c, nil
}

// parseTelemetry handles 'T': #sequence or MIC, five values each followed by
// a comma, then eight flag bits. Whatever follows is the comment.
func parseTelemetry(l *lexer) (*packet.Telemetry, error) {
	t := &packet.Telemetry{}
	if m := l.match(telemetrySeqRe); m != nil {
		n, _ := strconv.Atoi(m[1])
		t.SequenceNumber = &n
	} else if !l.skip("MIC") {
		return nil, packet.FormatErrorf("telemetry should start with a sequence number or MIC")
	}
	l.skip(",")

	for i := range t.Values {
		m := l.match(telemetryValueRe)
		if m == nil {
			return nil, packet.FormatErrorf("telemetry value %d should be an integer", i)
		}
		t.Values[i], _ = strconv.Atoi(m[1])
		if !l.skip(",") {
			return nil, packet.FormatErrorf("telemetry value %d should end in ','", i)
		}
	}

	m := l.match(telemetryFlagsRe)
	if m == nil {
		return nil, packet.FormatErrorf("telemetry needs 8 binary flag bits")
	}
	flags, _ := strconv.ParseUint(m[1], 2, 8)
	t.Flags = uint8(flags)
	t.Comment = l.rest()
	return t, nil
}
