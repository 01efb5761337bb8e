// Package aprs decodes the information field of APRS frames.
package aprs

import (
	"strings"
	"time"

	"kissaprs/packet"
)

// Parser decodes info fields. The zero value is not usable; use NewParser.
type Parser struct {
	now func() time.Time
	loc *time.Location
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the clock that partial timestamps are resolved against.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithLocation sets the zone used for local (DDHHMM/) timestamps.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) { p.loc = loc }
}

// NewParser returns a parser using the wall clock and local time zone
// unless overridden.
func NewParser(opts ...Option) *Parser {
	p := &Parser{now: time.Now, loc: time.Local}
	for _, o := range opts {
		o(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse decodes f.Info with a default Parser.
func Parse(f packet.Frame) (packet.Frame, error) {
	return defaultParser.Parse(f)
}

// Parse decodes the info field of f and returns the decoded frame. f is not
// modified; on error the returned frame is f unchanged. Errors are
// *packet.FormatError for a malformed field and *packet.InfoError for an
// unknown data type.
func (p *Parser) Parse(f packet.Frame) (packet.Frame, error) {
	out := f.Clone()
	if err := p.parseInfo(&out); err != nil {
		return f, err
	}
	return out, nil
}

func (p *Parser) parseInfo(f *packet.Frame) error {
	l := newLexer(f.Info)
	sel := l.fixed(1)
	if sel == "" {
		return packet.FormatErrorf("empty information field")
	}

	var (
		payload packet.Payload
		err     error
	)
	switch sel[0] {
	case '>':
		payload = p.parseStatus(l)
	case 'T':
		payload, err = parseTelemetry(l)
	case '/', '@':
		payload, err = p.parsePositionReport(l, true, sel[0] == '@')
	case '!', '=':
		payload, err = p.parsePositionReport(l, false, sel[0] == '=')
	case '`', '\'':
		payload, err = parseMicE(f.Destination.Callsign, l)
	case ':':
		payload, err = parseMessage(l)
	case ';':
		payload, err = p.parseObject(l)
	case '<':
		payload, err = parseCapabilities(l)
	case '}':
		return p.parseThirdParty(f, l)
	default:
		return &packet.InfoError{Selector: sel[0]}
	}
	if err != nil {
		return err
	}
	f.DataType = payload.DataType()
	f.Payload = payload
	return nil
}

func (p *Parser) parseStatus(l *lexer) *packet.Status {
	s := &packet.Status{}
	if timestampPeekRe.MatchString(l.peek(7)) {
		s.Timestamp = p.timestamp(l.fixed(7))
	}
	s.Text = l.rest()
	return s
}

// parseThirdParty moves the outer addressing into f.Forwarding, reads the
// embedded TNC2 header and parses the embedded info field in place.
func (p *Parser) parseThirdParty(f *packet.Frame, l *lexer) error {
	hdr, info, ok := strings.Cut(l.rest(), ":")
	if !ok {
		return packet.FormatErrorf("expected ':' after third-party header")
	}
	src, rest, ok := strings.Cut(hdr, ">")
	if !ok {
		return packet.FormatErrorf("third-party header %q should include '>'", hdr)
	}
	fields := strings.Split(rest, ",")

	var inner packet.Header
	var err error
	if inner.Source, err = packet.ParseAddress(src); err != nil {
		return err
	}
	if inner.Destination, err = packet.ParseAddress(fields[0]); err != nil {
		return err
	}
	for _, s := range fields[1:] {
		a, err := packet.ParseAddress(s)
		if err != nil {
			return err
		}
		inner.RepeaterPath = append(inner.RepeaterPath, a)
	}

	f.Forwarding = append(f.Forwarding, f.Header)
	f.Header = inner
	f.Info = info
	return p.parseInfo(f)
}
