package aprs

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"kissaprs/packet"
)

var (
	latRe = regexp.MustCompile(`^(\d{2})([\d ]{2})\.([\d ]{2})([NS])$`)
	lonRe = regexp.MustCompile(`^(\d{3})([\d ]{2})\.([\d ]{2})([EW])$`)

	timestampRe     = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})([zh/])$`)
	timestampPeekRe = regexp.MustCompile(`^\d{6}[zh/]$`)

	phgRe = regexp.MustCompile(`^PHG(\d)(\d)(\d)(\d)$`)

	altitudeStartRe = regexp.MustCompile(`^/A=(\d{6})`)
	altitudeRe      = regexp.MustCompile(`/A=(\d{6})`)

	windRe    = regexp.MustCompile(`^(\d{3})/(\d{3})`)
	weatherRe = []struct {
		re    *regexp.Regexp
		name  string
		scale float64
	}{
		{regexp.MustCompile(`c(\d{3})`), packet.WindDirection, 1},
		{regexp.MustCompile(`s(\d{3})`), packet.WindSpeed, 1},
		{regexp.MustCompile(`g(\d{3})`), packet.Gust, 1},
		{regexp.MustCompile(`t(\d{3})`), packet.Temperature, 1},
		{regexp.MustCompile(`r(\d{3})`), packet.RainLastHour, 1},
		{regexp.MustCompile(`p(\d{3})`), packet.RainLast24Hour, 1},
		{regexp.MustCompile(`P(\d{3})`), packet.RainSinceMidnight, 1},
		{regexp.MustCompile(`h(\d{2})`), packet.Humidity, 1},
		{regexp.MustCompile(`b(\d{5})`), packet.Barometer, 100},
	}
)

const (
	// An ambiguity box one minute of arc on a side, diagonal in meters.
	metersPerMinuteAccuracy = 2619.123517
	metersPerFoot           = 0.3048
)

// digit reads an ambiguity-aware position digit, where a space counts as 0.
func digit(c byte) float64 {
	if c == ' ' {
		return 0
	}
	return float64(c - '0')
}

// minutes combines the "MM" and "hh" parts of a DDMM.hh field and returns
// the ambiguity of the reading in minutes.
func minutes(mm, hh string) (value, ambiguity float64) {
	value = digit(mm[0])*10 + digit(mm[1]) + digit(hh[0])/10 + digit(hh[1])/100
	switch {
	case mm[0] == ' ':
		ambiguity = 60
	case mm[1] == ' ':
		ambiguity = 10
	case hh[0] == ' ':
		ambiguity = 1
	case hh[1] == ' ':
		ambiguity = 0.1
	default:
		ambiguity = 0.01
	}
	return value, ambiguity
}

// parseLatitude decodes an 8-character DDMM.hhN field. Trailing digits may
// be spaces; the returned accuracy in meters grows with that ambiguity.
func parseLatitude(field string) (lat, accuracy float64, err error) {
	m := latRe.FindStringSubmatch(field)
	if m == nil {
		return 0, 0, packet.FormatErrorf("bad format for latitude: %q", field)
	}
	deg, _ := strconv.Atoi(m[1])
	mins, ambiguity := minutes(m[2], m[3])
	lat = float64(deg) + mins/60
	if m[4] == "S" {
		lat = -lat
	}
	return lat, ambiguity * metersPerMinuteAccuracy, nil
}

// parseLongitude decodes a 9-character DDDMM.hhE field.
func parseLongitude(field string) (float64, error) {
	m := lonRe.FindStringSubmatch(field)
	if m == nil {
		return 0, packet.FormatErrorf("bad format for longitude: %q", field)
	}
	deg, _ := strconv.Atoi(m[1])
	mins, _ := minutes(m[2], m[3])
	lon := float64(deg) + mins/60
	if m[4] == "W" {
		lon = -lon
	}
	return lon, nil
}

// timestamp resolves a 7-character APRS timestamp against the parser's
// clock. Fields that do not look like a timestamp give nil.
func (p *Parser) timestamp(field string) *time.Time {
	m := timestampRe.FindStringSubmatch(field)
	if m == nil {
		return nil
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])

	var t time.Time
	switch m[4] {
	case "h":
		now := p.now().UTC()
		t = time.Date(now.Year(), now.Month(), now.Day(), a, b, c, 0, time.UTC)
	case "z":
		now := p.now().UTC()
		t = time.Date(now.Year(), now.Month(), a, b, c, 0, 0, time.UTC)
	case "/":
		now := p.now().In(p.loc)
		t = time.Date(now.Year(), now.Month(), a, b, c, 0, 0, p.loc)
	}
	return &t
}

// parseCoordinates reads latitude, symbol table, longitude and symbol.
func parseCoordinates(l *lexer) (packet.Position, error) {
	var pos packet.Position
	var err error
	if pos.Coords.Latitude, pos.Coords.Accuracy, err = parseLatitude(l.fixed(8)); err != nil {
		return pos, err
	}
	table := l.fixed(1)
	if pos.Coords.Longitude, err = parseLongitude(l.fixed(9)); err != nil {
		return pos, err
	}
	sym := l.fixed(1)
	if table == "" || sym == "" {
		return pos, packet.FormatErrorf("position is missing its symbol")
	}
	pos.SymbolTableID = table[0]
	pos.SymbolID = sym[0]
	return pos, nil
}

// parsePHG consumes a PHGphgd data extension if one follows.
func parsePHG(l *lexer) *packet.PHG {
	m := phgRe.FindStringSubmatch(l.peek(7))
	if m == nil {
		return nil
	}
	l.fixed(7)
	p, h, g, d := int(m[1][0]-'0'), int(m[2][0]-'0'), int(m[3][0]-'0'), int(m[4][0]-'0')
	phg := &packet.PHG{Power: p * p, Height: 10 << h, Gain: g}
	if d != 0 && d != 9 {
		dir := d * 45
		phg.Directivity = &dir
	}
	return phg
}

// parseWeather scans a weather station comment. Markers are searched for
// independently, not at fixed positions.
func parseWeather(comment string) packet.Weather {
	w := packet.Weather{}
	if m := windRe.FindStringSubmatch(comment); m != nil {
		w[packet.WindDirection], _ = strconv.ParseFloat(m[1], 64)
		w[packet.WindSpeed], _ = strconv.ParseFloat(m[2], 64)
	}
	for _, r := range weatherRe {
		if m := r.re.FindStringSubmatch(comment); m != nil {
			v, _ := strconv.ParseFloat(m[1], 64)
			w[r.name] = v / r.scale
		}
	}
	return w
}

// parseComment finishes a position report: weather for the weather symbol,
// otherwise an optional altitude.
func parseComment(r *packet.PositionReport, comment string) {
	if r.SymbolID == '_' {
		r.Weather = parseWeather(comment)
	} else if m := altitudeStartRe.FindStringSubmatch(comment); m != nil {
		r.Coords.Altitude = feetToMeters(m[1])
		comment = comment[len(m[0]):]
	} else if m := altitudeRe.FindStringSubmatch(comment); m != nil {
		r.Coords.Altitude = feetToMeters(m[1])
	}
	comment = strings.TrimPrefix(comment, "/")
	r.Comment = strings.TrimSpace(comment)
}

func feetToMeters(s string) *float64 {
	ft, _ := strconv.ParseFloat(s, 64)
	m := ft * metersPerFoot
	return &m
}

// parsePositionReport handles '!', '=', '/' and '@'.
func (p *Parser) parsePositionReport(l *lexer, timestamped, messaging bool) (*packet.PositionReport, error) {
	r := &packet.PositionReport{Timestamped: timestamped, HasMessaging: messaging}
	if err := p.parsePositionBody(l, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Parser) parsePositionBody(l *lexer, r *packet.PositionReport) error {
	var ts *time.Time
	if r.Timestamped {
		ts = p.timestamp(l.fixed(7))
	}
	pos, err := parseCoordinates(l)
	if err != nil {
		return err
	}
	pos.Timestamp = ts
	pos.PHG = parsePHG(l)
	r.Position = pos
	parseComment(r, l.rest())
	return nil
}

// parseObject handles ';': a 9-character name, '*' or '_', then a position
// with timestamp.
func (p *Parser) parseObject(l *lexer) (*packet.Object, error) {
	name := l.fixed(9)
	if len(name) < 9 {
		return nil, packet.FormatErrorf("object name truncated: %q", name)
	}
	o := &packet.Object{Name: strings.TrimSpace(name)}
	switch l.fixed(1) {
	case "*":
	case "_":
		o.Killed = true
	default:
		return nil, packet.FormatErrorf("object format is incorrect, should be * or _ after name")
	}
	o.Timestamped = true
	if err := p.parsePositionBody(l, &o.PositionReport); err != nil {
		return nil, err
	}
	return o, nil
}
