package sidebar

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kissaprs/config"
	"kissaprs/packet"
)

func position(src, dest string, lat, lon float64) packet.Frame {
	f := packet.Frame{
		Header: packet.Header{
			Source:      packet.MustParseAddress(src),
			Destination: packet.MustParseAddress(dest),
		},
		DataType: packet.TypePositionWithoutTimestamp,
	}
	r := &packet.PositionReport{}
	r.Coords.Latitude, r.Coords.Longitude = lat, lon
	f.Payload = r
	return f
}

func newTest(t *testing.T) (*Model, *time.Time) {
	t.Helper()
	conf := config.Default()
	conf.Station.GridSquare = "FN03" // 43.5N 79W
	m := New(conf)
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 20})
	return &m, &now
}

func TestAddFrame(t *testing.T) {
	m, now := newTest(t)

	m.AddFrame(position("VE3KWW-9", "APDW16", 44.5, -79))
	require.Len(t, m.entries, 1)
	e := m.entries[0]
	assert.Equal(t, "VE3KWW-9", e.station)
	assert.Equal(t, "WB2OSZ DireWolf", e.device)
	assert.InDelta(t, 111.2, e.km, 0.5)

	first, second := m.line(e)
	assert.Equal(t, "VE3KWW-9 111 km", first)
	assert.Equal(t, "  WB2OSZ DireWolf, now", second)

	*now = now.Add(3 * time.Minute)
	_, second = m.line(e)
	assert.Equal(t, "  WB2OSZ DireWolf, 3 minutes ago", second)
}

func TestRepeatStationMovesToTop(t *testing.T) {
	m, _ := newTest(t)
	m.AddFrame(position("VE3KWW", "APDW16", 43.5, -79))
	m.AddFrame(position("N0CALL", "BEACON", 43.5, -79))

	// A status frame keeps the known distance and device.
	m.AddFrame(packet.Frame{
		Header: packet.Header{
			Source:      packet.MustParseAddress("VE3KWW"),
			Destination: packet.MustParseAddress("BEACON"),
		},
		DataType: packet.TypeStatus,
		Payload:  &packet.Status{Text: "QRT"},
	})
	require.Len(t, m.entries, 2)
	assert.Equal(t, "VE3KWW", m.entries[0].station)
	assert.Equal(t, "WB2OSZ DireWolf", m.entries[0].device)
	assert.InDelta(t, 0, m.entries[0].km, 0.01)
	assert.Equal(t, "N0CALL", m.entries[1].station)
	assert.Empty(t, m.entries[1].device)
}

func TestListIsTrimmedToHeight(t *testing.T) {
	m, _ := newTest(t)
	for _, call := range []string{"A1A", "B1B", "C1C", "D1D", "E1E", "F1F", "G1G", "H1H", "I1I", "J1J"} {
		m.AddFrame(position(call, "APRS", 43, -79))
	}
	assert.Len(t, m.entries, m.maxEntries())
	assert.Equal(t, "J1J", m.entries[0].station)

	*m, _ = m.Update(tea.WindowSizeMsg{Width: 30, Height: 7})
	assert.Len(t, m.entries, 2)
	assert.Contains(t, m.View(), "Last Heard")
}

func TestNoHomeNoDistance(t *testing.T) {
	m := New(config.Default())
	m.AddFrame(position("VE3KWW", "APRS", 43.5, -79))
	assert.Less(t, m.entries[0].km, 0.0)
	first, _ := m.line(m.entries[0])
	assert.Equal(t, "VE3KWW", first)
}
