package msgbar

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kissaprs/packet"
)

func message(from, to, text, id string) packet.Frame {
	return packet.Frame{
		Header: packet.Header{
			Source:      packet.MustParseAddress(from),
			Destination: packet.MustParseAddress("APRS"),
		},
		DataType: packet.TypeMessage,
		Payload:  &packet.Message{Addressee: to, Text: text, ID: id},
	}
}

func newTest(callsign string) Model {
	m := New(callsign)
	m.now = func() time.Time { return time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC) }
	m, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: Height})
	return m
}

func TestFormat(t *testing.T) {
	line, ok := Format(message("N0CALL", "KD2YCB", "Hello world!", ""))
	require.True(t, ok)
	assert.Equal(t, "N0CALL>KD2YCB: Hello world!", line)

	line, ok = Format(message("N0CALL-7", "KD2YCB", "ping", "42"))
	require.True(t, ok)
	assert.Equal(t, "N0CALL-7>KD2YCB: ping {42}", line)

	_, ok = Format(packet.Frame{Payload: &packet.Status{Text: "QRT"}})
	assert.False(t, ok)
}

func TestKeepsLatest(t *testing.T) {
	m := newTest("")
	for i := range 8 {
		m, _ = m.Update(message("N0CALL", "KD2YCB", fmt.Sprint("msg ", i), ""))
	}
	require.Len(t, m.entries, Height-2)
	assert.Equal(t, "N0CALL>KD2YCB: msg 3", m.entries[0].line)
	assert.Equal(t, "N0CALL>KD2YCB: msg 7", m.entries[len(m.entries)-1].line)

	m, _ = m.Update(packet.Frame{Payload: &packet.Status{Text: "QRT"}})
	assert.Len(t, m.entries, Height-2)

	view := m.View()
	assert.Contains(t, view, "18:30 N0CALL>KD2YCB: msg 7")
	assert.NotContains(t, view, "msg 2")
}

func TestMessagesToHomeStation(t *testing.T) {
	m := newTest("kd2ycb")
	m, _ = m.Update(message("N0CALL", "KD2YCB-7", "for my HT", ""))
	m, _ = m.Update(message("N0CALL", "KD2YCB", "for me", ""))
	m, _ = m.Update(message("N0CALL", "KD2YC", "not me", ""))
	m, _ = m.Update(message("N0CALL", "BLN1", "bulletin", ""))

	var mine []bool
	for _, e := range m.entries {
		mine = append(mine, e.mine)
	}
	assert.Equal(t, []bool{true, true, false, false}, mine)
}
