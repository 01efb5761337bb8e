package msgbar

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kissaprs/packet"
)

// Height is the bar's fixed height, border included.
const Height = 7

type entry struct {
	at   time.Time
	line string
	// Addressed to the home station.
	mine bool
}

// Model is the message bar: the latest APRS messages heard, oldest at the
// top. Messages to the home station are highlighted.
type Model struct {
	width    int
	callsign string
	entries  []entry
	now      func() time.Time
}

// New returns an empty bar for the home station callsign (may be empty).
func New(callsign string) Model {
	return Model{width: 80, callsign: strings.ToUpper(callsign), now: time.Now}
}

func (m Model) Init() tea.Cmd { return nil }

// Format renders a message frame as one line, e.g. "N0CALL>KD2YCB: Hello
// world! {7}". It reports false for frames that are not messages.
func Format(f packet.Frame) (string, bool) {
	msg, ok := f.Payload.(*packet.Message)
	if !ok {
		return "", false
	}
	line := fmt.Sprintf("%s>%s: %s", f.Source, msg.Addressee, msg.Text)
	if msg.ID != "" {
		line += " {" + msg.ID + "}"
	}
	return line, true
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case packet.Frame:
		line, ok := Format(msg)
		if !ok {
			break
		}
		e := entry{at: m.now(), line: line}
		if m.callsign != "" {
			to := strings.ToUpper(msg.Payload.(*packet.Message).Addressee)
			e.mine = to == m.callsign || strings.HasPrefix(to, m.callsign+"-")
		}
		m.entries = append(m.entries, e)
		if n := Height - 2; len(m.entries) > n {
			m.entries = m.entries[len(m.entries)-n:]
		}
	}
	return m, nil
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(m.width - 2).
		Height(Height - 2).
		Padding(0, 1)
	mine := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))

	inner := max(m.width-4, 0) // border and padding
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		s := e.at.Format("15:04") + " " + e.line
		if r := []rune(s); len(r) > inner {
			s = string(r[:inner])
		}
		if e.mine {
			s = mine.Render(s)
		}
		lines = append(lines, s)
	}
	return style.Render(strings.Join(lines, "\n"))
}
