package header

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the one-line title bar.
type Model struct {
	width    int
	callsign string
	link     string
	stations int
}

// New returns a header for the home station callsign (may be empty) and a
// description of the link, e.g. "tcp localhost:8001".
func New(callsign, link string) Model {
	return Model{width: 80, callsign: strings.ToUpper(callsign), link: link}
}

func (m Model) Init() tea.Cmd { return nil }

// SetStations sets the number of stations on the map.
func (m *Model) SetStations(n int) { m.stations = n }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = size.Width
	}
	return m, nil
}

// Title is the text shown, without styling.
func (m Model) Title() string {
	parts := []string{"kissaprs"}
	if m.callsign != "" {
		parts[0] += " - " + m.callsign
	}
	if m.link != "" {
		parts = append(parts, m.link)
	}
	switch m.stations {
	case 0:
	case 1:
		parts = append(parts, "1 station")
	default:
		parts = append(parts, fmt.Sprintf("%d stations", m.stations))
	}
	return strings.Join(parts, " | ")
}

func (m Model) View() string {
	return lipgloss.NewStyle().
		Bold(true).
		Background(lipgloss.Color("63")).
		Foreground(lipgloss.Color("255")).
		Width(m.width).
		MaxHeight(1).
		Align(lipgloss.Center).
		Render(m.Title())
}
