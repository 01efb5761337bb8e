package footer

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Model holds the footer's state
type Model struct {
	width      int
	link       string
	lastPacket string
	frames     uint64
	errors     uint64
	zoom       float64
}

// New creates a new footer model for the named link.
func New(link string) Model {
	return Model{width: 80, link: link, zoom: 1}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// SetLink shows the link's state, e.g. "connected".
func (m *Model) SetLink(state string) { m.link = state }

// SetLastPacket records a decoded frame from station.
func (m *Model) SetLastPacket(station string) {
	m.lastPacket = station
	m.frames++
}

// CountError records a frame that could not be decoded.
func (m *Model) CountError() { m.errors++ }

func (m *Model) SetZoom(zoom float64) { m.zoom = zoom }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("252")).
		Width(m.width).
		MaxHeight(1)

	last := m.lastPacket
	if last == "" {
		last = "-"
	}
	text := fmt.Sprintf(" %s | last: %s | frames: %s | errors: %s | zoom: %.1fx | q quit, arrows pan, K/L zoom, r reset",
		m.link, last, humanize.Comma(int64(m.frames)), humanize.Comma(int64(m.errors)), m.zoom)
	return style.Render(text)
}
