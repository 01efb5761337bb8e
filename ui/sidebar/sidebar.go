package sidebar

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/golang/geo/s2"

	"kissaprs/config"
	"kissaprs/deviceid"
	"kissaprs/packet"
	mapview "kissaprs/ui/map"
)

// earthRadiusKm is the mean Earth radius.
const earthRadiusKm = 6371.0088

// heard is one line of the last-heard list.
type heard struct {
	station string
	device  string
	at      time.Time
	// Distance from home in km, negative when unknown.
	km float64
}

// Model holds the sidebar's state
type Model struct {
	width   int
	height  int
	entries []heard

	home    s2.LatLng
	hasHome bool
	now     func() time.Time
}

// New creates a new sidebar model
func New(conf config.Config) Model {
	m := Model{
		width:  30, // Default
		height: 24, // Default
		now:    time.Now,
	}
	if grid := conf.Station.GridSquare; grid != "" {
		if lon, lat, err := mapview.GridSquareToLatLon(grid); err == nil {
			m.home = s2.LatLngFromDegrees(lat, lon)
			m.hasHome = true
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// AddFrame moves the frame's station to the top of the list.
func (m *Model) AddFrame(f packet.Frame) {
	h := heard{station: f.Station(), at: m.now(), km: -1}
	if f.DataType == packet.TypeMicE {
		if d, _, ok := deviceid.LookupMicE(f.Info); ok {
			h.device = d.String()
		}
	} else if d, ok := deviceid.Lookup(f.Destination.Callsign); ok {
		h.device = d.String()
	}
	if pos, ok := f.Position(); ok && m.hasHome {
		h.km = m.distanceKm(pos.Coords.Latitude, pos.Coords.Longitude)
	}

	for i, e := range m.entries {
		if e.station == h.station {
			if h.km < 0 {
				h.km = e.km
			}
			if h.device == "" {
				h.device = e.device
			}
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	m.entries = append([]heard{h}, m.entries...)
	m.trim()
}

func (m Model) distanceKm(lat, lon float64) float64 {
	return m.home.Distance(s2.LatLngFromDegrees(lat, lon)).Radians() * earthRadiusKm
}

// maxEntries is how many stations fit: two lines each, less the border
// and the header.
func (m Model) maxEntries() int {
	return max((m.height-3)/2, 1)
}

func (m *Model) trim() {
	if n := m.maxEntries(); len(m.entries) > n {
		m.entries = m.entries[:n]
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trim()
	}
	return m, nil
}

func (m Model) line(h heard) (string, string) {
	first := h.station
	if h.km >= 0 {
		first += " " + humanize.SIWithDigits(h.km*1000, 0, "m")
	}
	age := strings.TrimSpace(humanize.RelTime(h.at, m.now(), "ago", "from now"))
	second := age
	if h.device != "" {
		second = h.device + ", " + age
	}
	return first, "  " + second
}

func (m Model) View() string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(m.width - 2).   // -2 for border
		Height(m.height - 2). // -2 for border
		Padding(0, 1)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	inner := max(m.width-2-2, 0) // -2 border, -2 padding
	header := lipgloss.NewStyle().
		Bold(true).
		Underline(true).
		Width(inner).
		Render("Last Heard")

	var b strings.Builder
	b.WriteString(header)

	// Inner height less the header line.
	contentHeight := (m.height - 2) - 1
	lines := 0
	for _, h := range m.entries {
		if lines+2 > contentHeight {
			break
		}
		first, second := m.line(h)
		fmt.Fprintf(&b, "\n%.*s\n%s", inner, first, dim.Render(truncate(second, inner)))
		lines += 2
	}
	return style.Render(b.String())
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
