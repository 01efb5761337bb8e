package mapview

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/jonas-p/go-shp"

	"kissaprs/config"
	"kissaprs/packet"
)

// Constants for Panning and Zooming
const (
	panFactor  = 0.1
	zoomFactor = 1.2
)

// plot is one station drawn on the map.
type plot struct {
	name     string
	lat, lon float64
	killed   bool
}

// Model holds the map's state
type Model struct {
	width  int
	height int

	mapPolygons    []*shp.Polygon
	originalBounds shp.Box
	viewBounds     shp.Box

	stationLon    float64
	stationLat    float64
	stationExists bool

	plots []plot
}

// loadMapData reads the shapefile
func loadMapData(path string) ([]*shp.Polygon, error) {
	shapeFile, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer shapeFile.Close()

	var polygons []*shp.Polygon
	for shapeFile.Next() {
		_, shape := shapeFile.Shape()
		polygon, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		polygons = append(polygons, polygon)
	}
	if err := shapeFile.Err(); err != nil {
		return nil, fmt.Errorf("reading shapefile: %w", err)
	}

	if len(polygons) == 0 {
		return nil, fmt.Errorf("no polygons found in shapefile")
	}
	return polygons, nil
}

func boundsOf(polygons []*shp.Polygon) shp.Box {
	bounds := shp.Box{MinX: 1e9, MinY: 1e9, MaxX: -1e9, MaxY: -1e9}
	for _, polygon := range polygons {
		for _, p := range polygon.Points {
			bounds.MinX = min(bounds.MinX, p.X)
			bounds.MaxX = max(bounds.MaxX, p.X)
			bounds.MinY = min(bounds.MinY, p.Y)
			bounds.MaxY = max(bounds.MaxY, p.Y)
		}
	}
	return bounds
}

// New creates a new map model from the shapefile named in conf.
func New(conf config.Config) (Model, error) {
	polygons, err := loadMapData(conf.Map.Shapefile)
	if err != nil {
		return Model{}, err
	}
	return newModel(polygons, conf), nil
}

func newModel(polygons []*shp.Polygon, conf config.Config) Model {
	bounds := boundsOf(polygons)
	m := Model{
		mapPolygons:    polygons,
		originalBounds: bounds,
		viewBounds:     bounds,
		width:          80,
		height:         23,
	}

	if stationGrid := conf.Station.GridSquare; stationGrid != "" {
		lon, lat, err := GridSquareToLatLon(stationGrid)
		if err != nil {
			log.Warn("could not parse station gridsquare", "grid", stationGrid, "err", err)
		} else {
			m.stationLon = lon
			m.stationLat = lat
			m.stationExists = true
		}
	}

	if m.stationExists && conf.Map.DefaultZoom > 1.0 {
		m.setCenterAndZoom(m.stationLon, m.stationLat, conf.Map.DefaultZoom)
	}
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m *Model) setCenterAndZoom(lon, lat, zoomLevel float64) {
	newWidth := (m.originalBounds.MaxX - m.originalBounds.MinX) / zoomLevel
	newHeight := (m.originalBounds.MaxY - m.originalBounds.MinY) / zoomLevel
	m.viewBounds.MinX = lon - (newWidth / 2)
	m.viewBounds.MaxX = lon + (newWidth / 2)
	m.viewBounds.MinY = lat - (newHeight / 2)
	m.viewBounds.MaxY = lat + (newHeight / 2)
}

func (m *Model) zoomByFactor(factor float64) {
	centerX := (m.viewBounds.MinX + m.viewBounds.MaxX) / 2
	centerY := (m.viewBounds.MinY + m.viewBounds.MaxY) / 2
	width := m.viewBounds.MaxX - m.viewBounds.MinX
	height := m.viewBounds.MaxY - m.viewBounds.MinY
	newWidth := width * factor
	newHeight := height * factor
	if newWidth > (m.originalBounds.MaxX-m.originalBounds.MinX) || newHeight > (m.originalBounds.MaxY-m.originalBounds.MinY) {
		m.viewBounds = m.originalBounds
		return
	}
	m.viewBounds.MinX = centerX - (newWidth / 2)
	m.viewBounds.MaxX = centerX + (newWidth / 2)
	m.viewBounds.MinY = centerY - (newHeight / 2)
	m.viewBounds.MaxY = centerY + (newHeight / 2)
}

func (m *Model) pan(dx, dy float64) {
	width := m.viewBounds.MaxX - m.viewBounds.MinX
	height := m.viewBounds.MaxY - m.viewBounds.MinY
	panX := width * dx
	panY := height * dy
	m.viewBounds.MinX += panX
	m.viewBounds.MaxX += panX
	m.viewBounds.MinY += panY
	m.viewBounds.MaxY += panY
}

func (m Model) GetZoomLevel() float64 {
	if m.viewBounds.MaxX == m.viewBounds.MinX {
		return 1.0
	}
	return (m.originalBounds.MaxX - m.originalBounds.MinX) / (m.viewBounds.MaxX - m.viewBounds.MinX)
}

// Stations returns how many stations are plotted.
func (m Model) Stations() int { return len(m.plots) }

// Update function
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case packet.Frame:
		pos, ok := msg.Position()
		if !ok {
			break
		}
		p := plot{name: msg.Station(), lat: pos.Coords.Latitude, lon: pos.Coords.Longitude}
		if o, ok := msg.Payload.(*packet.Object); ok {
			p.killed = o.Killed
		}
		m.place(p)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "k", "up":
			m.pan(0, panFactor)
		case "l", "down":
			m.pan(0, -panFactor)
		case "j", "left":
			m.pan(-panFactor, 0)
		case ";", "right":
			m.pan(panFactor, 0)
		case "K":
			m.zoomByFactor(1 / zoomFactor)
		case "L":
			m.zoomByFactor(zoomFactor)
		case "r":
			m.viewBounds = m.originalBounds
		}
	}
	return m, nil
}

// place moves a station to its latest position. Killed objects are removed.
func (m *Model) place(p plot) {
	for i, old := range m.plots {
		if old.name != p.name {
			continue
		}
		if p.killed {
			m.plots = append(m.plots[:i:i], m.plots[i+1:]...)
		} else {
			m.plots[i] = p
		}
		return
	}
	if !p.killed {
		m.plots = append(m.plots, p)
	}
}

// project converts lon/lat to terminal x/y coordinates
func (m *Model) project(lon, lat float64, viewWidth, viewHeight int) (int, int) {
	if m.viewBounds.MaxX == m.viewBounds.MinX {
		m.viewBounds.MaxX += 1e-6
	}
	if m.viewBounds.MaxY == m.viewBounds.MinY {
		m.viewBounds.MaxY += 1e-6
	}
	x := (lon - m.viewBounds.MinX) / (m.viewBounds.MaxX - m.viewBounds.MinX)
	y := (m.viewBounds.MaxY - lat) / (m.viewBounds.MaxY - m.viewBounds.MinY) // screen Y grows downward
	return int(x * float64(viewWidth)), int(y * float64(viewHeight))
}

func (m Model) renderMapViewport(viewWidth, viewHeight int) string {
	viewWidth = max(viewWidth, 1)
	viewHeight = max(viewHeight, 1)

	grid := make([][]rune, viewHeight)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", viewWidth))
	}
	inView := func(x, y int) bool {
		return x >= 0 && x < viewWidth && y >= 0 && y < viewHeight
	}

	// 1. Draw the map
	for _, polygon := range m.mapPolygons {
		polyBounds := polygon.BBox()
		if polyBounds.MaxX < m.viewBounds.MinX || polyBounds.MinX > m.viewBounds.MaxX ||
			polyBounds.MaxY < m.viewBounds.MinY || polyBounds.MinY > m.viewBounds.MaxY {
			continue
		}
		for _, point := range polygon.Points {
			if x, y := m.project(point.X, point.Y, viewWidth, viewHeight); inView(x, y) {
				grid[y][x] = '.'
			}
		}
	}

	// 2. Plot the home station "house"
	if m.stationExists {
		if x, y := m.project(m.stationLon, m.stationLat, viewWidth, viewHeight); inView(x, y) {
			grid[y][x] = 'H'
		}
	}

	// 3. Draw the stations and their names
	for _, p := range m.plots {
		x, y := m.project(p.lon, p.lat, viewWidth, viewHeight)
		if !inView(x, y) {
			continue
		}
		grid[y][x] = '*'

		// Name goes under the marker, if there's room
		if y+1 < viewHeight {
			name := []rune(p.name)
			start := x - len(name)/2
			for i, r := range name {
				if plotX := start + i; plotX >= 0 && plotX < viewWidth && grid[y+1][plotX] == ' ' {
					grid[y+1][plotX] = r
				}
			}
		}
	}

	var b strings.Builder
	for _, row := range grid {
		b.WriteString(string(row))
		b.WriteRune('\n')
	}
	return b.String()
}

// View function
func (m Model) View() string {
	mapStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(m.width - 2).
		Height(m.height - 2)

	hBorders := mapStyle.GetBorderLeftSize() + mapStyle.GetBorderRightSize()
	vBorders := mapStyle.GetBorderTopSize() + mapStyle.GetBorderBottomSize()
	hPadding := mapStyle.GetPaddingLeft() + mapStyle.GetPaddingRight()
	vPadding := mapStyle.GetPaddingTop() + mapStyle.GetPaddingBottom()

	mapViewWidth := mapStyle.GetWidth() - hBorders - hPadding
	mapViewHeight := mapStyle.GetHeight() - vBorders - vPadding

	return mapStyle.Render(m.renderMapViewport(mapViewWidth, mapViewHeight))
}
