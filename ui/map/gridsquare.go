package mapview

import (
	"fmt"
	"strings"
)

// Maidenhead pairs: field, square, subsquare, extended square.
var gridPairs = [...]struct {
	base     byte
	n        byte
	lon, lat float64 // Size of one step in degrees
}{
	{'A', 18, 20, 10},
	{'0', 10, 2, 1},
	{'A', 24, 2.0 / 24, 1.0 / 24},
	{'0', 10, 2.0 / 240, 1.0 / 240},
}

// GridSquareToLatLon converts a Maidenhead locator of 4, 6 or 8 characters
// ("FN03", "FN03hr", "FN03hr42") to the longitude and latitude of its
// center.
func GridSquareToLatLon(grid string) (lon, lat float64, err error) {
	g := strings.ToUpper(strings.TrimSpace(grid))
	if len(g) < 4 || len(g)%2 != 0 || len(g) > 2*len(gridPairs) {
		return 0, 0, fmt.Errorf("bad gridsquare length: %q", grid)
	}

	lon, lat = -180, -90
	var stepLon, stepLat float64
	for i := 0; i < len(g); i += 2 {
		p := gridPairs[i/2]
		x, y := g[i]-p.base, g[i+1]-p.base
		// Bytes below base wrap around and fail this too.
		if x >= p.n || y >= p.n {
			return 0, 0, fmt.Errorf("bad gridsquare %q at %d", grid, i)
		}
		lon += float64(x) * p.lon
		lat += float64(y) * p.lat
		stepLon, stepLat = p.lon, p.lat
	}
	return lon + stepLon/2, lat + stepLat/2, nil
}
