package routing

import (
	"testing"

	"passage_router/pkg/geo"
	"passage_router/pkg/grid"
)

// asciiStore builds a store whose global grid is the given map, anchored at
// (90, -180) with 1° cells. '#' is land, anything else water. Cells beyond
// the map are out of bounds and therefore land.
func asciiStore(t *testing.T, rows ...string) *grid.Store {
	t.Helper()
	g := grid.NewGlobal(len(rows), len(rows[0]), 1)
	for r, line := range rows {
		if len(line) != g.Cols {
			t.Fatalf("row %d has %d columns, want %d", r, len(line), g.Cols)
		}
		for c, ch := range line {
			g.Set(r, c, ch == '#')
		}
	}
	return grid.NewStore(g, nil)
}

// at returns the center of a global cell.
func at(s *grid.Store, row, col int) geo.GeoPoint {
	return s.Global().Frame().Center(row, col)
}

func requireAllWater(t *testing.T, s *grid.Store, path []geo.GeoPoint) {
	t.Helper()
	for i, p := range path {
		if s.IsLand(p.Lat, p.Lng) {
			t.Fatalf("waypoint %d (%v) is on land", i, p)
		}
	}
}
