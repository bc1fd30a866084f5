package routing

import (
	"math"

	"passage_router/pkg/geo"
	"passage_router/pkg/grid"
)

// DefaultSnapRadius is the ring radius, in cells, used when none is given.
const DefaultSnapRadius = 10

// SnapToWater moves a land point to the center of the nearest water cell
// found by an expanding square ring search in the cells of the frame that
// classifies the point. Water points are returned unchanged. When no water
// cell lies within maxRadius rings the original point is returned with false.
func SnapToWater(store *grid.Store, p geo.GeoPoint, maxRadius int) (geo.GeoPoint, bool) {
	if !finite(p) {
		return p, false
	}
	if store.IsWater(p.Lat, p.Lng) {
		return p, true
	}
	if maxRadius <= 0 {
		maxRadius = DefaultSnapRadius
	}

	f := store.FrameAt(p.Lat, p.Lng)
	row, col := f.Cell(p.Lat, p.Lng)
	r, c, ok := ringScan(row, col, maxRadius, func(r, c int) bool {
		center := f.Center(r, c)
		return store.IsWater(center.Lat, center.Lng)
	})
	if !ok {
		return p, false
	}
	return f.Center(r, c), true
}

// snapInFrame finds the nearest in-bounds water cell of f itself.
func snapInFrame(f grid.Frame, p geo.GeoPoint, maxRadius int) (row, col int, ok bool) {
	row, col = f.Cell(p.Lat, p.Lng)
	if !f.Land(row, col) {
		return row, col, true
	}
	return ringScan(row, col, maxRadius, func(r, c int) bool {
		return !f.Land(r, c)
	})
}

// ringScan visits the perimeter of squares of radius 1..maxRadius around
// (row, col): top row west to east, bottom row west to east, then the west
// and east cells of each interior row from north to south. It returns the
// first cell accepted by water.
func ringScan(row, col, maxRadius int, water func(r, c int) bool) (int, int, bool) {
	for r := 1; r <= maxRadius; r++ {
		for _, dr := range [2]int{-r, r} {
			for dc := -r; dc <= r; dc++ {
				if water(row+dr, col+dc) {
					return row + dr, col + dc, true
				}
			}
		}
		for dr := -r + 1; dr <= r-1; dr++ {
			for _, dc := range [2]int{-r, r} {
				if water(row+dr, col+dc) {
					return row + dr, col + dc, true
				}
			}
		}
	}
	return 0, 0, false
}

func finite(p geo.GeoPoint) bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lng, 0)
}
