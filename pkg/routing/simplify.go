package routing

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"passage_router/pkg/geo"
)

// Simplify reduces a path with the Douglas-Peucker algorithm. Distances are
// planar, in degrees. Uses an explicit stack of index ranges to avoid
// recursion on long paths.
func Simplify(path []geo.GeoPoint, tolerance float64) []geo.GeoPoint {
	if len(path) <= 2 {
		return path
	}

	type span struct{ start, end int }

	keep := make([]bool, len(path))
	keep[0] = true
	keep[len(path)-1] = true

	stack := []span{{0, len(path) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.end-s.start < 2 {
			continue
		}

		a, b := path[s.start].Orb(), path[s.end].Orb()
		maxDist, split := -1.0, -1
		for i := s.start + 1; i < s.end; i++ {
			d := distanceFromChord(path[i].Orb(), a, b)
			if d > maxDist {
				maxDist, split = d, i
			}
		}
		if maxDist <= tolerance {
			continue
		}

		keep[split] = true
		stack = append(stack, span{split, s.end}, span{s.start, split})
	}

	out := make([]geo.GeoPoint, 0, len(path))
	for i, k := range keep {
		if k {
			out = append(out, path[i])
		}
	}
	return out
}

func distanceFromChord(p, a, b orb.Point) float64 {
	return planar.DistanceFromSegment(a, b, p)
}
