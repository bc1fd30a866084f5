package routing

import (
	"context"
	"math"

	"passage_router/pkg/grid"
)

// ctxCheckInterval is how many expansions run between context checks.
const ctxCheckInterval = 1024

// 8-connected neighbours: N, NE, E, SE, S, SW, W, NW.
var (
	neighbourRow  = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}
	neighbourCol  = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
	neighbourCost = [8]float64{1, math.Sqrt2, 1, math.Sqrt2, 1, math.Sqrt2, 1, math.Sqrt2}
)

// octile is the exact cost of an obstacle-free 8-connected path.
func octile(dr, dc int) float64 {
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	lo, hi := dr, dc
	if lo > hi {
		lo, hi = hi, lo
	}
	return float64(hi-lo) + math.Sqrt2*float64(lo)
}

// search is the state of one A* query over a frame.
type search struct {
	frame    grid.Frame
	gScore   map[int]float64
	cameFrom map[int]int
	closed   map[int]struct{}
	open     MinHeap
}

// astar returns the cell keys from start to goal, inclusive, and the number
// of expansions performed.
func astar(ctx context.Context, f grid.Frame, start, goal [2]int, maxIterations int) ([]int, int, error) {
	s := &search{
		frame:    f,
		gScore:   make(map[int]float64),
		cameFrom: make(map[int]int),
		closed:   make(map[int]struct{}),
		open:     MinHeap{items: make([]PQItem, 0, 256)},
	}
	startKey := f.Key(start[0], start[1])
	goalKey := f.Key(goal[0], goal[1])

	s.gScore[startKey] = 0
	s.open.Push(startKey, octile(goal[0]-start[0], goal[1]-start[1]))

	iterations := 0
	for s.open.Len() > 0 {
		iterations++
		if iterations > maxIterations {
			return nil, iterations, ErrSearchLimit
		}
		if iterations%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, iterations, err
			}
		}

		item := s.open.Pop()
		cur := item.Cell
		if cur == goalKey {
			return s.reconstruct(startKey, goalKey), iterations, nil
		}
		if _, done := s.closed[cur]; done {
			continue // stale entry
		}
		s.closed[cur] = struct{}{}

		row, col := cur/f.Cols, cur%f.Cols
		curG := s.gScore[cur]
		for d := range 8 {
			nr, nc := row+neighbourRow[d], col+neighbourCol[d]
			if f.Land(nr, nc) {
				continue // land or out of bounds
			}
			next := f.Key(nr, nc)
			if _, done := s.closed[next]; done {
				continue
			}
			g := curG + neighbourCost[d]
			if prev, seen := s.gScore[next]; seen && g >= prev {
				continue
			}
			s.gScore[next] = g
			s.cameFrom[next] = cur
			s.open.Push(next, g+octile(goal[0]-nr, goal[1]-nc))
		}
	}
	return nil, iterations, ErrNoRoute
}

func (s *search) reconstruct(startKey, goalKey int) []int {
	path := []int{goalKey}
	for cur := goalKey; cur != startKey; {
		cur = s.cameFrom[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
