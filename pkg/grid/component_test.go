package grid_test

import (
	"testing"

	"passage_router/pkg/grid"
)

func TestUnionFind(t *testing.T) {
	uf := grid.NewUnionFind(5)
	if !uf.Union(0, 1) {
		t.Fatal("first union should merge")
	}
	if uf.Union(1, 0) {
		t.Fatal("repeated union should report no change")
	}
	uf.Union(3, 4)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should share a root")
	}
	if uf.Find(1) == uf.Find(3) {
		t.Error("1 and 3 should be disjoint")
	}
}

func TestLabelWater(t *testing.T) {
	// Column 2 is a land wall except at row 0; column 5 is a full wall.
	//
	//   . . . . . # .
	//   . . # . . # .
	//   . . # . . # .
	b := grid.NewBitmap(3, 7)
	b.Set(1, 2, true)
	b.Set(2, 2, true)
	for r := 0; r < 3; r++ {
		b.Set(r, 5, true)
	}
	comps := grid.LabelWater(b)

	key := func(r, c int) int { return r*b.Cols + c }

	if got := comps.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}
	tests := []struct {
		name string
		a, b int
		want bool
	}{
		{"around the gap", key(2, 0), key(2, 4), true},
		{"across full wall", key(0, 4), key(0, 6), false},
		{"land cell", key(1, 2), key(1, 2), false},
		{"out of range", -1, key(0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := comps.Connected(tt.a, tt.b); got != tt.want {
				t.Errorf("Connected(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLabelWaterDiagonal(t *testing.T) {
	// Water only on the diagonal; 8-connectivity joins it.
	b := grid.NewBitmap(3, 3)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			b.Set(r, c, r != c)
		}
	}
	comps := grid.LabelWater(b)
	if !comps.Connected(0, 8) {
		t.Error("diagonal cells should be connected")
	}
	if comps.Count() != 1 {
		t.Errorf("Count() = %d, want 1", comps.Count())
	}
}
