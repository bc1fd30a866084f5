package routing

import "testing"

func TestMinHeapOrder(t *testing.T) {
	var h MinHeap
	for i, f := range []float64{5, 1, 4, 2, 3} {
		h.Push(i, f)
	}
	var got []float64
	for h.Len() > 0 {
		got = append(got, h.Pop().F)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("pop order not ascending: %v", got)
		}
	}
}

func TestMinHeapTieBreakByInsertion(t *testing.T) {
	var h MinHeap
	for cell := 10; cell < 20; cell++ {
		h.Push(cell, 7)
	}
	h.Push(99, 3)

	if got := h.Pop().Cell; got != 99 {
		t.Fatalf("first pop = %d, want 99", got)
	}
	for want := 10; want < 20; want++ {
		if got := h.Pop().Cell; got != want {
			t.Fatalf("pop = %d, want %d", got, want)
		}
	}
}

func TestMinHeapReset(t *testing.T) {
	var h MinHeap
	h.Push(1, 1)
	h.Push(2, 2)
	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("Len() = %d after Reset", h.Len())
	}
	h.Push(3, 9)
	if got := h.Pop().Cell; got != 3 {
		t.Fatalf("pop = %d, want 3", got)
	}
}
