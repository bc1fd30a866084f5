package grid

// UnionFind implements a disjoint-set data structure with path halving
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // byte is sufficient: rank grows with log2 of the set size
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	for i := range n {
		parent[i] = i
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	// Union by rank.
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

const noComponent = ^uint32(0)

// Components labels the 8-connected water bodies of a bitmap. It is
// read-only once built.
type Components struct {
	label []uint32 // component root per cell key; noComponent for land
	count int
}

// LabelWater computes the water components of b.
func LabelWater(b Bitmap) *Components {
	n := uint32(b.Rows * b.Cols)
	uf := NewUnionFind(n)

	// Union each water cell with its east and three southern neighbours;
	// together these cover all 8 directions.
	for row := 0; row < b.Rows; row++ {
		for col := 0; col < b.Cols; col++ {
			if b.Land(row, col) {
				continue
			}
			i := uint32(row*b.Cols + col)
			for _, d := range [4][2]int{{0, 1}, {1, -1}, {1, 0}, {1, 1}} {
				r, c := row+d[0], col+d[1]
				if !b.Land(r, c) {
					uf.Union(i, uint32(r*b.Cols+c))
				}
			}
		}
	}

	label := make([]uint32, n)
	roots := make(map[uint32]struct{})
	for row := 0; row < b.Rows; row++ {
		for col := 0; col < b.Cols; col++ {
			i := uint32(row*b.Cols + col)
			if b.Land(row, col) {
				label[i] = noComponent
				continue
			}
			root := uf.Find(i)
			label[i] = root
			roots[root] = struct{}{}
		}
	}
	return &Components{label: label, count: len(roots)}
}

// Connected reports whether two cell keys belong to the same water body.
func (c *Components) Connected(a, b int) bool {
	if a < 0 || b < 0 || a >= len(c.label) || b >= len(c.label) {
		return false
	}
	la := c.label[a]
	return la != noComponent && la == c.label[b]
}

// Count returns the number of distinct water bodies.
func (c *Components) Count() int { return c.count }
