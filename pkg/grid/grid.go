package grid

import (
	"math"

	"github.com/tidwall/rtree"

	"passage_router/pkg/geo"
)

// Bitmap is a packed land/water raster.
type Bitmap struct {
	Rows int
	Cols int
	Bits []byte // ceil(Rows*Cols/8) bytes, MSB first
}

// NewBitmap allocates an all-water bitmap.
func NewBitmap(rows, cols int) Bitmap {
	return Bitmap{Rows: rows, Cols: cols, Bits: make([]byte, packedLen(rows, cols))}
}

func packedLen(rows, cols int) int {
	return (rows*cols + 7) / 8
}

// InBounds reports whether (row, col) addresses a cell of the bitmap.
func (b Bitmap) InBounds(row, col int) bool {
	return row >= 0 && row < b.Rows && col >= 0 && col < b.Cols
}

// Land reports whether the cell is land. Cells outside the bitmap are land.
func (b Bitmap) Land(row, col int) bool {
	if !b.InBounds(row, col) {
		return true
	}
	i := row*b.Cols + col
	return b.Bits[i>>3]&(0x80>>(i&7)) != 0
}

// Set marks a cell as land or water. It panics if the cell is out of bounds.
func (b Bitmap) Set(row, col int, land bool) {
	if !b.InBounds(row, col) {
		panic("grid: Set out of bounds")
	}
	i := row*b.Cols + col
	if land {
		b.Bits[i>>3] |= 0x80 >> (i & 7)
	} else {
		b.Bits[i>>3] &^= 0x80 >> (i & 7)
	}
}

// Frame is a georeferenced bitmap: either one region or the global grid.
type Frame struct {
	Name       string // region name; empty for the global grid
	Index      int    // region index; -1 for the global grid
	North      float64
	West       float64
	Resolution float64 // cell size in degrees
	Bitmap
}

// IsGlobal reports whether f is the global grid.
func (f Frame) IsGlobal() bool { return f.Index < 0 }

// Cell returns the row and column containing the point. The result may be
// out of bounds.
func (f Frame) Cell(lat, lng float64) (row, col int) {
	row = int(math.Floor((f.North - lat) / f.Resolution))
	col = int(math.Floor((lng - f.West) / f.Resolution))
	return row, col
}

// Center returns the coordinate at the middle of a cell.
func (f Frame) Center(row, col int) geo.GeoPoint {
	return geo.GeoPoint{
		Lat: f.North - (float64(row)+0.5)*f.Resolution,
		Lng: f.West + (float64(col)+0.5)*f.Resolution,
	}
}

// Key packs a cell into a single integer, row*cols+col.
func (f Frame) Key(row, col int) int {
	return row*f.Cols + col
}

// Global is the planet-wide coarse grid anchored at (90, -180).
type Global struct {
	Resolution float64
	Bitmap
}

// Frame returns the global grid as a Frame.
func (g *Global) Frame() Frame {
	return Frame{Index: -1, North: 90, West: -180, Resolution: g.Resolution, Bitmap: g.Bitmap}
}

// Region is one named high-resolution bitmap inside a Regional buffer.
type Region struct {
	Name   string
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
	Offset int // byte offset into Regional.Bits
	Length int // byte length of the region's bitmap
	Bitmap
}

// Contains reports whether the point lies inside the region's bounding box.
func (r *Region) Contains(lat, lng float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lng >= r.MinLng && lng <= r.MaxLng
}

// Regional is a set of regions sharing one resolution and one packed buffer.
type Regional struct {
	Resolution float64
	Regions    []Region
	Bits       []byte

	index rtree.RTreeG[int]
}

// NewRegional builds the bounding-box index over regions. Region bitmaps are
// expected to be views into bits.
func NewRegional(resolution float64, regions []Region, bits []byte) *Regional {
	rs := &Regional{Resolution: resolution, Regions: regions, Bits: bits}
	for i := range regions {
		r := &regions[i]
		rs.index.Insert([2]float64{r.MinLng, r.MinLat}, [2]float64{r.MaxLng, r.MaxLat}, i)
	}
	return rs
}

// Locate returns the index of the first region, in declared order, whose
// bounding box contains the point, or -1.
func (rs *Regional) Locate(lat, lng float64) int {
	if rs == nil || len(rs.Regions) == 0 {
		return -1
	}
	best := -1
	pt := [2]float64{lng, lat}
	rs.index.Search(pt, pt, func(_, _ [2]float64, i int) bool {
		if (best < 0 || i < best) && rs.Regions[i].Contains(lat, lng) {
			best = i
		}
		return true
	})
	return best
}

// Frame returns region i as a Frame.
func (rs *Regional) Frame(i int) Frame {
	r := &rs.Regions[i]
	return Frame{
		Name:       r.Name,
		Index:      i,
		North:      r.MaxLat,
		West:       r.MinLng,
		Resolution: rs.Resolution,
		Bitmap:     r.Bitmap,
	}
}

// Store is the immutable spatial context shared by every spatial operation.
type Store struct {
	global   *Global
	regional *Regional
}

// NewStore combines a global grid with an optional regional set.
func NewStore(global *Global, regional *Regional) *Store {
	if regional == nil {
		regional = NewRegional(0, nil, nil)
	}
	return &Store{global: global, regional: regional}
}

// Global returns the global grid.
func (s *Store) Global() *Global { return s.global }

// Regional returns the regional set, possibly empty.
func (s *Store) Regional() *Regional { return s.regional }

// RegionAt returns the index of the region classifying the point, or -1 when
// the global grid classifies it.
func (s *Store) RegionAt(lat, lng float64) int {
	i := s.regional.Locate(lat, lng)
	if i < 0 {
		return -1
	}
	f := s.regional.Frame(i)
	if row, col := f.Cell(lat, lng); !f.InBounds(row, col) {
		return -1
	}
	return i
}

// FrameAt returns the highest-resolution frame that classifies the point.
func (s *Store) FrameAt(lat, lng float64) Frame {
	if i := s.RegionAt(lat, lng); i >= 0 {
		return s.regional.Frame(i)
	}
	return s.global.Frame()
}

// Frames returns the global frame followed by every regional frame.
func (s *Store) Frames() []Frame {
	frames := make([]Frame, 0, len(s.regional.Regions)+1)
	frames = append(frames, s.global.Frame())
	for i := range s.regional.Regions {
		frames = append(frames, s.regional.Frame(i))
	}
	return frames
}

// IsLand classifies a point using the first region containing it, falling
// back to the global grid. Points outside the global grid are land.
func (s *Store) IsLand(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return true
	}
	f := s.FrameAt(lat, lng)
	row, col := f.Cell(lat, lng)
	return f.Land(row, col)
}

// IsWater is the complement of IsLand.
func (s *Store) IsWater(lat, lng float64) bool {
	return !s.IsLand(lat, lng)
}

// Stats summarizes the loaded grids.
type Stats struct {
	GlobalRows         int      `json:"global_rows"`
	GlobalCols         int      `json:"global_cols"`
	GlobalResolution   float64  `json:"global_resolution"`
	RegionalResolution float64  `json:"regional_resolution"`
	Regions            []string `json:"regions"`
}

// Stats returns a summary of the store.
func (s *Store) Stats() Stats {
	st := Stats{
		GlobalRows:         s.global.Rows,
		GlobalCols:         s.global.Cols,
		GlobalResolution:   s.global.Resolution,
		RegionalResolution: s.regional.Resolution,
		Regions:            make([]string, 0, len(s.regional.Regions)),
	}
	for _, r := range s.regional.Regions {
		st.Regions = append(st.Regions, r.Name)
	}
	return st
}

// NewGlobal allocates an all-water global grid.
func NewGlobal(rows, cols int, resolution float64) *Global {
	return &Global{Resolution: resolution, Bitmap: NewBitmap(rows, cols)}
}

// NewRegion allocates an all-water region covering the bounding box at the
// given resolution. The region owns its bitmap until it is encoded.
func NewRegion(name string, minLat, maxLat, minLng, maxLng, resolution float64) Region {
	rows := int(math.Ceil((maxLat - minLat) / resolution))
	cols := int(math.Ceil((maxLng - minLng) / resolution))
	bm := NewBitmap(rows, cols)
	return Region{
		Name:   name,
		MinLat: minLat,
		MaxLat: maxLat,
		MinLng: minLng,
		MaxLng: maxLng,
		Length: len(bm.Bits),
		Bitmap: bm,
	}
}
