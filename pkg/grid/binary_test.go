package grid_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passage_router/pkg/grid"
)

// patternGlobal builds a 10° global grid with a deterministic land pattern.
func patternGlobal(t *testing.T) *grid.Global {
	t.Helper()
	g := grid.NewGlobal(18, 36, 10)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			g.Set(r, c, (r*7+c*3)%5 == 0)
		}
	}
	return g
}

func TestGlobalRoundTrip(t *testing.T) {
	original := patternGlobal(t)

	data, err := grid.EncodeGlobal(original)
	require.NoError(t, err)
	assert.Equal(t, 12+(18*36+7)/8, len(data))

	loaded, err := grid.DecodeGlobal(data)
	require.NoError(t, err)
	assert.Equal(t, original.Rows, loaded.Rows)
	assert.Equal(t, original.Cols, loaded.Cols)
	assert.Equal(t, original.Resolution, loaded.Resolution)

	store := grid.NewStore(loaded, nil)
	f := loaded.Frame()
	for r := 0; r < original.Rows; r++ {
		for c := 0; c < original.Cols; c++ {
			want := original.Land(r, c)
			if got := loaded.Land(r, c); got != want {
				t.Fatalf("cell (%d,%d): got land=%v, want %v", r, c, got, want)
			}
			p := f.Center(r, c)
			if got := store.IsLand(p.Lat, p.Lng); got != want {
				t.Fatalf("IsLand(%v): got %v, want %v", p, got, want)
			}
		}
	}
}

func TestRegionalRoundTrip(t *testing.T) {
	a := grid.NewRegion("channel", 49, 52, -2, 2, 0.25)
	b := grid.NewRegion("solent", 50.5, 51, -1.5, -1, 0.25)
	for r := 0; r < a.Rows; r++ {
		a.Set(r, r%a.Cols, true)
	}
	b.Set(1, 1, true)

	data, err := grid.EncodeRegional(grid.NewRegional(0.25, []grid.Region{a, b}, nil))
	require.NoError(t, err)

	loaded, err := grid.DecodeRegional(data)
	require.NoError(t, err)
	require.Len(t, loaded.Regions, 2)
	assert.Equal(t, 0.25, loaded.Resolution)

	for i, want := range []grid.Region{a, b} {
		got := loaded.Regions[i]
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Rows, got.Rows)
		assert.Equal(t, want.Cols, got.Cols)
		for r := 0; r < want.Rows; r++ {
			for c := 0; c < want.Cols; c++ {
				if got.Land(r, c) != want.Land(r, c) {
					t.Fatalf("region %s cell (%d,%d) mismatch", want.Name, r, c)
				}
			}
		}
	}
	assert.Equal(t, 0, loaded.Regions[0].Offset)
	assert.Equal(t, loaded.Regions[0].Length, loaded.Regions[1].Offset)
}

func TestDecodeGlobalErrors(t *testing.T) {
	valid, err := grid.EncodeGlobal(grid.NewGlobal(4, 4, 45))
	require.NoError(t, err)

	negRes := append([]byte(nil), valid...)
	copy(negRes[8:12], []byte{0, 0, 0x80, 0xbf}) // -1.0 little-endian

	zeroRows := append([]byte(nil), valid...)
	zeroRows[4], zeroRows[5] = 0, 0

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated header", valid[:8]},
		{"bad magic", append([]byte("XXXX"), valid[4:]...)},
		{"short body", valid[:len(valid)-1]},
		{"negative resolution", negRes},
		{"zero rows", zeroRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grid.DecodeGlobal(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, grid.ErrFormat), "want ErrFormat, got %v", err)
			var fe *grid.FormatError
			assert.True(t, errors.As(err, &fe))
		})
	}
}

func TestDecodeRegionalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"no terminator", []byte(`{"resolution":0.1,"regions":[]}`)},
		{"bad json", []byte("{not json\x00")},
		{"bad resolution", []byte(`{"resolution":0,"regions":[{"name":"a","minLat":0,"maxLat":1,"minLng":0,"maxLng":1,"cols":2,"rows":2,"offset":0,"bytes":1}]}` + "\x00\x00")},
		{"beyond buffer", []byte(`{"resolution":0.5,"regions":[{"name":"a","minLat":0,"maxLat":1,"minLng":0,"maxLng":1,"cols":2,"rows":2,"offset":0,"bytes":4}]}` + "\x00\x00")},
		{"too few bytes for bits", []byte(`{"resolution":0.25,"regions":[{"name":"a","minLat":0,"maxLat":1,"minLng":0,"maxLng":1,"cols":4,"rows":4,"offset":0,"bytes":1}]}` + "\x00\x00\x00")},
		{"overflowing dimensions", []byte(`{"resolution":0.25,"regions":[{"name":"a","minLat":0,"maxLat":1,"minLng":0,"maxLng":1,"cols":4294967296,"rows":4294967296,"offset":0,"bytes":0}]}` + "\x00")},
		{"one huge dimension", []byte(`{"resolution":0.25,"regions":[{"name":"a","minLat":0,"maxLat":1,"minLng":0,"maxLng":1,"cols":4611686018427387904,"rows":1,"offset":0,"bytes":1}]}` + "\x00\x00")},
		{"empty bbox", []byte(`{"resolution":0.5,"regions":[{"name":"a","minLat":1,"maxLat":1,"minLng":0,"maxLng":1,"cols":2,"rows":2,"offset":0,"bytes":1}]}` + "\x00\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grid.DecodeRegional(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, grid.ErrFormat)
		})
	}
}

func TestDecodeRegionalEmpty(t *testing.T) {
	rs, err := grid.DecodeRegional([]byte(`{"resolution":0,"regions":[]}` + "\x00"))
	require.NoError(t, err)
	assert.Empty(t, rs.Regions)
	assert.Equal(t, -1, rs.Locate(10, 10))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.lwg")
	data, err := grid.EncodeGlobal(patternGlobal(t))
	require.NoError(t, err)

	require.NoError(t, grid.WriteFile(path, data))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be removed")
}
