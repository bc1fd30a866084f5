package grid

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

const (
	globalMagic      = "LWG1"
	globalHeaderSize = 12 // magic(4) + rows(2) + cols(2) + resolution(4)
)

// ErrFormat matches every grid decoding failure.
var ErrFormat = errors.New("invalid grid format")

// FormatError describes why a grid file could not be decoded.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "grid format: " + e.Reason }

// Is makes errors.Is(err, ErrFormat) true for every FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// DecodeGlobal parses a global grid file. The returned grid references data
// directly; callers must not modify data afterwards.
func DecodeGlobal(data []byte) (*Global, error) {
	if len(data) < globalHeaderSize {
		return nil, formatErrorf("global header truncated: %d bytes", len(data))
	}
	if string(data[:4]) != globalMagic {
		return nil, formatErrorf("invalid magic bytes: %q", data[:4])
	}

	rows := int(binary.LittleEndian.Uint16(data[4:6]))
	cols := int(binary.LittleEndian.Uint16(data[6:8]))
	res := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[8:12])))

	if rows == 0 || cols == 0 {
		return nil, formatErrorf("empty global grid %dx%d", rows, cols)
	}
	if math.IsNaN(res) || math.IsInf(res, 0) || res <= 0 {
		return nil, formatErrorf("invalid resolution %v", res)
	}

	need := packedLen(rows, cols)
	body := data[globalHeaderSize:]
	if len(body) < need {
		return nil, formatErrorf("global grid %dx%d needs %d bytes, have %d", rows, cols, need, len(body))
	}

	return &Global{
		Resolution: res,
		Bitmap:     Bitmap{Rows: rows, Cols: cols, Bits: body[:need:need]},
	}, nil
}

// EncodeGlobal serializes a global grid.
func EncodeGlobal(g *Global) ([]byte, error) {
	if g.Rows <= 0 || g.Cols <= 0 || g.Rows > math.MaxUint16 || g.Cols > math.MaxUint16 {
		return nil, fmt.Errorf("global grid dimensions %dx%d out of range", g.Rows, g.Cols)
	}
	if g.Resolution <= 0 {
		return nil, fmt.Errorf("global grid resolution %v must be positive", g.Resolution)
	}
	need := packedLen(g.Rows, g.Cols)
	if len(g.Bits) < need {
		return nil, fmt.Errorf("global grid has %d bytes, needs %d", len(g.Bits), need)
	}

	buf := make([]byte, globalHeaderSize+need)
	copy(buf, globalMagic)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(g.Rows))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(g.Cols))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(g.Resolution)))
	copy(buf[globalHeaderSize:], g.Bits[:need])
	return buf, nil
}

// regionalHeader is the JSON header of a regional grid file.
type regionalHeader struct {
	Resolution float64        `json:"resolution"`
	Regions    []regionHeader `json:"regions"`
}

type regionHeader struct {
	Name   string  `json:"name"`
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
	Cols   int     `json:"cols"`
	Rows   int     `json:"rows"`
	Offset int     `json:"offset"`
	Bytes  int     `json:"bytes"`
}

// DecodeRegional parses a regional grid file: a JSON header terminated by a
// zero byte, followed by the packed region buffers.
func DecodeRegional(data []byte) (*Regional, error) {
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return nil, formatErrorf("regional header terminator not found")
	}

	var hdr regionalHeader
	if err := json.Unmarshal(data[:end], &hdr); err != nil {
		return nil, formatErrorf("regional header: %v", err)
	}
	if len(hdr.Regions) > 0 && (math.IsNaN(hdr.Resolution) || math.IsInf(hdr.Resolution, 0) || hdr.Resolution <= 0) {
		return nil, formatErrorf("invalid regional resolution %v", hdr.Resolution)
	}

	buf := data[end+1:]
	regions := make([]Region, len(hdr.Regions))
	for i, rh := range hdr.Regions {
		if err := validateRegionHeader(rh, len(buf)); err != nil {
			return nil, err
		}
		regions[i] = Region{
			Name:   rh.Name,
			MinLat: rh.MinLat,
			MaxLat: rh.MaxLat,
			MinLng: rh.MinLng,
			MaxLng: rh.MaxLng,
			Offset: rh.Offset,
			Length: rh.Bytes,
			Bitmap: Bitmap{
				Rows: rh.Rows,
				Cols: rh.Cols,
				Bits: buf[rh.Offset : rh.Offset+rh.Bytes : rh.Offset+rh.Bytes],
			},
		}
	}

	return NewRegional(hdr.Resolution, regions, buf), nil
}

func validateRegionHeader(rh regionHeader, bufLen int) error {
	if rh.Rows <= 0 || rh.Cols <= 0 {
		return formatErrorf("region %q has empty dimensions %dx%d", rh.Name, rh.Rows, rh.Cols)
	}
	if !(rh.MinLat < rh.MaxLat) || !(rh.MinLng < rh.MaxLng) {
		return formatErrorf("region %q has an empty bounding box", rh.Name)
	}
	if rh.Offset < 0 || rh.Bytes < 0 || rh.Offset > bufLen || rh.Bytes > bufLen-rh.Offset {
		return formatErrorf("region %q spans [%d,%d) beyond buffer of %d bytes", rh.Name, rh.Offset, rh.Offset+rh.Bytes, bufLen)
	}
	// Bounded by division so huge dimensions cannot wrap the product.
	if rh.Rows > (rh.Bytes*8)/rh.Cols {
		return formatErrorf("region %q is %dx%d cells, declares %d bytes", rh.Name, rh.Rows, rh.Cols, rh.Bytes)
	}
	return nil
}

// EncodeRegional serializes a regional set. Region buffers are laid out in
// declared order; stored offsets are recomputed.
func EncodeRegional(rs *Regional) ([]byte, error) {
	hdr := regionalHeader{Resolution: rs.Resolution, Regions: make([]regionHeader, len(rs.Regions))}

	var body bytes.Buffer
	for i, r := range rs.Regions {
		need := packedLen(r.Rows, r.Cols)
		if r.Rows <= 0 || r.Cols <= 0 || len(r.Bits) < need {
			return nil, fmt.Errorf("region %q: bitmap %dx%d has %d bytes, needs %d", r.Name, r.Rows, r.Cols, len(r.Bits), need)
		}
		hdr.Regions[i] = regionHeader{
			Name:   r.Name,
			MinLat: r.MinLat,
			MaxLat: r.MaxLat,
			MinLng: r.MinLng,
			MaxLng: r.MaxLng,
			Cols:   r.Cols,
			Rows:   r.Rows,
			Offset: body.Len(),
			Bytes:  need,
		}
		body.Write(r.Bits[:need])
	}

	head, err := json.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("marshal regional header: %w", err)
	}

	out := make([]byte, 0, len(head)+1+body.Len())
	out = append(out, head...)
	out = append(out, 0)
	out = append(out, body.Bytes()...)
	return out, nil
}

// WriteFile writes data to path through a temporary file and an atomic rename.
func WriteFile(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
