// Package grid owns the land/water rasters used for water snapping and
// pathfinding.
//
// A Store combines one coarse Global bitmap covering the planet with an
// optional Regional set of named high-resolution bitmaps. Bits are 1 for land
// and 0 for water, row-major from the north-west corner, most significant bit
// first. Decoded buffers are kept verbatim and indexed arithmetically; a Store
// is immutable after construction and safe for concurrent readers.
package grid
