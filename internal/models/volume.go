package models

import "gonum.org/v1/gonum/spatial/r3"

// Volume is a 3D grid of raw samples held in memory
type Volume struct {
	// Data is the 3D volume data as a 1D array in row-major order
	// (index = z*Width*Height + y*Width + x)
	Data []float64

	// Width, Height and Depth are the grid extents in voxels (X, Y, Z)
	Width  int
	Height int
	Depth  int

	// Origin is the world position of voxel (0, 0, 0) in mm
	Origin r3.Vec

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize r3.Vec
}

// NewVolume allocates a zero-filled volume with unit spacing
func NewVolume(width, height, depth int) *Volume {
	n := 0
	if width > 0 && height > 0 && depth > 0 {
		n = width * height * depth
	}
	return &Volume{
		Data:      make([]float64, n),
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: r3.Vec{X: 1, Y: 1, Z: 1},
	}
}

// Index returns the flat index of voxel (x, y, z)
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// Set stores a raw sample at (x, y, z)
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// At returns the raw sample at (x, y, z)
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Voxel identifies one grid cell that was classified inside the structure
type Voxel struct {
	// I, J, K are the grid indices along X, Y and Z
	I, J, K int

	// World is the physical position of the voxel centre in mm
	World r3.Vec
}

// Sample is a display value that survived filtering, together with the
// voxel it came from
type Sample struct {
	Voxel Voxel
	Value float64
}
