// Package provider abstracts the host that supplies the image grid and the
// selected structure. The analysis only ever sees these interfaces; the
// file-backed adapter and the in-memory fake are the two implementations.
package provider

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSliceOutOfRange is returned by Image.Slice for an invalid z index
var ErrSliceOutOfRange = errors.New("provider: slice index out of range")

// Image is a read-only 3D grid of raw samples
type Image interface {
	// Dims returns the grid extents along X, Y and Z
	Dims() (x, y, z int)

	// Slice returns the raw samples of z-slice k in row-major order
	// (index = j*x + i)
	Slice(k int) ([]float64, error)

	// VoxelToWorld converts a voxel index to a world position in mm
	VoxelToWorld(i, j, k float64) r3.Vec

	// DisplayValue maps a raw sample to its display intensity. The result
	// may be NaN.
	DisplayValue(raw float64) float64

	// VoxelVolume is the volume of one voxel in mm³
	VoxelVolume() float64
}

// Structure is the selected closed region
type Structure interface {
	// Name is the display identifier used in report text
	Name() string

	// IsEmpty reports whether the region has no geometry
	IsEmpty() bool

	// Points enumerates the vertices of the region's surface mesh
	Points() []r3.Vec

	// Contains reports whether a world position lies inside the region
	Contains(p r3.Vec) bool
}

// Provider hands one image and one structure to the analysis
type Provider interface {
	// ActiveImages is the number of images currently loaded. The analysis
	// refuses to run on a registered pair.
	ActiveImages() int

	Image() Image

	// Structure returns the selected region, or nil when nothing is selected
	Structure() Structure
}
