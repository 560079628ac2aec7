// Package geometry provides the spatial primitives used to decide which
// voxels of an image lie inside a structure: axis-aligned bounding boxes,
// triangulated meshes and the point-in-mesh test.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidInput is returned when a geometric routine is given no data
var ErrInvalidInput = errors.New("geometry: invalid input")

// BoundingBox is an axis-aligned box. Min is componentwise <= Max; a box
// with zero extent on one or more axes is valid (e.g. a planar mesh).
type BoundingBox struct {
	Min, Max r3.Vec
}

// BoundingBoxOf returns the componentwise min/max of points.
// At least one point is required.
func BoundingBoxOf(points []r3.Vec) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("%w: bounding box of zero points", ErrInvalidInput)
	}

	box := BoundingBox{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Extend(p)
	}
	return box, nil
}

// Extend grows the box to include p
func (b *BoundingBox) Extend(p r3.Vec) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}

// Contains reports whether p lies in the box. All three ranges are inclusive.
func (b BoundingBox) Contains(p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Size returns the extent of the box along each axis
func (b BoundingBox) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Diagonal returns the length of the box diagonal
func (b BoundingBox) Diagonal() float64 {
	return r3.Norm(b.Size())
}
