// Package sampler walks every voxel of an image grid and reports the ones
// whose world position lies inside a structure.
package sampler

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"ventthirds/internal/models"
	"ventthirds/pkg/geometry"
	"ventthirds/pkg/provider"
)

// Stats counts what happened to the voxels during a scan
type Stats struct {
	// Visited is every voxel enumerated
	Visited int

	// Pruned voxels fell outside the bounding box and were never tested
	Pruned int

	// Tested voxels went through the containment test
	Tested int

	// Inside voxels passed the containment test
	Inside int
}

// EmitFunc receives a voxel classified as inside together with the raw
// sample stored at it
type EmitFunc func(v models.Voxel, raw float64)

// Sampler classifies voxels against a structure
type Sampler struct {
	// Prune enables the bounding box pre-check. It only saves work; the
	// set of voxels emitted is the same either way.
	Prune bool
}

// New returns a Sampler with bounding box pruning enabled
func New() *Sampler {
	return &Sampler{Prune: true}
}

// Scan enumerates every voxel of img one z-slice at a time. Voxels whose
// world position lies in box are passed to inside; those it accepts go to
// emit. A grid with a non-positive extent yields no voxels.
func (s *Sampler) Scan(img provider.Image, inside func(r3.Vec) bool, box geometry.BoundingBox, emit EmitFunc) (Stats, error) {
	var stats Stats

	nx, ny, nz := img.Dims()
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return stats, nil
	}

	for k := 0; k < nz; k++ {
		slice, err := img.Slice(k)
		if err != nil {
			return stats, fmt.Errorf("failed to read slice %d: %w", k, err)
		}
		if len(slice) < nx*ny {
			return stats, fmt.Errorf("slice %d has %d samples, expected %d", k, len(slice), nx*ny)
		}

		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				stats.Visited++

				world := img.VoxelToWorld(float64(i), float64(j), float64(k))
				if s.Prune && !box.Contains(world) {
					stats.Pruned++
					continue
				}

				stats.Tested++
				if !inside(world) {
					continue
				}

				stats.Inside++
				emit(models.Voxel{I: i, J: j, K: k, World: world}, slice[j*nx+i])
			}
		}
	}

	return stats, nil
}
