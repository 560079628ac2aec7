package provider

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"ventthirds/internal/models"
	"ventthirds/pkg/geometry"
)

// MemoryImage serves a models.Volume with an axis-aligned geometry
type MemoryImage struct {
	Volume *models.Volume

	// Transform maps raw samples to display values. Nil means identity.
	Transform func(raw float64) float64
}

// NewMemoryImage wraps a volume with the identity display transform
func NewMemoryImage(v *models.Volume) *MemoryImage {
	return &MemoryImage{Volume: v}
}

// Dims returns the volume extents
func (m *MemoryImage) Dims() (int, int, int) {
	return m.Volume.Width, m.Volume.Height, m.Volume.Depth
}

// Slice returns z-slice k as a view into the volume data
func (m *MemoryImage) Slice(k int) ([]float64, error) {
	v := m.Volume
	if k < 0 || k >= v.Depth {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrSliceOutOfRange, k, v.Depth)
	}
	size := v.Width * v.Height
	return v.Data[k*size : (k+1)*size], nil
}

// VoxelToWorld computes origin + index*spacing per axis
func (m *MemoryImage) VoxelToWorld(i, j, k float64) r3.Vec {
	v := m.Volume
	return r3.Vec{
		X: v.Origin.X + i*v.VoxelSize.X,
		Y: v.Origin.Y + j*v.VoxelSize.Y,
		Z: v.Origin.Z + k*v.VoxelSize.Z,
	}
}

// DisplayValue applies Transform
func (m *MemoryImage) DisplayValue(raw float64) float64 {
	if m.Transform == nil {
		return raw
	}
	return m.Transform(raw)
}

// VoxelVolume is the product of the voxel sizes
func (m *MemoryImage) VoxelVolume() float64 {
	s := m.Volume.VoxelSize
	return s.X * s.Y * s.Z
}

// MeshStructure is a Structure backed by a triangle mesh. Containment goes
// through a BVH built on the first Contains call, so Mesh must not change
// after that.
type MeshStructure struct {
	Label string
	Mesh  geometry.Mesh

	once  sync.Once
	index *geometry.BVH
}

// NewMeshStructure names a mesh
func NewMeshStructure(name string, mesh geometry.Mesh) *MeshStructure {
	return &MeshStructure{Label: name, Mesh: mesh}
}

// Name returns the label
func (s *MeshStructure) Name() string { return s.Label }

// IsEmpty reports whether the mesh has no triangles
func (s *MeshStructure) IsEmpty() bool { return len(s.Mesh.Triangles) == 0 }

// Points returns the mesh vertices
func (s *MeshStructure) Points() []r3.Vec { return s.Mesh.Points() }

// Contains tests p against the mesh
func (s *MeshStructure) Contains(p r3.Vec) bool {
	s.once.Do(func() {
		s.index = geometry.NewBVH(s.Mesh)
	})
	return s.index.Contains(p)
}

// Memory is an in-memory Provider
type Memory struct {
	Img    Image
	Region Structure

	// Images overrides ActiveImages when non-zero
	Images int
}

// ActiveImages returns Images when set, otherwise 1 if an image is present
func (m *Memory) ActiveImages() int {
	if m.Images != 0 {
		return m.Images
	}
	if m.Img == nil {
		return 0
	}
	return 1
}

// Image returns Img
func (m *Memory) Image() Image { return m.Img }

// Structure returns Region, or nil when nothing is selected
func (m *Memory) Structure() Structure {
	// A typed nil stored in the interface still means "nothing selected"
	if s, ok := m.Region.(*MeshStructure); ok && s == nil {
		return nil
	}
	return m.Region
}
