package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const testEps = 1e-12

func TestBoundingBoxOf(t *testing.T) {
	points := []r3.Vec{
		{X: 1, Y: -2, Z: 3},
		{X: -4, Y: 5, Z: 0},
		{X: 2, Y: 0, Z: -1},
	}

	box, err := BoundingBoxOf(points)
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: -4, Y: -2, Z: -1}, box.Min)
	assert.Equal(t, r3.Vec{X: 2, Y: 5, Z: 3}, box.Max)
	assert.InDelta(t, math.Sqrt(36+49+16), box.Diagonal(), testEps)
}

func TestBoundingBoxOfEmpty(t *testing.T) {
	_, err := BoundingBoxOf(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestBoundingBoxSinglePointAndPlanar(t *testing.T) {
	p := r3.Vec{X: 1, Y: 2, Z: 3}
	box, err := BoundingBoxOf([]r3.Vec{p})
	require.NoError(t, err)
	assert.Equal(t, p, box.Min)
	assert.Equal(t, p, box.Max)
	assert.True(t, box.Contains(p), "degenerate box must contain its only point")

	planar, err := BoundingBoxOf([]r3.Vec{{X: 0, Y: 0, Z: 2}, {X: 3, Y: 4, Z: 2}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, planar.Size().Z)
	assert.True(t, planar.Contains(r3.Vec{X: 1, Y: 1, Z: 2}))
	assert.False(t, planar.Contains(r3.Vec{X: 1, Y: 1, Z: 2.0001}))
}

func TestBoundingBoxContainsInclusive(t *testing.T) {
	box := BoundingBox{Min: r3.Vec{}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}

	testCases := []struct {
		p    r3.Vec
		want bool
	}{
		{r3.Vec{X: 0, Y: 0, Z: 0}, true},
		{r3.Vec{X: 1, Y: 1, Z: 1}, true},
		{r3.Vec{X: 0.5, Y: 1, Z: 0}, true},
		{r3.Vec{X: -0.001, Y: 0.5, Z: 0.5}, false},
		{r3.Vec{X: 0.5, Y: 1.001, Z: 0.5}, false},
		{r3.Vec{X: 0.5, Y: 0.5, Z: 2}, false},
	}

	for _, tc := range testCases {
		if got := box.Contains(tc.p); got != tc.want {
			t.Errorf("Contains(%v): expected %v, got %v", tc.p, tc.want, got)
		}
	}
}

func TestBoxMeshIsClosed(t *testing.T) {
	mesh := NewBoxMesh(r3.Vec{}, r3.Vec{X: 2, Y: 3, Z: 4})
	require.Len(t, mesh.Triangles, 12)

	box, err := BoundingBoxOf(mesh.Points())
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 2, Y: 3, Z: 4}, box.Max)

	// Normals point away from the centre
	centre := r3.Vec{X: 1, Y: 1.5, Z: 2}
	for i, tri := range mesh.Triangles {
		mid := r3.Scale(1.0/3, r3.Add(r3.Add(tri.Vertices[0], tri.Vertices[1]), tri.Vertices[2]))
		if r3.Dot(tri.Normals[0], r3.Sub(mid, centre)) <= 0 {
			t.Errorf("triangle %d normal %v points inward", i, tri.Normals[0])
		}
	}
}

func TestIsInsideBox(t *testing.T) {
	mesh := NewBoxMesh(r3.Vec{X: -0.5, Y: -0.5, Z: -0.5}, r3.Vec{X: 9.5, Y: 9.5, Z: 9.5})

	testCases := []struct {
		name string
		p    r3.Vec
		want bool
	}{
		{"centre", r3.Vec{X: 4.5, Y: 4.5, Z: 4.5}, true},
		{"corner voxel", r3.Vec{X: 0, Y: 0, Z: 0}, true},
		{"far corner voxel", r3.Vec{X: 9, Y: 9, Z: 9}, true},
		{"outside x", r3.Vec{X: 10, Y: 4, Z: 4}, false},
		{"outside negative", r3.Vec{X: -1, Y: -1, Z: -1}, false},
		{"far away", r3.Vec{X: 100, Y: -50, Z: 3}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsInside(tc.p, mesh))
		})
	}
}

// tetrahedron returns a closed 4-face mesh
func tetrahedron() Mesh {
	a := r3.Vec{X: 0, Y: 0, Z: 0}
	b := r3.Vec{X: 4, Y: 0, Z: 0}
	c := r3.Vec{X: 0, Y: 4, Z: 0}
	d := r3.Vec{X: 0, Y: 0, Z: 4}
	return Mesh{Triangles: []Triangle{
		{Vertices: [3]r3.Vec{a, c, b}},
		{Vertices: [3]r3.Vec{a, b, d}},
		{Vertices: [3]r3.Vec{a, d, c}},
		{Vertices: [3]r3.Vec{b, c, d}},
	}}
}

func TestIsInsideTetrahedron(t *testing.T) {
	mesh := tetrahedron()

	// Inside iff x, y, z > 0 and x + y + z < 4
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		p := r3.Vec{X: rng.Float64()*6 - 1, Y: rng.Float64()*6 - 1, Z: rng.Float64()*6 - 1}
		sum := p.X + p.Y + p.Z
		if math.Abs(sum-4) < 1e-6 || math.Abs(p.X) < 1e-6 || math.Abs(p.Y) < 1e-6 || math.Abs(p.Z) < 1e-6 {
			continue
		}
		want := p.X > 0 && p.Y > 0 && p.Z > 0 && sum < 4
		if got := IsInside(p, mesh); got != want {
			t.Fatalf("IsInside(%v): expected %v, got %v", p, want, got)
		}
	}
}

func TestIsInsideDeterministic(t *testing.T) {
	mesh := tetrahedron()
	points := []r3.Vec{
		{X: 1, Y: 1, Z: 1},
		{X: 3, Y: 3, Z: 3},
		{X: 0, Y: 0, Z: 0},
		{X: 2, Y: 0, Z: 0},
	}
	for _, p := range points {
		first := IsInside(p, mesh)
		for i := 0; i < 20; i++ {
			if IsInside(p, mesh) != first {
				t.Fatalf("IsInside(%v) changed between calls", p)
			}
		}
	}
}

func TestIsInsideEmptyMesh(t *testing.T) {
	assert.False(t, IsInside(r3.Vec{}, Mesh{}))
}

func TestTriangleNormalDegenerate(t *testing.T) {
	tri := Triangle{Vertices: [3]r3.Vec{{X: 1}, {X: 2}, {X: 3}}}
	assert.Equal(t, r3.Vec{}, tri.Normal())
}

func BenchmarkIsInside(b *testing.B) {
	mesh := NewBoxMesh(r3.Vec{}, r3.Vec{X: 10, Y: 10, Z: 10})
	p := r3.Vec{X: 3.2, Y: 4.1, Z: 5.7}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		IsInside(p, mesh)
	}
}
