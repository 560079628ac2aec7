package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is one face of a surface mesh. Normals are carried through from
// the source data but play no part in containment.
type Triangle struct {
	Vertices [3]r3.Vec
	Normals  [3]r3.Vec
}

// Normal returns the unit face normal following the vertex winding
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t.Vertices[1], t.Vertices[0]), r3.Sub(t.Vertices[2], t.Vertices[0]))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// Mesh is a triangulated closed surface in world coordinates (mm)
type Mesh struct {
	Triangles []Triangle
}

// Points returns every vertex of the mesh, three per triangle
func (m Mesh) Points() []r3.Vec {
	points := make([]r3.Vec, 0, 3*len(m.Triangles))
	for _, t := range m.Triangles {
		points = append(points, t.Vertices[:]...)
	}
	return points
}

// Contains is shorthand for IsInside(p, m)
func (m Mesh) Contains(p r3.Vec) bool {
	return IsInside(p, m)
}

// Fixed skew directions for the parity test. None is axis-aligned, so a ray
// from a grid-aligned point is unlikely to graze an edge of a grid-aligned
// mesh.
var rayDirections = [3]r3.Vec{
	r3.Unit(r3.Vec{X: -0.40475415, Y: 0.86174632, Z: -0.30588783}),
	r3.Unit(r3.Vec{X: 0.57735027, Y: -0.21132487, Z: 0.78867513}),
	r3.Unit(r3.Vec{X: 0.33218036, Y: 0.51371453, Z: -0.79104811}),
}

const (
	// parallelEps rejects rays (nearly) parallel to a triangle's plane
	parallelEps = 1e-12

	// surfaceEps is the distance (mm) within which a point counts as lying
	// on a triangle rather than in front of or behind it
	surfaceEps = 1e-9

	// edgeEps widens the barycentric range when looking for surface points,
	// so points on shared edges and vertices are found by a neighbour
	edgeEps = 1e-9
)

// rayHit is the outcome of one ray/triangle test
type rayHit int

const (
	rayMiss rayHit = iota
	rayCross
	raySurface
)

// IsInside reports whether p lies within the closed volume bounded by m.
//
// It casts three rays from p and counts the triangles each one crosses; an
// odd count means inside. The result is the majority of the three votes,
// which tolerates a single ray passing exactly through an edge or vertex.
// Points on the surface itself (within surfaceEps of a face, edge or
// vertex) are inside on every face, so the region is a closed set and a
// grid-aligned mesh keeps the voxels on its boundary.
//
// The mesh must be watertight. Open or self-intersecting meshes give
// undefined (but still deterministic) answers. IsInside tests every
// triangle; use NewBVH when many points are tested against one mesh.
func IsInside(p r3.Vec, m Mesh) bool {
	return majority(p, func(origin, dir r3.Vec) (int, bool) {
		return crossings(origin, dir, m.Triangles)
	})
}

// majority casts the three rays through cross and combines their votes
func majority(p r3.Vec, cross func(origin, dir r3.Vec) (int, bool)) bool {
	votes := 0
	for _, dir := range rayDirections {
		n, onSurface := cross(p, dir)
		if onSurface {
			return true
		}
		if n%2 == 1 {
			votes++
		}
	}
	return votes >= 2
}

func crossings(origin, dir r3.Vec, triangles []Triangle) (n int, onSurface bool) {
	for i := range triangles {
		switch intersect(origin, dir, &triangles[i]) {
		case raySurface:
			return n, true
		case rayCross:
			n++
		}
	}
	return n, false
}

// intersect is the Möller-Trumbore ray/triangle test. A hit at distance
// zero is reported as raySurface; crossings need a strictly positive
// distance inside the triangle.
func intersect(origin, dir r3.Vec, t *Triangle) rayHit {
	v0 := t.Vertices[0]
	edge1 := r3.Sub(t.Vertices[1], v0)
	edge2 := r3.Sub(t.Vertices[2], v0)

	h := r3.Cross(dir, edge2)
	a := r3.Dot(edge1, h)
	if math.Abs(a) < parallelEps {
		return rayMiss
	}

	f := 1 / a
	s := r3.Sub(origin, v0)
	u := f * r3.Dot(s, h)
	if u < -edgeEps || u > 1+edgeEps {
		return rayMiss
	}

	q := r3.Cross(s, edge1)
	v := f * r3.Dot(dir, q)
	if v < -edgeEps || u+v > 1+edgeEps {
		return rayMiss
	}

	dist := f * r3.Dot(edge2, q)
	switch {
	case math.Abs(dist) <= surfaceEps:
		return raySurface
	case dist < 0 || u < 0 || v < 0 || u+v > 1:
		return rayMiss
	default:
		return rayCross
	}
}

// NewBoxMesh returns a closed 12-triangle cuboid spanning min..max with
// outward-facing winding.
func NewBoxMesh(min, max r3.Vec) Mesh {
	var c [8]r3.Vec
	for i := range c {
		c[i] = min
		if i&1 != 0 {
			c[i].X = max.X
		}
		if i&2 != 0 {
			c[i].Y = max.Y
		}
		if i&4 != 0 {
			c[i].Z = max.Z
		}
	}

	faces := [6][4]int{
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
		{0, 2, 3, 1}, // -z
		{4, 5, 7, 6}, // +z
	}

	mesh := Mesh{Triangles: make([]Triangle, 0, 12)}
	for _, f := range faces {
		for _, tri := range [2][3]int{{f[0], f[1], f[2]}, {f[0], f[2], f[3]}} {
			t := Triangle{Vertices: [3]r3.Vec{c[tri[0]], c[tri[1]], c[tri[2]]}}
			n := t.Normal()
			t.Normals = [3]r3.Vec{n, n, n}
			mesh.Triangles = append(mesh.Triangles, t)
		}
	}
	return mesh
}

// NewSphereMesh returns a closed UV sphere made of latitude rings and
// longitude segments, 2*segments*(rings-1) triangles in total
func NewSphereMesh(centre r3.Vec, radius float64, rings, segments int) Mesh {
	if rings < 2 {
		rings = 2
	}
	if segments < 3 {
		segments = 3
	}

	// Every ring vertex is computed once so neighbouring triangles share
	// exactly the same coordinates
	ring := make([][]r3.Vec, rings)
	for i := 1; i < rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		ring[i] = make([]r3.Vec, segments)
		for j := range ring[i] {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			ring[i][j] = r3.Add(centre, r3.Vec{
				X: radius * math.Sin(theta) * math.Cos(phi),
				Y: radius * math.Sin(theta) * math.Sin(phi),
				Z: radius * math.Cos(theta),
			})
		}
	}
	top := r3.Add(centre, r3.Vec{Z: radius})
	bottom := r3.Add(centre, r3.Vec{Z: -radius})

	mesh := Mesh{Triangles: make([]Triangle, 0, 2*segments*(rings-1))}
	add := func(a, b, c r3.Vec) {
		t := Triangle{Vertices: [3]r3.Vec{a, b, c}}
		n := t.Normal()
		t.Normals = [3]r3.Vec{n, n, n}
		mesh.Triangles = append(mesh.Triangles, t)
	}

	for j := 0; j < segments; j++ {
		k := (j + 1) % segments
		add(top, ring[1][j], ring[1][k])
		for i := 1; i < rings-1; i++ {
			add(ring[i][j], ring[i+1][j], ring[i+1][k])
			add(ring[i][j], ring[i+1][k], ring[i][k])
		}
		add(bottom, ring[rings-1][k], ring[rings-1][j])
	}
	return mesh
}
