package geometry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// bvhLeafSize is the most triangles stored in one leaf
const bvhLeafSize = 4

// BVH is a bounding volume hierarchy over the triangles of a mesh. Contains
// gives the same answer as IsInside but only tests the triangles whose
// bounds a ray actually reaches.
type BVH struct {
	triangles []Triangle
	nodes     []bvhNode
}

// bvhNode is an inner node when count is zero, otherwise a leaf holding
// triangles[start : start+count]
type bvhNode struct {
	box         BoundingBox
	left, right int
	start       int
	count       int
}

type bvhItem struct {
	triangle Triangle
	box      BoundingBox
	centroid r3.Vec
}

// NewBVH builds the hierarchy for m. The mesh is copied; later changes to
// m are not seen.
func NewBVH(m Mesh) *BVH {
	items := make([]bvhItem, len(m.Triangles))
	for i, t := range m.Triangles {
		box := BoundingBox{Min: t.Vertices[0], Max: t.Vertices[0]}
		box.Extend(t.Vertices[1])
		box.Extend(t.Vertices[2])

		// Surface hits are accepted slightly outside the triangle, so the
		// box grows with them
		pad := 1e-6 * (1 + math.Max(box.Size().X, math.Max(box.Size().Y, box.Size().Z)))
		box.Min = r3.Sub(box.Min, r3.Vec{X: pad, Y: pad, Z: pad})
		box.Max = r3.Add(box.Max, r3.Vec{X: pad, Y: pad, Z: pad})

		items[i] = bvhItem{
			triangle: t,
			box:      box,
			centroid: r3.Scale(1.0/3, r3.Add(r3.Add(t.Vertices[0], t.Vertices[1]), t.Vertices[2])),
		}
	}

	b := &BVH{nodes: make([]bvhNode, 0, 2*len(items)/bvhLeafSize+1)}
	if len(items) > 0 {
		b.build(items, 0, len(items))
	}

	b.triangles = make([]Triangle, len(items))
	for i, it := range items {
		b.triangles[i] = it.triangle
	}
	return b
}

// build splits items[start:end] at the median centroid along the longest
// axis and returns the index of the new node
func (b *BVH) build(items []bvhItem, start, end int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, bvhNode{})

	box := items[start].box
	spread := BoundingBox{Min: items[start].centroid, Max: items[start].centroid}
	for _, it := range items[start+1 : end] {
		box.Extend(it.box.Min)
		box.Extend(it.box.Max)
		spread.Extend(it.centroid)
	}

	if end-start <= bvhLeafSize {
		b.nodes[idx] = bvhNode{box: box, start: start, count: end - start}
		return idx
	}

	size := spread.Size()
	axis := 0
	if size.Y > size.X {
		axis = 1
	}
	if size.Z > component(size, axis) {
		axis = 2
	}

	part := items[start:end]
	sort.SliceStable(part, func(i, j int) bool {
		return component(part[i].centroid, axis) < component(part[j].centroid, axis)
	})

	mid := (start + end) / 2
	left := b.build(items, start, mid)
	right := b.build(items, mid, end)
	b.nodes[idx] = bvhNode{box: box, left: left, right: right}
	return idx
}

// Len is the number of triangles in the hierarchy
func (b *BVH) Len() int {
	return len(b.triangles)
}

// Contains reports whether p lies within the closed volume, with the same
// rules as IsInside
func (b *BVH) Contains(p r3.Vec) bool {
	return majority(p, b.crossings)
}

func (b *BVH) crossings(origin, dir r3.Vec) (n int, onSurface bool) {
	if len(b.nodes) == 0 {
		return 0, false
	}

	inv := r3.Vec{X: inverse(dir.X), Y: inverse(dir.Y), Z: inverse(dir.Z)}

	// The tree depth is bounded by log2 of the triangle count
	var stack [64]int
	stack[0] = 0
	sp := 1

	for sp > 0 {
		sp--
		node := &b.nodes[stack[sp]]
		if !node.box.hitByRay(origin, inv) {
			continue
		}

		if node.count > 0 {
			for i := node.start; i < node.start+node.count; i++ {
				switch intersect(origin, dir, &b.triangles[i]) {
				case raySurface:
					return n, true
				case rayCross:
					n++
				}
			}
			continue
		}

		stack[sp] = node.left
		stack[sp+1] = node.right
		sp += 2
	}
	return n, false
}

// hitByRay is the slab test for a ray starting at origin with per-axis
// inverse direction inv. Boxes behind the origin are rejected.
func (b BoundingBox) hitByRay(origin, inv r3.Vec) bool {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o := component(origin, axis)
		lo, hi := component(b.Min, axis), component(b.Max, axis)
		d := component(inv, axis)

		if math.IsInf(d, 0) {
			// Ray parallel to this slab
			if o < lo || o > hi {
				return false
			}
			continue
		}

		t1, t2 := (lo-o)*d, (hi-o)*d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	return tmax >= tmin && tmax >= -surfaceEps
}

func inverse(d float64) float64 {
	if d == 0 {
		return math.Inf(1)
	}
	return 1 / d
}

func component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
