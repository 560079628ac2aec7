// Package stl reads and writes STL surface meshes, the exchange format for
// structure contours.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"ventthirds/pkg/geometry"
)

// ErrFormat is returned for data that is neither binary nor ASCII STL
var ErrFormat = errors.New("stl: malformed data")

const (
	headerSize   = 80
	triangleSize = 50
)

// Triangle is a single STL facet
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// Load reads an STL file from disk
func Load(path string) ([]Triangle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	triangles, err := Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return triangles, nil
}

// Decode reads binary or ASCII STL. The binary layout is tried first since
// some binary writers also start their header with "solid".
func Decode(r io.Reader) ([]Triangle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(data) >= headerSize+4 {
		count := binary.LittleEndian.Uint32(data[headerSize:])
		if int64(len(data)) == int64(headerSize+4)+int64(count)*triangleSize {
			return decodeBinary(data[headerSize+4:], int(count)), nil
		}
	}

	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("solid")) {
		return decodeASCII(data)
	}

	return nil, fmt.Errorf("%w: %d bytes match neither layout", ErrFormat, len(data))
}

func decodeBinary(data []byte, count int) []Triangle {
	le := binary.LittleEndian
	readVec := func(b []byte) [3]float32 {
		return [3]float32{
			math.Float32frombits(le.Uint32(b[0:])),
			math.Float32frombits(le.Uint32(b[4:])),
			math.Float32frombits(le.Uint32(b[8:])),
		}
	}

	triangles := make([]Triangle, count)
	for i := range triangles {
		b := data[i*triangleSize:]
		triangles[i] = Triangle{
			Normal:  readVec(b[0:]),
			Vertex1: readVec(b[12:]),
			Vertex2: readVec(b[24:]),
			Vertex3: readVec(b[36:]),
		}
	}
	return triangles
}

func decodeASCII(data []byte) ([]Triangle, error) {
	fields := strings.Fields(string(data))

	var triangles []Triangle
	var current Triangle
	vertex := 0

	readVec := func(i int) ([3]float32, error) {
		var v [3]float32
		if i+3 > len(fields) {
			return v, fmt.Errorf("%w: truncated coordinate", ErrFormat)
		}
		for k := 0; k < 3; k++ {
			f, err := strconv.ParseFloat(fields[i+k], 32)
			if err != nil {
				return v, fmt.Errorf("%w: %v", ErrFormat, err)
			}
			v[k] = float32(f)
		}
		return v, nil
	}

	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "normal":
			n, err := readVec(i + 1)
			if err != nil {
				return nil, err
			}
			current = Triangle{Normal: n}
			vertex = 0
			i += 3
		case "vertex":
			v, err := readVec(i + 1)
			if err != nil {
				return nil, err
			}
			switch vertex {
			case 0:
				current.Vertex1 = v
			case 1:
				current.Vertex2 = v
			case 2:
				current.Vertex3 = v
			default:
				return nil, fmt.Errorf("%w: facet with more than 3 vertices", ErrFormat)
			}
			vertex++
			i += 3
		case "endfacet":
			if vertex != 3 {
				return nil, fmt.Errorf("%w: facet with %d vertices", ErrFormat, vertex)
			}
			triangles = append(triangles, current)
		}
	}

	return triangles, nil
}

// Encode writes triangles as binary STL
func Encode(w io.Writer, triangles []Triangle) error {
	bw := bufio.NewWriter(w)

	var header [headerSize]byte
	copy(header[:], "binary STL written by ventthirds")
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return err
	}

	for _, t := range triangles {
		rec := struct {
			Normal, V1, V2, V3 [3]float32
			Attr               uint16
		}{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3, 0}
		if err := binary.Write(bw, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// SaveToSTL writes triangles to a binary STL file
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := Encode(file, triangles); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ToMesh converts facets to world-space geometry. The facet normal is
// copied onto each vertex.
func ToMesh(triangles []Triangle) geometry.Mesh {
	mesh := geometry.Mesh{Triangles: make([]geometry.Triangle, len(triangles))}
	for i, t := range triangles {
		n := toVec(t.Normal)
		mesh.Triangles[i] = geometry.Triangle{
			Vertices: [3]r3.Vec{toVec(t.Vertex1), toVec(t.Vertex2), toVec(t.Vertex3)},
			Normals:  [3]r3.Vec{n, n, n},
		}
	}
	return mesh
}

// FromMesh converts geometry to facets, recomputing each face normal
func FromMesh(mesh geometry.Mesh) []Triangle {
	triangles := make([]Triangle, len(mesh.Triangles))
	for i, t := range mesh.Triangles {
		triangles[i] = Triangle{
			Normal:  fromVec(t.Normal()),
			Vertex1: fromVec(t.Vertices[0]),
			Vertex2: fromVec(t.Vertices[1]),
			Vertex3: fromVec(t.Vertices[2]),
		}
	}
	return triangles
}

func toVec(v [3]float32) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

func fromVec(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
