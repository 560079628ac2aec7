package provider

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"ventthirds/internal/models"
	"ventthirds/pkg/stl"
)

// ErrNoSlices is returned when a slice directory holds no readable images
var ErrNoSlices = errors.New("provider: no image slices found")

// sliceExtensions are the 2D formats accepted as image slices
var sliceExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".bmp": true,
}

// FileOptions describes where the image and structure live on disk and how
// the image maps to world space.
type FileOptions struct {
	// SliceDir contains one 2D image per z-slice, ordered by the number in
	// each filename
	SliceDir string

	// RegisteredDir, when set, names a second image registered to the first.
	// Its presence makes the provider report two active images.
	RegisteredDir string

	// Origin is the world position of voxel (0, 0, 0) in mm
	Origin r3.Vec

	// Spacing is the voxel size along each image axis in mm
	Spacing r3.Vec

	// Direction is the 3x3 row-major matrix of image axis direction cosines.
	// Nil means identity.
	Direction []float64

	// Slope and Intercept map raw samples to display values
	Slope     float64
	Intercept float64

	// PaddingValue, when set, marks raw samples that carry no measurement;
	// they map to NaN.
	PaddingValue *float64

	// MeshFile is the STL surface of the selected structure. Empty means no
	// structure is selected.
	MeshFile string

	// StructureName is the identifier used in the report. Defaults to the
	// mesh file name without extension.
	StructureName string
}

// FileProvider is the production Provider backed by files on disk
type FileProvider struct {
	image     *FileImage
	structure *MeshStructure
	images    int
}

// OpenFiles loads the image slices and the structure mesh described by opts
func OpenFiles(opts FileOptions) (*FileProvider, error) {
	img, err := LoadFileImage(opts)
	if err != nil {
		return nil, err
	}

	p := &FileProvider{image: img, images: 1}
	if opts.RegisteredDir != "" {
		p.images++
	}

	if opts.MeshFile != "" {
		triangles, err := stl.Load(opts.MeshFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load structure: %w", err)
		}
		name := opts.StructureName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(opts.MeshFile), filepath.Ext(opts.MeshFile))
		}
		p.structure = NewMeshStructure(name, stl.ToMesh(triangles))
	}

	return p, nil
}

// ActiveImages is 2 when a registered image was configured, otherwise 1
func (p *FileProvider) ActiveImages() int { return p.images }

// Image returns the loaded slice volume
func (p *FileProvider) Image() Image { return p.image }

// Structure returns the STL structure, or nil when no mesh file was given
func (p *FileProvider) Structure() Structure {
	if p.structure == nil {
		return nil
	}
	return p.structure
}

// FileImage is an image volume assembled from 2D slice files
type FileImage struct {
	volume    *models.Volume
	direction *mat.Dense
	slope     float64
	intercept float64
	padding   *float64
}

// LoadFileImage reads every slice in opts.SliceDir into memory
func LoadFileImage(opts FileOptions) (*FileImage, error) {
	files, err := os.ReadDir(opts.SliceDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, f := range files {
		if !f.IsDir() && sliceExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
			names = append(names, f.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSlices, opts.SliceDir)
	}

	// Numbered filenames give the anatomical order
	sort.SliceStable(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	var volume *models.Volume
	for k, name := range names {
		img, err := loadImage(filepath.Join(opts.SliceDir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", name, err)
		}

		bounds := img.Bounds()
		if volume == nil {
			volume = models.NewVolume(bounds.Dx(), bounds.Dy(), len(names))
		} else if bounds.Dx() != volume.Width || bounds.Dy() != volume.Height {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d",
				name, bounds.Dx(), bounds.Dy(), volume.Width, volume.Height)
		}

		for y := 0; y < volume.Height; y++ {
			for x := 0; x < volume.Width; x++ {
				volume.Set(x, y, k, rawSample(img, bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
	}

	volume.Origin = opts.Origin
	volume.VoxelSize = opts.Spacing
	if volume.VoxelSize == (r3.Vec{}) {
		volume.VoxelSize = r3.Vec{X: 1, Y: 1, Z: 1}
	}
	if s := volume.VoxelSize; s.X == 0 || s.Y == 0 || s.Z == 0 {
		return nil, fmt.Errorf("spacing %v has a zero component", s)
	}

	direction := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if opts.Direction != nil {
		if len(opts.Direction) != 9 {
			return nil, fmt.Errorf("direction matrix needs 9 values, got %d", len(opts.Direction))
		}
		direction = mat.NewDense(3, 3, append([]float64(nil), opts.Direction...))
	}

	slope := opts.Slope
	if slope == 0 {
		slope = 1
	}

	return &FileImage{
		volume:    volume,
		direction: direction,
		slope:     slope,
		intercept: opts.Intercept,
		padding:   opts.PaddingValue,
	}, nil
}

// Dims returns the slice width, height and count
func (f *FileImage) Dims() (int, int, int) {
	return f.volume.Width, f.volume.Height, f.volume.Depth
}

// Slice returns z-slice k as a view into the loaded data
func (f *FileImage) Slice(k int) ([]float64, error) {
	v := f.volume
	if k < 0 || k >= v.Depth {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrSliceOutOfRange, k, v.Depth)
	}
	size := v.Width * v.Height
	return v.Data[k*size : (k+1)*size], nil
}

// VoxelToWorld computes origin + D·(i·sx, j·sy, k·sz)
func (f *FileImage) VoxelToWorld(i, j, k float64) r3.Vec {
	s := f.volume.VoxelSize
	scaled := mat.NewVecDense(3, []float64{i * s.X, j * s.Y, k * s.Z})

	var w mat.VecDense
	w.MulVec(f.direction, scaled)

	o := f.volume.Origin
	return r3.Vec{X: o.X + w.AtVec(0), Y: o.Y + w.AtVec(1), Z: o.Z + w.AtVec(2)}
}

// DisplayValue returns NaN for the padding value, otherwise raw*slope + intercept
func (f *FileImage) DisplayValue(raw float64) float64 {
	if f.padding != nil && raw == *f.padding {
		return math.NaN()
	}
	return raw*f.slope + f.intercept
}

// VoxelVolume is the absolute product of the spacings
func (f *FileImage) VoxelVolume() float64 {
	s := f.volume.VoxelSize
	return math.Abs(s.X * s.Y * s.Z)
}

// loadImage decodes one slice in any registered format
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// rawSample returns the stored grey level at (x, y) without rescaling.
// Colour images are reduced to 16-bit luminance.
func rawSample(img image.Image, x, y int) float64 {
	switch g := img.(type) {
	case *image.Gray16:
		return float64(g.Gray16At(x, y).Y)
	case *image.Gray:
		return float64(g.GrayAt(x, y).Y)
	default:
		return float64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
	}
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}
