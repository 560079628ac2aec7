// Package visualization turns a thresholds run into a label volume that
// shows which third each voxel of the structure fell into, and writes
// slices of it as images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"ventthirds/internal/models"
	"ventthirds/pkg/thresholds"
)

// Band labels one voxel of the band map
type Band uint8

const (
	// Outside marks voxels that were not kept
	Outside Band = iota
	// Lower is the band from Min to LowerBelow
	Lower
	// Middle is the band from LowerAbove to UpperBelow
	Middle
	// Upper is the band from UpperAbove to Max
	Upper
)

// String returns the band name
func (b Band) String() string {
	switch b {
	case Lower:
		return "lower"
	case Middle:
		return "middle"
	case Upper:
		return "upper"
	default:
		return "outside"
	}
}

// Palette maps each band to the colour it is drawn with
var Palette = [...]color.RGBA{
	Outside: {A: 255},
	Lower:   {R: 40, G: 90, B: 220, A: 255},
	Middle:  {R: 40, G: 190, B: 70, A: 255},
	Upper:   {R: 230, G: 60, B: 40, A: 255},
}

// Classify places a display value into a band. The value is rounded the
// same way the thresholds were, so it lands in exactly one band.
func Classify(value float64, res *models.ThresholdResult, precision int) Band {
	r := thresholds.Round(value, precision)
	switch {
	case r <= res.LowerBelow:
		return Lower
	case r >= res.UpperAbove:
		return Upper
	default:
		return Middle
	}
}

// BandMap builds an nx*ny*nz label volume from the kept samples of a run.
// Voxels that were not kept stay Outside.
func BandMap(nx, ny, nz int, samples []models.Sample, res *models.ThresholdResult, precision int) (*models.Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("invalid band map size %dx%dx%d", nx, ny, nz)
	}

	vol := models.NewVolume(nx, ny, nz)
	for _, s := range samples {
		v := s.Voxel
		if v.I < 0 || v.I >= nx || v.J < 0 || v.J >= ny || v.K < 0 || v.K >= nz {
			return nil, fmt.Errorf("sample voxel (%d,%d,%d) outside %dx%dx%d", v.I, v.J, v.K, nx, ny, nz)
		}
		vol.Set(v.I, v.J, v.K, float64(Classify(s.Value, res, precision)))
	}
	return vol, nil
}

// Viewer renders slices of a band map
type Viewer struct {
	volume *models.Volume
}

// NewViewer creates a viewer over a label volume produced by BandMap
func NewViewer(volume *models.Volume) *Viewer {
	return &Viewer{volume: volume}
}

// Counts returns the number of voxels in each band
func (v *Viewer) Counts() map[Band]int {
	counts := make(map[Band]int)
	for _, label := range v.volume.Data {
		counts[Band(label)]++
	}
	return counts
}

func (v *Viewer) colorAt(x, y, z int) color.RGBA {
	b := Band(v.volume.At(x, y, z))
	if int(b) >= len(Palette) {
		b = Outside
	}
	return Palette[b]
}

// ExtractSlice extracts a 2D slice of the band map along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	w, h, d := v.volume.Width, v.volume.Height, v.volume.Depth
	var img *image.RGBA

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= w {
			return nil, fmt.Errorf("position %d exceeds width %d", position, w)
		}
		img = image.NewRGBA(image.Rect(0, 0, d, h))
		for y := 0; y < h; y++ {
			for z := 0; z < d; z++ {
				img.SetRGBA(z, y, v.colorAt(position, y, z))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= h {
			return nil, fmt.Errorf("position %d exceeds height %d", position, h)
		}
		img = image.NewRGBA(image.Rect(0, 0, w, d))
		for z := 0; z < d; z++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, z, v.colorAt(x, position, z))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= d {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, d)
		}
		img = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetRGBA(x, y, v.colorAt(x, y, position))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice. The format follows the file
// extension: png, jpg/jpeg, tif/tiff or bmp.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".png":
		return png.Encode(file, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	case ".tif", ".tiff":
		return tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		return bmp.Encode(file, img)
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}
}

// SaveSliceSequence extracts and saves every slice along the specified
// axis as PNG
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Width
	case "y", "Y":
		maxPos = v.volume.Height
	case "z", "Z":
		maxPos = v.volume.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("bands_%s_%03d.png", strings.ToLower(axis), pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
