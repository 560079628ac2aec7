// Package analysis runs one volumetric-thirds calculation: it checks the
// selection, classifies the image voxels against the structure, collects
// their display values, derives the thresholds and hands the report to a
// sink.
//
// The run is single-threaded and runs to completion. Every exit path sends
// exactly one message to the sink.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"log"

	"ventthirds/internal/models"
	"ventthirds/pkg/collector"
	"ventthirds/pkg/geometry"
	"ventthirds/pkg/provider"
	"ventthirds/pkg/report"
	"ventthirds/pkg/sampler"
	"ventthirds/pkg/thresholds"
)

var (
	// ErrMultiImageNotSupported is returned when a registered image pair is
	// active instead of a single image
	ErrMultiImageNotSupported = errors.New("more than one image is active")

	// ErrEmptySelection is returned when no structure is selected or the
	// selected structure has no geometry
	ErrEmptySelection = errors.New("no structure selected")

	// ErrNoImage is returned when the provider has no image at all
	ErrNoImage = errors.New("no image loaded")
)

// Params holds the analysis configuration
type Params struct {
	// Thresholds controls the split and the warnings
	Thresholds thresholds.Params

	// ExcludeNonPositive drops display values <= 0 or below
	// Thresholds.MinimumDifference before the split
	ExcludeNonPositive bool

	// Verbose prints progress for each step
	Verbose bool
}

// DefaultParams returns the standard settings
func DefaultParams() Params {
	return Params{
		Thresholds:         thresholds.DefaultParams(),
		ExcludeNonPositive: true,
	}
}

// Outcome is everything a successful run produced
type Outcome struct {
	Structure string
	Result    *models.ThresholdResult
	Summary   models.Summary
	Stats     sampler.Stats

	// Samples are the kept values with their voxels
	Samples []models.Sample

	// Report is the text that was sent to the sink
	Report string
}

// Analyzer runs the calculation
type Analyzer struct {
	params *Params
	logger *log.Logger
}

// NewAnalyzer creates an analyzer. Progress goes to logOutput when
// params.Verbose is set; a nil logOutput discards it.
func NewAnalyzer(params *Params, logOutput io.Writer) *Analyzer {
	if logOutput == nil || !params.Verbose {
		logOutput = io.Discard
	}
	return &Analyzer{
		params: params,
		logger: log.New(logOutput, "", log.LstdFlags),
	}
}

// Run performs the calculation for the image and structure currently
// offered by p and sends one message to sink
func (a *Analyzer) Run(p provider.Provider, sink report.Sink) (*Outcome, error) {
	out, err := a.run(p)
	if err != nil {
		sink(Message(err))
		return nil, err
	}
	sink(out.Report)
	return out, nil
}

func (a *Analyzer) run(p provider.Provider) (*Outcome, error) {
	if err := a.params.Thresholds.Validate(); err != nil {
		return nil, err
	}

	// Step 1: selection preconditions, before any geometry work
	a.logger.Println("Step 1: Checking selection...")
	if n := p.ActiveImages(); n > 1 {
		return nil, fmt.Errorf("%w: %d images", ErrMultiImageNotSupported, n)
	}
	img := p.Image()
	if img == nil {
		return nil, ErrNoImage
	}
	structure := p.Structure()
	if structure == nil || structure.IsEmpty() {
		return nil, ErrEmptySelection
	}

	// Step 2: bounding box of the structure surface
	a.logger.Printf("Step 2: Computing bounding box of %q...", structure.Name())
	box, err := geometry.BoundingBoxOf(structure.Points())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptySelection, err)
	}
	a.logger.Printf("Bounding box: %v to %v", box.Min, box.Max)

	// Step 3: classify voxels and collect their display values
	nx, ny, nz := img.Dims()
	a.logger.Printf("Step 3: Scanning %dx%dx%d voxels...", nx, ny, nz)
	values := collector.New(a.params.ExcludeNonPositive, a.params.Thresholds.MinimumDifference)
	stats, err := sampler.New().Scan(img, structure.Contains, box, func(v models.Voxel, raw float64) {
		values.Add(v, img.DisplayValue(raw))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}
	a.logger.Printf("Voxels inside: %d (tested %d, pruned %d), kept %d, dropped %d",
		stats.Inside, stats.Tested, stats.Pruned, values.Len(), values.Dropped())

	// Step 4: thresholds
	a.logger.Println("Step 4: Computing thresholds...")
	kept := values.Values()
	res, err := thresholds.Compute(kept, values.NaNSeen, a.params.Thresholds)
	if err != nil {
		return nil, err
	}
	summary := thresholds.Summarize(kept, img.VoxelVolume())

	// Step 5: report
	a.logger.Println("Step 5: Formatting report...")
	text := report.Format(res, structure.Name(), report.Options{
		Precision: a.params.Thresholds.Precision,
		Summary:   &summary,
	})

	return &Outcome{
		Structure: structure.Name(),
		Result:    res,
		Summary:   summary,
		Stats:     stats,
		Samples:   values.Samples(),
		Report:    text,
	}, nil
}

// Message is the user-facing text for an error returned by Run
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMultiImageNotSupported):
		return "This calculation works on a single image. Close the registered image pair and select one image."
	case errors.Is(err, ErrEmptySelection):
		return "Select a structure that contains geometry before running the calculation."
	case errors.Is(err, ErrNoImage):
		return "Load an image before running the calculation."
	case errors.Is(err, thresholds.ErrInsufficientData):
		return fmt.Sprintf("There is not enough data inside the structure: at least %d different image values are needed to split it into thirds.",
			thresholds.MinDistinctValues)
	case errors.Is(err, thresholds.ErrInvalidParams):
		return "The threshold settings are invalid: " + err.Error()
	default:
		return "The calculation could not be completed: " + err.Error()
	}
}
