// Package thresholds splits a set of display values into three bands of
// equal voxel count and derives the band boundaries at display precision.
package thresholds

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ventthirds/internal/models"
)

// MinDistinctValues is the fewest distinct values a split needs
const MinDistinctValues = 3

// MaxPrecision is the most decimal places a float64 threshold can carry
const MaxPrecision = 15

var (
	// ErrInsufficientData is returned when fewer than MinDistinctValues
	// distinct values were collected
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidParams is returned by Params.Validate
	ErrInvalidParams = errors.New("invalid threshold parameters")
)

// Params controls the split
type Params struct {
	// LowerFraction and UpperFraction locate the two splits as fractions of
	// the sorted value count
	LowerFraction float64
	UpperFraction float64

	// MinimumDifference is the gap forced between the two boundaries of a
	// split when rounding makes them equal
	MinimumDifference float64

	// Precision is the number of decimal places thresholds are rounded to
	Precision int

	// WarnLow and WarnHigh bound the expected value range. Values outside
	// produce a warning, not an error.
	WarnLow  float64
	WarnHigh float64
}

// DefaultParams returns the standard volumetric-thirds settings
func DefaultParams() Params {
	return Params{
		LowerFraction:     0.33,
		UpperFraction:     0.66,
		MinimumDifference: 1,
		Precision:         0,
		WarnLow:           0,
		WarnHigh:          9999,
	}
}

// Validate checks that the fractions are ordered inside (0, 1) and that
// the rounding settings make sense
func (p Params) Validate() error {
	if !(p.LowerFraction > 0 && p.LowerFraction < p.UpperFraction && p.UpperFraction < 1) {
		return fmt.Errorf("%w: need 0 < lower (%g) < upper (%g) < 1",
			ErrInvalidParams, p.LowerFraction, p.UpperFraction)
	}
	if !(p.MinimumDifference > 0) {
		return fmt.Errorf("%w: minimum difference must be positive, got %g", ErrInvalidParams, p.MinimumDifference)
	}
	if p.Precision < 0 || p.Precision > MaxPrecision {
		return fmt.Errorf("%w: precision must be in [0,%d], got %d", ErrInvalidParams, MaxPrecision, p.Precision)
	}
	// A smaller gap would print both sides of a corrected split as the
	// same number
	if step := math.Pow(10, -float64(p.Precision)); p.MinimumDifference < step*(1-1e-9) {
		return fmt.Errorf("%w: minimum difference %g is below the display step %g at precision %d",
			ErrInvalidParams, p.MinimumDifference, step, p.Precision)
	}
	if p.WarnLow > p.WarnHigh {
		return fmt.Errorf("%w: warning range %g..%g is inverted", ErrInvalidParams, p.WarnLow, p.WarnHigh)
	}
	return nil
}

// Compute derives the three-band thresholds of values. nanSeen records
// whether any NaN sample was dropped while the values were collected.
// values is not modified. When the lower split is corrected below the
// smallest value, Min follows it and may lie below every collected value.
func Compute(values []float64, nanSeen bool, p Params) (*models.ThresholdResult, error) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if distinct := countDistinct(sorted); distinct < MinDistinctValues {
		return nil, fmt.Errorf("%w: %d distinct values, need at least %d",
			ErrInsufficientData, distinct, MinDistinctValues)
	}

	n := len(sorted)
	lowBelow, lowAbove := splitIndices(n, p.LowerFraction)
	highBelow, highAbove := splitIndices(n, p.UpperFraction)

	res := &models.ThresholdResult{
		Min:        Round(sorted[0], p.Precision),
		LowerBelow: Round(sorted[lowBelow], p.Precision),
		LowerAbove: Round(sorted[lowAbove], p.Precision),
		UpperBelow: Round(sorted[highBelow], p.Precision),
		UpperAbove: Round(sorted[highAbove], p.Precision),
		Max:        Round(sorted[n-1], p.Precision),
		Count:      n,
	}

	// Rounding can collapse the two sides of a split onto one number.
	// Pull the lower side down so the bands stay disjoint when entered as
	// manual thresholds.
	if res.LowerBelow == res.LowerAbove {
		res.LowerBelow = res.LowerAbove - p.MinimumDifference
	}
	if res.UpperBelow == res.UpperAbove {
		res.UpperBelow = res.UpperAbove - p.MinimumDifference
	}
	res.Min = math.Min(res.Min, res.LowerBelow)

	res.Warnings = warnings(sorted, nanSeen, p)
	return res, nil
}

// splitIndices returns the two adjacent order-statistic indices straddling
// n*f. When n*f is integral the pair is (n*f-1, n*f).
func splitIndices(n int, f float64) (below, above int) {
	pos := float64(n) * f
	below = int(math.Floor(pos))
	above = int(math.Ceil(pos))

	if above > n-1 {
		above = n - 1
	}
	if above < 1 {
		above = 1
	}
	if below >= above {
		below = above - 1
	}
	return below, above
}

func countDistinct(sorted []float64) int {
	if len(sorted) == 0 {
		return 0
	}
	distinct := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			distinct++
		}
	}
	return distinct
}

func warnings(sorted []float64, nanSeen bool, p Params) []string {
	var out []string
	if floats.Min(sorted) < p.WarnLow || floats.Max(sorted) > p.WarnHigh {
		out = append(out, fmt.Sprintf(
			"Some values inside the structure are outside the expected range of %g to %g. Check the image before using these thresholds.",
			p.WarnLow, p.WarnHigh))
	}
	if nanSeen {
		out = append(out,
			"Some voxels inside the structure have no value (NaN) and were left out of the calculation.")
	}
	return out
}

// Round rounds v to the given number of decimal places, halves away from
// zero
func Round(v float64, precision int) float64 {
	if precision <= 0 {
		return math.Round(v)
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

// Summarize describes values for the report. voxelVolume is in mm³.
func Summarize(values []float64, voxelVolume float64) models.Summary {
	s := models.Summary{
		Count:    len(values),
		VolumeML: float64(len(values)) * voxelVolume / 1000,
	}
	if len(values) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		s.StdDev = 0
	}
	return s
}
