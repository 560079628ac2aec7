// Package collector filters the display values of voxels inside a structure
// and accumulates the survivors.
package collector

import (
	"math"

	"ventthirds/internal/models"
)

// Collector accumulates display values for one run. The zero value keeps
// every non-NaN value; use New for the default exclusion rule.
type Collector struct {
	// ExcludeNonPositive drops values that are <= 0 or below
	// MinimumDifference
	ExcludeNonPositive bool

	// MinimumDifference is the smallest value kept when ExcludeNonPositive
	// is set
	MinimumDifference float64

	// NaNSeen is set once any NaN display value was offered
	NaNSeen bool

	samples []models.Sample
	dropped int
}

// New returns a collector applying the exclusion rule with the given minimum
func New(excludeNonPositive bool, minimumDifference float64) *Collector {
	return &Collector{
		ExcludeNonPositive: excludeNonPositive,
		MinimumDifference:  minimumDifference,
	}
}

// Add offers the display value of one inside voxel
func (c *Collector) Add(v models.Voxel, display float64) {
	if math.IsNaN(display) {
		c.NaNSeen = true
		c.dropped++
		return
	}

	if c.ExcludeNonPositive && !(display > 0 && display >= c.MinimumDifference) {
		c.dropped++
		return
	}

	c.samples = append(c.samples, models.Sample{Voxel: v, Value: display})
}

// Values returns a copy of the kept display values in insertion order
func (c *Collector) Values() []float64 {
	values := make([]float64, len(c.samples))
	for i, s := range c.samples {
		values[i] = s.Value
	}
	return values
}

// Samples returns the kept values together with their voxels
func (c *Collector) Samples() []models.Sample {
	return c.samples
}

// Len is the number of kept values
func (c *Collector) Len() int {
	return len(c.samples)
}

// Dropped is the number of values rejected (NaN or excluded)
func (c *Collector) Dropped() int {
	return c.dropped
}
