package collector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"ventthirds/internal/models"
)

var offered = []float64{-5, -0.5, 0, 0.5, 1, 1.5, 42, math.NaN(), 3, math.Inf(1)}

func feed(c *Collector, values []float64) {
	for i, v := range values {
		c.Add(models.Voxel{I: i}, v)
	}
}

func TestExclusionOn(t *testing.T) {
	c := New(true, 1)
	feed(c, offered)

	assert.Equal(t, []float64{1, 1.5, 42, 3, math.Inf(1)}, c.Values())
	assert.True(t, c.NaNSeen)
	assert.Equal(t, 5, c.Dropped())

	for _, v := range c.Values() {
		if v <= 0 || v < 1 {
			t.Errorf("value %v should have been excluded", v)
		}
	}
}

func TestExclusionOff(t *testing.T) {
	c := New(false, 1)
	feed(c, offered)

	assert.Len(t, c.Values(), len(offered)-1, "only the NaN is dropped")
	assert.Contains(t, c.Values(), -5.0)
	assert.Contains(t, c.Values(), 0.0)
	assert.True(t, c.NaNSeen)
	assert.Equal(t, 1, c.Dropped())
}

func TestMinimumDifferenceAboveOne(t *testing.T) {
	c := New(true, 10)
	feed(c, []float64{5, 9.99, 10, 11})
	assert.Equal(t, []float64{10, 11}, c.Values())
	assert.False(t, c.NaNSeen)
}

func TestDuplicatesKeptWithVoxels(t *testing.T) {
	c := New(true, 1)
	c.Add(models.Voxel{I: 1}, 5)
	c.Add(models.Voxel{I: 2}, 5)
	c.Add(models.Voxel{I: 3}, 5)

	assert.Equal(t, 3, c.Len())
	samples := c.Samples()
	assert.Equal(t, 2, samples[1].Voxel.I)
	assert.Equal(t, 5.0, samples[1].Value)
}

func TestNaNFlagIndependentOfExclusion(t *testing.T) {
	// A NaN is flagged even though it would never survive the exclusion rule
	c := New(true, 1)
	c.Add(models.Voxel{}, math.NaN())
	assert.True(t, c.NaNSeen)
	assert.Zero(t, c.Len())
}
