package thresholds

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oneToN(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i + 1)
	}
	return values
}

func TestComputeOneToNinetyNine(t *testing.T) {
	values := oneToN(99)
	rand.New(rand.NewSource(1)).Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	res, err := Compute(values, false, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Min)
	assert.Equal(t, 33.0, res.LowerBelow)
	assert.Equal(t, 34.0, res.LowerAbove)
	assert.Equal(t, 66.0, res.UpperBelow)
	assert.Equal(t, 67.0, res.UpperAbove)
	assert.Equal(t, 99.0, res.Max)
	assert.Equal(t, 99, res.Count)
	assert.Empty(t, res.Warnings)
}

func TestComputeDoesNotModifyInput(t *testing.T) {
	values := []float64{5, 3, 9, 1}
	_, err := Compute(values, false, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 3, 9, 1}, values)
}

func TestInsufficientData(t *testing.T) {
	testCases := []struct {
		name   string
		values []float64
		ok     bool
	}{
		{"no values", nil, false},
		{"one value", []float64{5}, false},
		{"one distinct value", []float64{5, 5, 5, 5}, false},
		{"two distinct values", []float64{5, 7, 5, 7, 7}, false},
		{"three distinct values", []float64{1, 2, 3}, true},
		{"three distinct with repeats", []float64{1, 1, 2, 3, 3, 3}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Compute(tc.values, false, DefaultParams())
			if tc.ok {
				require.NoError(t, err)
				require.NotNil(t, res)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInsufficientData))
			assert.Nil(t, res)
		})
	}
}

func TestThreeDistinctValues(t *testing.T) {
	res, err := Compute([]float64{3, 1, 2}, false, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Min)
	assert.Equal(t, 1.0, res.LowerBelow)
	assert.Equal(t, 2.0, res.LowerAbove)
	assert.Equal(t, 2.0, res.UpperBelow)
	assert.Equal(t, 3.0, res.UpperAbove)
	assert.Equal(t, 3.0, res.Max)
}

func TestSplitIndices(t *testing.T) {
	testCases := []struct {
		n            int
		f            float64
		below, above int
	}{
		{99, 0.33, 32, 33},
		{99, 0.66, 65, 66},
		{8, 0.25, 1, 2}, // n*f integral
		{8, 0.5, 3, 4},
		{3, 0.1, 0, 1},
		{3, 0.7, 1, 2}, // ceil would run past the end
		{3, 0.99, 1, 2},
	}

	for _, tc := range testCases {
		below, above := splitIndices(tc.n, tc.f)
		if below != tc.below || above != tc.above {
			t.Errorf("splitIndices(%d, %g): expected (%d, %d), got (%d, %d)",
				tc.n, tc.f, tc.below, tc.above, below, above)
		}
	}
}

func TestAntiOverlap(t *testing.T) {
	// Index 3/4 round to 4 and index 6/7 round to 8
	values := []float64{1, 2, 3, 4.2, 4.4, 6, 7.6, 7.8, 8.5, 9}

	res, err := Compute(values, false, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 1.0, res.Min)
	assert.Equal(t, 3.0, res.LowerBelow)
	assert.Equal(t, 4.0, res.LowerAbove)
	assert.Equal(t, 7.0, res.UpperBelow)
	assert.Equal(t, 8.0, res.UpperAbove)
	assert.Equal(t, 9.0, res.Max)

	// Same values at one decimal place need no correction
	p := DefaultParams()
	p.Precision = 1
	res, err = Compute(values, false, p)
	require.NoError(t, err)
	assert.Equal(t, 4.2, res.LowerBelow)
	assert.Equal(t, 4.4, res.LowerAbove)
}

func TestAntiOverlapCustomDifference(t *testing.T) {
	// At one decimal place 0.42/0.44 and 0.76/0.78 collide
	p := DefaultParams()
	p.Precision = 1
	p.MinimumDifference = 0.2
	require.NoError(t, p.Validate())

	res, err := Compute([]float64{0.1, 0.2, 0.3, 0.42, 0.44, 0.6, 0.76, 0.78, 0.85, 0.9}, false, p)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.LowerBelow, 1e-12)
	assert.InDelta(t, 0.4, res.LowerAbove, 1e-12)
	assert.InDelta(t, 0.6, res.UpperBelow, 1e-12)
	assert.InDelta(t, 0.8, res.UpperAbove, 1e-12)
}

func TestAntiOverlapLowersMin(t *testing.T) {
	// 1.1 and 1.3 both round to 1, so the lower boundary drops to 0
	res, err := Compute([]float64{1.1, 1.3, 5}, false, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.LowerBelow)
	assert.Equal(t, 1.0, res.LowerAbove)
	assert.Equal(t, 0.0, res.Min)
}

func TestBandOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	params := []Params{DefaultParams(), {
		LowerFraction: 0.2, UpperFraction: 0.8, MinimumDifference: 0.01, Precision: 2, WarnHigh: 9999,
	}}

	for trial := 0; trial < 500; trial++ {
		n := 3 + rng.Intn(200)
		values := make([]float64, n)
		for i := range values {
			values[i] = 1 + rng.Float64()*99
		}
		p := params[trial%len(params)]

		res, err := Compute(values, false, p)
		require.NoError(t, err)

		if !(res.Min <= res.LowerBelow && res.LowerBelow < res.LowerAbove &&
			res.UpperBelow < res.UpperAbove && res.UpperAbove <= res.Max &&
			res.LowerBelow <= res.UpperAbove && res.LowerAbove <= res.UpperAbove) {
			t.Fatalf("trial %d (n=%d): bands out of order: %+v", trial, n, res)
		}

		// Max is never moved by the overlap correction
		largest := values[0]
		for _, v := range values {
			largest = math.Max(largest, v)
		}
		if res.Max != Round(largest, p.Precision) {
			t.Fatalf("trial %d: expected max %g, got %g", trial, Round(largest, p.Precision), res.Max)
		}
	}
}

func TestWarnings(t *testing.T) {
	res, err := Compute([]float64{1, 2, 3, 10000}, false, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "9999")

	res, err = Compute([]float64{1, 2, 3}, true, DefaultParams())
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "NaN")

	res, err = Compute([]float64{-1, 2, 3}, true, DefaultParams())
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 2)
}

func TestRound(t *testing.T) {
	testCases := []struct {
		v         float64
		precision int
		want      float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{33.49, 0, 33},
		{1.25, 1, 1.3},
		{1.234, 2, 1.23},
		{7, 3, 7},
	}

	for _, tc := range testCases {
		if got := Round(tc.v, tc.precision); got != tc.want {
			t.Errorf("Round(%g, %d): expected %g, got %g", tc.v, tc.precision, tc.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	bad := []func(*Params){
		func(p *Params) { p.LowerFraction = 0 },
		func(p *Params) { p.UpperFraction = 1 },
		func(p *Params) { p.LowerFraction, p.UpperFraction = 0.7, 0.3 },
		func(p *Params) { p.MinimumDifference = 0 },
		func(p *Params) { p.Precision = -1 },
		func(p *Params) { p.Precision = 400 },
		func(p *Params) { p.Precision = MaxPrecision + 1; p.MinimumDifference = 1e-20 },
		func(p *Params) { p.MinimumDifference = 0.5 },
		func(p *Params) { p.Precision = 2; p.MinimumDifference = 0.005 },
		func(p *Params) { p.WarnLow = 10000 },
	}
	for i, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		err := p.Validate()
		if !errors.Is(err, ErrInvalidParams) {
			t.Errorf("case %d: expected ErrInvalidParams, got %v", i, err)
		}
	}
}

func TestValidateDisplayStep(t *testing.T) {
	testCases := []struct {
		precision int
		minDiff   float64
	}{
		{0, 1},
		{1, 0.1},
		{2, 0.01},
		{2, 0.5},
		{MaxPrecision, 1e-15},
	}

	for _, tc := range testCases {
		p := DefaultParams()
		p.Precision = tc.precision
		p.MinimumDifference = tc.minDiff
		if err := p.Validate(); err != nil {
			t.Errorf("precision %d, minimum difference %g: unexpected error %v", tc.precision, tc.minDiff, err)
		}
		if r := Round(123.456, tc.precision); math.IsNaN(r) || math.IsInf(r, 0) {
			t.Errorf("Round at precision %d gave %g", tc.precision, r)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	assert.Equal(t, 8, s.Count)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.138089935, s.StdDev, 1e-6)
	assert.InDelta(t, 0.064, s.VolumeML, 1e-12)

	assert.Equal(t, 0, Summarize(nil, 1).Count)
	assert.Zero(t, Summarize([]float64{3}, 1).StdDev)
}

func BenchmarkCompute(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	values := make([]float64, 100000)
	for i := range values {
		values[i] = rng.Float64() * 5000
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compute(values, false, DefaultParams())
	}
}
