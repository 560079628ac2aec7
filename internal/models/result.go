package models

// ThresholdResult holds the six band boundaries of a volumetric-thirds
// split, rounded to the display precision, plus advisory warnings.
//
// The bands are:
//
//	lower  third: Min        .. LowerBelow
//	middle third: LowerAbove .. UpperBelow
//	upper  third: UpperAbove .. Max
type ThresholdResult struct {
	Min        float64
	LowerBelow float64
	LowerAbove float64
	UpperBelow float64
	UpperAbove float64
	Max        float64

	// Count is the number of values the split was computed from
	Count int

	// Warnings are data-quality notes; they never invalidate the result
	Warnings []string
}

// Summary describes the collected values independently of the split
type Summary struct {
	// Count is the number of voxels that contributed a value
	Count int

	// Mean and StdDev of the collected display values
	Mean   float64
	StdDev float64

	// VolumeML is Count times the voxel volume, in millilitres
	VolumeML float64
}
