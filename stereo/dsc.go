package stereo

import "math/bits"

// DSC describes the cost of matching a left pixel with a right pixel.
//
// Features are fixed-length float64 vectors whose layout belongs to the
// implementation. Implementations must treat the slices they are given as
// read-only, except for out.
type DSC interface {
	// FeatureLen returns the length of every feature vector.
	FeatureLen() int

	WidthLeft() int
	HeightLeft() int
	WidthRight() int
	HeightRight() int

	// Left writes the feature of left pixel (x, y) into out.
	Left(x, y int, out []float64)
	// Right writes the feature of right pixel (x, y) into out.
	Right(x, y int, out []float64)

	// Cost returns the non-negative cost of matching two features.
	Cost(left, right []float64) float64

	// Join merges two features with equal weight. out may alias a or b.
	Join(a, b, out []float64)
	// JoinN merges up to four features with equal weight, skipping nil
	// entries. If every entry is nil out is zeroed.
	JoinN(in [][]float64, out []float64)

	// PixelCost is Cost(Left(leftX, y), Right(rightX, y)).
	PixelCost(leftX, rightX, y int) float64

	// Clone returns an independent copy.
	Clone() DSC
}

// topBit returns how many right shifts it takes to reduce n to zero.
func topBit(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n))
}

// pyramidLevels returns the number of levels for the given extents.
func pyramidLevels(dims ...int) int {
	levels := 0
	for _, d := range dims {
		levels = max(levels, topBit(d))
	}
	return levels
}

// pixelCost evaluates the two step form of PixelCost.
func pixelCost(d DSC, leftX, rightX, y int) float64 {
	n := d.FeatureLen()
	buf := make([]float64, 2*n)
	d.Left(leftX, y, buf[:n])
	d.Right(rightX, y, buf[n:])
	return d.Cost(buf[:n], buf[n:])
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
