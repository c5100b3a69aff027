package stereo

import (
	"math"

	"github.com/TrevorS/cyclops/field"
)

// DifferenceDSC matches scalar images by absolute difference. Each value is
// scaled by mult before comparison.
type DifferenceDSC struct {
	left, right *field.Field[float64]
	mult        float64
}

// NewDifferenceDSC returns a DSC over two scalar images.
func NewDifferenceDSC(left, right *field.Field[float64], mult float64) *DifferenceDSC {
	return &DifferenceDSC{left: left, right: right, mult: mult}
}

func (d *DifferenceDSC) FeatureLen() int  { return 1 }
func (d *DifferenceDSC) WidthLeft() int   { return d.left.Width() }
func (d *DifferenceDSC) HeightLeft() int  { return d.left.Height() }
func (d *DifferenceDSC) WidthRight() int  { return d.right.Width() }
func (d *DifferenceDSC) HeightRight() int { return d.right.Height() }

func (d *DifferenceDSC) Left(x, y int, out []float64)  { out[0] = d.left.Get(x, y) * d.mult }
func (d *DifferenceDSC) Right(x, y int, out []float64) { out[0] = d.right.Get(x, y) * d.mult }

func (d *DifferenceDSC) Cost(left, right []float64) float64 {
	return math.Abs(left[0] - right[0])
}

func (d *DifferenceDSC) Join(a, b, out []float64) {
	out[0] = 0.5 * (a[0] + b[0])
}

func (d *DifferenceDSC) JoinN(in [][]float64, out []float64) {
	meanJoin(in, out)
}

func (d *DifferenceDSC) PixelCost(leftX, rightX, y int) float64 {
	return math.Abs(d.left.Get(leftX, y)*d.mult - d.right.Get(rightX, y)*d.mult)
}

func (d *DifferenceDSC) Clone() DSC {
	c := *d
	return &c
}

// BoundDifferenceDSC matches scalar images by interval distance. A pixel's
// feature is the interval spanned by its own value and the half-way values
// towards its 4-neighbours, which makes it tolerant to sub-pixel shifts.
type BoundDifferenceDSC struct {
	left, right *field.Field[float64]
	mult        float64
}

// NewBoundDifferenceDSC returns an interval DSC over two scalar images.
func NewBoundDifferenceDSC(left, right *field.Field[float64], mult float64) *BoundDifferenceDSC {
	return &BoundDifferenceDSC{left: left, right: right, mult: mult}
}

func (d *BoundDifferenceDSC) FeatureLen() int  { return 2 }
func (d *BoundDifferenceDSC) WidthLeft() int   { return d.left.Width() }
func (d *BoundDifferenceDSC) HeightLeft() int  { return d.left.Height() }
func (d *BoundDifferenceDSC) WidthRight() int  { return d.right.Width() }
func (d *BoundDifferenceDSC) HeightRight() int { return d.right.Height() }

func (d *BoundDifferenceDSC) Left(x, y int, out []float64) {
	scalarBounds(d.left, x, y, d.mult, out)
}

func (d *BoundDifferenceDSC) Right(x, y int, out []float64) {
	scalarBounds(d.right, x, y, d.mult, out)
}

func (d *BoundDifferenceDSC) Cost(left, right []float64) float64 {
	return intervalGap(left[0], left[1], right[0], right[1])
}

func (d *BoundDifferenceDSC) Join(a, b, out []float64) {
	out[0] = math.Min(a[0], b[0])
	out[1] = math.Max(a[1], b[1])
}

func (d *BoundDifferenceDSC) JoinN(in [][]float64, out []float64) {
	boundsJoin(in, out)
}

func (d *BoundDifferenceDSC) PixelCost(leftX, rightX, y int) float64 {
	var buf [4]float64
	d.Left(leftX, y, buf[:2])
	d.Right(rightX, y, buf[2:])
	return d.Cost(buf[:2], buf[2:])
}

func (d *BoundDifferenceDSC) Clone() DSC {
	c := *d
	return &c
}

// scalarBounds writes the scaled [min, max] interval of pixel (x, y) and the
// half-way points to its in-image 4-neighbours.
func scalarBounds(f *field.Field[float64], x, y int, mult float64, out []float64) {
	halfwayBounds(f.Width(), f.Height(), x, y, 1, func(x, y, _ int) float64 { return f.Get(x, y) }, out)
	out[0] *= mult
	out[1] *= mult
	if mult < 0 {
		out[0], out[1] = out[1], out[0]
	}
}

var neighbourOffsets = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// halfwayBounds writes, for each channel c, the interval out[2c], out[2c+1]
// covering the channel at (x, y) and half way to each in-range 4-neighbour.
func halfwayBounds(w, h, x, y, channels int, value func(x, y, c int) float64, out []float64) {
	for c := 0; c < channels; c++ {
		v := value(x, y, c)
		lo, hi := v, v
		for _, off := range neighbourOffsets {
			nx, ny := x+off[0], y+off[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			s := 0.5 * (v + value(nx, ny, c))
			lo = math.Min(lo, s)
			hi = math.Max(hi, s)
		}
		out[2*c] = lo
		out[2*c+1] = hi
	}
}

// intervalGap returns the distance between [aMin, aMax] and [bMin, bMax],
// zero when they overlap.
func intervalGap(aMin, aMax, bMin, bMax float64) float64 {
	return math.Max(0, math.Max(aMin-bMax, bMin-aMax))
}

// meanJoin writes the equal-weight mean of the non-nil inputs.
func meanJoin(in [][]float64, out []float64) {
	clear(out)
	num := 0
	for _, v := range in {
		if v == nil {
			continue
		}
		num++
		for i := range out {
			out[i] += (v[i] - out[i]) / float64(num)
		}
	}
}

// boundsJoin writes the union of interval features laid out as
// [min0, max0, min1, max1, ...].
func boundsJoin(in [][]float64, out []float64) {
	first := true
	for _, v := range in {
		if v == nil {
			continue
		}
		if first {
			copy(out, v)
			first = false
			continue
		}
		for i := 0; i+1 < len(out); i += 2 {
			out[i] = math.Min(out[i], v[i])
			out[i+1] = math.Max(out[i+1], v[i+1])
		}
	}
	if first {
		clear(out)
	}
}
