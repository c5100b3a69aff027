package stereo

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/TrevorS/cyclops/field"
)

// LuvDSC matches colour images by Euclidean distance in Luv space. Colours are
// scaled by mult and the resulting distance is capped at cap, so occlusions
// and specularities cannot dominate the energy.
type LuvDSC struct {
	left, right *field.Field[field.Luv]
	mult, cap   float64
}

// NewLuvDSC returns a colour DSC. A cap of +Inf disables capping.
func NewLuvDSC(left, right *field.Field[field.Luv], mult, cap float64) *LuvDSC {
	return &LuvDSC{left: left, right: right, mult: mult, cap: cap}
}

func (d *LuvDSC) FeatureLen() int  { return 3 }
func (d *LuvDSC) WidthLeft() int   { return d.left.Width() }
func (d *LuvDSC) HeightLeft() int  { return d.left.Height() }
func (d *LuvDSC) WidthRight() int  { return d.right.Width() }
func (d *LuvDSC) HeightRight() int { return d.right.Height() }

func (d *LuvDSC) Left(x, y int, out []float64)  { d.luv(d.left.Get(x, y), out) }
func (d *LuvDSC) Right(x, y int, out []float64) { d.luv(d.right.Get(x, y), out) }

func (d *LuvDSC) luv(c field.Luv, out []float64) {
	out[0] = c.L * d.mult
	out[1] = c.U * d.mult
	out[2] = c.V * d.mult
}

func (d *LuvDSC) Cost(left, right []float64) float64 {
	return math.Min(floats.Distance(left[:3], right[:3], 2), d.cap)
}

func (d *LuvDSC) Join(a, b, out []float64) {
	for i := 0; i < 3; i++ {
		out[i] = 0.5 * (a[i] + b[i])
	}
}

func (d *LuvDSC) JoinN(in [][]float64, out []float64) { meanJoin(in, out[:3]) }

func (d *LuvDSC) PixelCost(leftX, rightX, y int) float64 {
	var buf [6]float64
	d.Left(leftX, y, buf[:3])
	d.Right(rightX, y, buf[3:])
	return d.Cost(buf[:3], buf[3:])
}

func (d *LuvDSC) Clone() DSC {
	c := *d
	return &c
}

// BoundLuvDSC is the colour analogue of BoundDifferenceDSC: each pixel is the
// axis-aligned Luv box spanned by itself and the half-way colours towards its
// 4-neighbours, and the cost is the distance between boxes times mult,
// capped at cap.
type BoundLuvDSC struct {
	left, right *field.Field[field.Luv]
	mult, cap   float64
}

// NewBoundLuvDSC returns a colour interval DSC.
func NewBoundLuvDSC(left, right *field.Field[field.Luv], mult, cap float64) *BoundLuvDSC {
	return &BoundLuvDSC{left: left, right: right, mult: mult, cap: cap}
}

// SetMult changes the distance multiplier.
func (d *BoundLuvDSC) SetMult(m float64) { d.mult = m }

// SetCap changes the cost cap.
func (d *BoundLuvDSC) SetCap(c float64) { d.cap = c }

func (d *BoundLuvDSC) FeatureLen() int  { return 6 }
func (d *BoundLuvDSC) WidthLeft() int   { return d.left.Width() }
func (d *BoundLuvDSC) HeightLeft() int  { return d.left.Height() }
func (d *BoundLuvDSC) WidthRight() int  { return d.right.Width() }
func (d *BoundLuvDSC) HeightRight() int { return d.right.Height() }

func (d *BoundLuvDSC) Left(x, y int, out []float64)  { luvBounds(d.left, x, y, out) }
func (d *BoundLuvDSC) Right(x, y int, out []float64) { luvBounds(d.right, x, y, out) }

func (d *BoundLuvDSC) Cost(left, right []float64) float64 {
	var gap [3]float64
	for c := 0; c < 3; c++ {
		gap[c] = intervalGap(left[2*c], left[2*c+1], right[2*c], right[2*c+1])
	}
	return math.Min(floats.Norm(gap[:], 2)*d.mult, d.cap)
}

func (d *BoundLuvDSC) Join(a, b, out []float64) {
	for i := 0; i < 6; i += 2 {
		out[i] = math.Min(a[i], b[i])
		out[i+1] = math.Max(a[i+1], b[i+1])
	}
}

func (d *BoundLuvDSC) JoinN(in [][]float64, out []float64) { boundsJoin(in, out[:6]) }

func (d *BoundLuvDSC) PixelCost(leftX, rightX, y int) float64 {
	var buf [12]float64
	d.Left(leftX, y, buf[:6])
	d.Right(rightX, y, buf[6:])
	return d.Cost(buf[:6], buf[6:])
}

func (d *BoundLuvDSC) Clone() DSC {
	c := *d
	return &c
}

func luvBounds(f *field.Field[field.Luv], x, y int, out []float64) {
	halfwayBounds(f.Width(), f.Height(), x, y, 3, func(x, y, c int) float64 {
		v := f.Get(x, y)
		switch c {
		case 0:
			return v.L
		case 1:
			return v.U
		default:
			return v.V
		}
	}, out)
}
