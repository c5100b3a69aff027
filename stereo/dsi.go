package stereo

import (
	"math"

	"github.com/TrevorS/cyclops/field"
)

// DSI is a disparity-space image: for every left pixel an ascending list of
// candidate disparities, each with a cost. A pixel with Size 0 has no result.
type DSI interface {
	Width() int
	Height() int

	// Size returns the number of candidates at (x, y).
	Size(x, y int) int
	// Disp returns candidate i of (x, y). Disparities ascend with i.
	Disp(x, y, i int) float64
	// Cost returns the cost of candidate i, lower is better.
	Cost(x, y, i int) float64
	// DispWidth returns the half width of the disparity interval covered by
	// candidate i; 0 for point estimates.
	DispWidth(x, y, i int) float64
}

// Prob returns the unnormalised probability exp(-Cost) of a candidate.
func Prob(d DSI, x, y, i int) float64 {
	return math.Exp(-d.Cost(x, y, i))
}

// BestDisparity writes the lowest cost disparity of every pixel into out,
// 0 where a pixel has no candidates. out must be Width×Height.
func BestDisparity(d DSI, out *field.Field[float64]) {
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			n := d.Size(x, y)
			if n == 0 {
				out.Set(x, y, 0)
				continue
			}
			best, bestCost := d.Disp(x, y, 0), d.Cost(x, y, 0)
			for i := 1; i < n; i++ {
				if c := d.Cost(x, y, i); c < bestCost {
					best, bestCost = d.Disp(x, y, i), c
				}
			}
			out.Set(x, y, best)
		}
	}
}

// ValidMask writes true into out wherever the DSI has at least one candidate.
func ValidMask(d DSI, out *field.Mask) {
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			out.Set(x, y, d.Size(x, y) != 0)
		}
	}
}

// FieldDSI presents a plain disparity map as a DSI with one zero-cost
// candidate per pixel. Pixels masked out have no candidates.
type FieldDSI struct {
	disp *field.Field[float64]
	mask *field.Mask
}

// NewFieldDSI wraps disp; mask may be nil.
func NewFieldDSI(disp *field.Field[float64], mask *field.Mask) *FieldDSI {
	return &FieldDSI{disp: disp, mask: mask}
}

func (f *FieldDSI) Width() int  { return f.disp.Width() }
func (f *FieldDSI) Height() int { return f.disp.Height() }

func (f *FieldDSI) Size(x, y int) int {
	if field.Valid(f.mask, x, y) {
		return 1
	}
	return 0
}

func (f *FieldDSI) Disp(x, y, _ int) float64      { return f.disp.Get(x, y) }
func (f *FieldDSI) Cost(_, _, _ int) float64      { return 0 }
func (f *FieldDSI) DispWidth(_, _, _ int) float64 { return 0 }
