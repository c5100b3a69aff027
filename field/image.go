package field

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Luv is a CIE L*u*v* colour on the conventional 0..100 lightness scale.
type Luv struct {
	L, U, V float64
}

// Diff returns the Euclidean distance between two Luv colours.
func (a Luv) Diff(b Luv) float64 {
	dl := a.L - b.L
	du := a.U - b.U
	dv := a.V - b.V
	return math.Sqrt(dl*dl + du*du + dv*dv)
}

// LuvFromColor converts any colour to Luv. Fully transparent pixels map to black.
func LuvFromColor(c color.Color) Luv {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return Luv{}
	}
	l, u, v := cf.Luv()
	return Luv{L: l * 100, U: u * 100, V: v * 100}
}

// Color converts back to an sRGB colour, clamped into gamut.
func (a Luv) Color() color.Color {
	return colorful.Luv(a.L/100, a.U/100, a.V/100).Clamped()
}

// LuvFromImage converts an image into a Luv field with its origin at the
// image's minimum bound.
func LuvFromImage(img image.Image) *Field[Luv] {
	b := img.Bounds()
	out := New[Luv](b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(x, y, LuvFromColor(img.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return out
}

// GrayFromImage converts an image into a luminance field in [0, 1].
func GrayFromImage(img image.Image) *Field[float64] {
	b := img.Bounds()
	out := New[float64](b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			out.Set(x, y, float64(g.Y)/0xffff)
		}
	}
	return out
}

// GrayImage renders a scalar field as an 8-bit image, mapping [lo, hi] onto
// [0, 255]. Values outside the interval saturate.
func GrayImage(f *Field[float64], lo, hi float64) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, f.Width(), f.Height()))
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			v := (f.Get(x, y) - lo) * scale
			out.SetGray(x, y, color.Gray{Y: uint8(math.Max(0, math.Min(255, math.Round(v))))})
		}
	}
	return out
}
