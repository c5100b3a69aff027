package stereo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RegionDSC aggregates a child DSC over a (2r+1)×(2r+1) window. The feature
// of a pixel is the child feature of every window cell, with coordinates
// clamped to the image, and the cost is a weighted sum of the per-cell child
// costs. Weights fall off as exp(-falloff·dist) from the centre and sum to one.
type RegionDSC struct {
	child   DSC
	radius  int
	dim     int
	falloff float64
	weight  []float64
}

// NewRegionDSC wraps a clone of child. cornerWeight is the unnormalised
// weight of the window corners relative to the centre, which fixes the
// falloff; with a radius of 0 the falloff is 1.
func NewRegionDSC(child DSC, radius int, cornerWeight float64) *RegionDSC {
	r := &RegionDSC{child: child.Clone(), radius: radius, dim: 2*radius + 1}
	if radius != 0 {
		r.SetFalloff(-math.Log(cornerWeight) / math.Sqrt(2*float64(radius)*float64(radius)))
	} else {
		r.SetFalloff(1)
	}
	return r
}

// SetFalloff replaces the falloff rate and recomputes the window weights.
func (r *RegionDSC) SetFalloff(fo float64) {
	r.falloff = fo
	r.weight = make([]float64, 0, r.dim*r.dim)
	for v := -r.radius; v <= r.radius; v++ {
		for u := -r.radius; u <= r.radius; u++ {
			r.weight = append(r.weight, math.Exp(-fo*math.Sqrt(float64(u*u+v*v))))
		}
	}
	floats.Scale(1/floats.Sum(r.weight), r.weight)
}

// Falloff returns the current falloff rate.
func (r *RegionDSC) Falloff() float64 { return r.falloff }

// Weights returns the normalised window weights, row by row.
func (r *RegionDSC) Weights() []float64 { return r.weight }

func (r *RegionDSC) FeatureLen() int  { return len(r.weight) * r.child.FeatureLen() }
func (r *RegionDSC) WidthLeft() int   { return r.child.WidthLeft() }
func (r *RegionDSC) HeightLeft() int  { return r.child.HeightLeft() }
func (r *RegionDSC) WidthRight() int  { return r.child.WidthRight() }
func (r *RegionDSC) HeightRight() int { return r.child.HeightRight() }

func (r *RegionDSC) Left(x, y int, out []float64) {
	r.window(x, y, r.child.WidthLeft(), r.child.HeightLeft(), r.child.Left, out)
}

func (r *RegionDSC) Right(x, y int, out []float64) {
	r.window(x, y, r.child.WidthRight(), r.child.HeightRight(), r.child.Right, out)
}

func (r *RegionDSC) window(x, y, w, h int, feature func(x, y int, out []float64), out []float64) {
	n := r.child.FeatureLen()
	off := 0
	for v := -r.radius; v <= r.radius; v++ {
		ny := clampInt(y+v, 0, h-1)
		for u := -r.radius; u <= r.radius; u++ {
			feature(clampInt(x+u, 0, w-1), ny, out[off:off+n])
			off += n
		}
	}
}

func (r *RegionDSC) Cost(left, right []float64) float64 {
	n := r.child.FeatureLen()
	ret := 0.0
	for i, w := range r.weight {
		ret += w * r.child.Cost(left[i*n:(i+1)*n], right[i*n:(i+1)*n])
	}
	return ret
}

func (r *RegionDSC) Join(a, b, out []float64) {
	n := r.child.FeatureLen()
	for i := range r.weight {
		r.child.Join(a[i*n:(i+1)*n], b[i*n:(i+1)*n], out[i*n:(i+1)*n])
	}
}

func (r *RegionDSC) JoinN(in [][]float64, out []float64) {
	n := r.child.FeatureLen()
	var stack [4][]float64
	sub := stack[:0]
	if len(in) > len(stack) {
		sub = make([][]float64, 0, len(in))
	}
	sub = sub[:len(in)]
	for i := range r.weight {
		for j, v := range in {
			if v == nil {
				sub[j] = nil
			} else {
				sub[j] = v[i*n : (i+1)*n]
			}
		}
		r.child.JoinN(sub, out[i*n:(i+1)*n])
	}
}

func (r *RegionDSC) PixelCost(leftX, rightX, y int) float64 {
	wl, wr := r.child.WidthLeft(), r.child.WidthRight()
	hl, hr := r.child.HeightLeft(), r.child.HeightRight()
	ret := 0.0
	i := 0
	for v := -r.radius; v <= r.radius; v++ {
		nyl := clampInt(y+v, 0, hl-1)
		nyr := clampInt(y+v, 0, hr-1)
		for u := -r.radius; u <= r.radius; u++ {
			nxl := clampInt(leftX+u, 0, wl-1)
			nxr := clampInt(rightX+u, 0, wr-1)
			if nyl == nyr {
				ret += r.weight[i] * r.child.PixelCost(nxl, nxr, nyl)
			} else {
				ret += r.weight[i] * r.splitCost(nxl, nyl, nxr, nyr)
			}
			i++
		}
	}
	return ret
}

// splitCost handles windows that clamp to different rows in each image.
func (r *RegionDSC) splitCost(lx, ly, rx, ry int) float64 {
	n := r.child.FeatureLen()
	buf := make([]float64, 2*n)
	r.child.Left(lx, ly, buf[:n])
	r.child.Right(rx, ry, buf[n:])
	return r.child.Cost(buf[:n], buf[n:])
}

func (r *RegionDSC) Clone() DSC {
	c := &RegionDSC{
		child:   r.child.Clone(),
		radius:  r.radius,
		dim:     r.dim,
		falloff: r.falloff,
		weight:  append([]float64(nil), r.weight...),
	}
	return c
}
