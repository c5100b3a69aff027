package kdtree

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Metric measures distance between positions. Searches compare reduced
// distances, a monotone transform of Distance that skips the final root,
// and prune a branch when the reduced bound for its gap along the split
// axis is no better than the best found so far.
type Metric interface {
	Distance(a, b []float64) float64
	Reduced(a, b []float64) float64
	// AxisReduced is a lower bound, in reduced space, on the distance
	// between two positions whose coordinates differ by gap on one axis.
	AxisReduced(gap float64) float64
	// FromReduced inverts Reduced.
	FromReduced(r float64) float64
}

// Euclidean is the L2 distance. Its reduced form is the squared distance.
type Euclidean struct{}

func (Euclidean) Distance(a, b []float64) float64 { return floats.Distance(a, b, 2) }

func (Euclidean) Reduced(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func (Euclidean) AxisReduced(gap float64) float64 { return gap * gap }
func (Euclidean) FromReduced(r float64) float64   { return math.Sqrt(r) }

// Manhattan is the L1 (city-block) distance.
type Manhattan struct{}

func (Manhattan) Distance(a, b []float64) float64 { return floats.Distance(a, b, 1) }
func (Manhattan) Reduced(a, b []float64) float64  { return floats.Distance(a, b, 1) }
func (Manhattan) AxisReduced(gap float64) float64 { return math.Abs(gap) }
func (Manhattan) FromReduced(r float64) float64   { return r }

// Chebyshev is the L-infinity distance.
type Chebyshev struct{}

func (Chebyshev) Distance(a, b []float64) float64 { return floats.Distance(a, b, math.Inf(1)) }
func (Chebyshev) Reduced(a, b []float64) float64  { return floats.Distance(a, b, math.Inf(1)) }
func (Chebyshev) AxisReduced(gap float64) float64 { return math.Abs(gap) }
func (Chebyshev) FromReduced(r float64) float64   { return r }

// Minkowski is the Lp distance for P >= 1. Its reduced form is
// sum(|a[i]-b[i]|^P) without the final root. Panics if P < 1.
type Minkowski struct {
	P float64
}

func (m Minkowski) Distance(a, b []float64) float64 {
	return math.Pow(m.Reduced(a, b), 1/m.P)
}

func (m Minkowski) Reduced(a, b []float64) float64 {
	if m.P < 1 {
		panic("kdtree: Minkowski P must be >= 1")
	}
	var sum float64
	for i := range a {
		sum += math.Pow(math.Abs(a[i]-b[i]), m.P)
	}
	return sum
}

func (m Minkowski) AxisReduced(gap float64) float64 { return math.Pow(math.Abs(gap), m.P) }
func (m Minkowski) FromReduced(r float64) float64   { return math.Pow(r, 1/m.P) }
