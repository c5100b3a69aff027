package stereo

import "math"

// composite concatenates the features of several DSCs sharing one geometry.
type composite struct {
	dsc    []DSC
	offset []int // start of each child's feature, plus the total at the end
}

func (c *composite) add(d DSC) {
	if len(c.offset) == 0 {
		c.offset = append(c.offset, 0)
	}
	c.dsc = append(c.dsc, d.Clone())
	c.offset = append(c.offset, c.offset[len(c.offset)-1]+d.FeatureLen())
}

func (c *composite) part(i int, f []float64) []float64 {
	return f[c.offset[i]:c.offset[i+1]]
}

func (c *composite) clone() composite {
	out := composite{offset: append([]int(nil), c.offset...)}
	for _, d := range c.dsc {
		out.dsc = append(out.dsc, d.Clone())
	}
	return out
}

func (c *composite) FeatureLen() int {
	if len(c.offset) == 0 {
		return 0
	}
	return c.offset[len(c.offset)-1]
}

func (c *composite) WidthLeft() int   { return c.dsc[0].WidthLeft() }
func (c *composite) HeightLeft() int  { return c.dsc[0].HeightLeft() }
func (c *composite) WidthRight() int  { return c.dsc[0].WidthRight() }
func (c *composite) HeightRight() int { return c.dsc[0].HeightRight() }

func (c *composite) Left(x, y int, out []float64) {
	for i, d := range c.dsc {
		d.Left(x, y, c.part(i, out))
	}
}

func (c *composite) Right(x, y int, out []float64) {
	for i, d := range c.dsc {
		d.Right(x, y, c.part(i, out))
	}
}

func (c *composite) Join(a, b, out []float64) {
	for i, d := range c.dsc {
		d.Join(c.part(i, a), c.part(i, b), c.part(i, out))
	}
}

func (c *composite) JoinN(in [][]float64, out []float64) {
	var stack [4][]float64
	sub := stack[:0]
	if len(in) > len(stack) {
		sub = make([][]float64, 0, len(in))
	}
	sub = sub[:len(in)]
	for i, d := range c.dsc {
		for j, v := range in {
			if v == nil {
				sub[j] = nil
			} else {
				sub[j] = c.part(i, v)
			}
		}
		d.JoinN(sub, c.part(i, out))
	}
}

// ManhattanDSC sums the costs of several DSCs over the same image pair.
// Children must be added before use and must agree on image sizes.
type ManhattanDSC struct {
	composite
}

// NewManhattanDSC returns a sum of clones of the given DSCs.
func NewManhattanDSC(dscs ...DSC) *ManhattanDSC {
	m := &ManhattanDSC{}
	for _, d := range dscs {
		m.Add(d)
	}
	return m
}

// Add appends a clone of d.
func (m *ManhattanDSC) Add(d DSC) { m.add(d) }

func (m *ManhattanDSC) Cost(left, right []float64) float64 {
	ret := 0.0
	for i, d := range m.dsc {
		ret += d.Cost(m.part(i, left), m.part(i, right))
	}
	return ret
}

func (m *ManhattanDSC) PixelCost(leftX, rightX, y int) float64 {
	ret := 0.0
	for _, d := range m.dsc {
		ret += d.PixelCost(leftX, rightX, y)
	}
	return ret
}

func (m *ManhattanDSC) Clone() DSC { return &ManhattanDSC{composite: m.clone()} }

// EuclideanDSC combines several DSCs as the root of their summed squared
// costs.
type EuclideanDSC struct {
	composite
}

// NewEuclideanDSC returns a Euclidean combination of clones of the given DSCs.
func NewEuclideanDSC(dscs ...DSC) *EuclideanDSC {
	e := &EuclideanDSC{}
	for _, d := range dscs {
		e.Add(d)
	}
	return e
}

// Add appends a clone of d.
func (e *EuclideanDSC) Add(d DSC) { e.add(d) }

func (e *EuclideanDSC) Cost(left, right []float64) float64 {
	ret := 0.0
	for i, d := range e.dsc {
		c := d.Cost(e.part(i, left), e.part(i, right))
		ret += c * c
	}
	return math.Sqrt(ret)
}

func (e *EuclideanDSC) PixelCost(leftX, rightX, y int) float64 {
	ret := 0.0
	for _, d := range e.dsc {
		c := d.PixelCost(leftX, rightX, y)
		ret += c * c
	}
	return math.Sqrt(ret)
}

func (e *EuclideanDSC) Clone() DSC { return &EuclideanDSC{composite: e.clone()} }

// SwapDSC exchanges the roles of the left and right images of another DSC,
// so a right-referenced disparity map can be computed with the same code.
type SwapDSC struct {
	inner DSC
}

// NewSwapDSC wraps a clone of d.
func NewSwapDSC(d DSC) *SwapDSC { return &SwapDSC{inner: d.Clone()} }

func (s *SwapDSC) FeatureLen() int  { return s.inner.FeatureLen() }
func (s *SwapDSC) WidthLeft() int   { return s.inner.WidthRight() }
func (s *SwapDSC) HeightLeft() int  { return s.inner.HeightRight() }
func (s *SwapDSC) WidthRight() int  { return s.inner.WidthLeft() }
func (s *SwapDSC) HeightRight() int { return s.inner.HeightLeft() }

func (s *SwapDSC) Left(x, y int, out []float64)  { s.inner.Right(x, y, out) }
func (s *SwapDSC) Right(x, y int, out []float64) { s.inner.Left(x, y, out) }

func (s *SwapDSC) Cost(left, right []float64) float64 { return s.inner.Cost(left, right) }

func (s *SwapDSC) Join(a, b, out []float64)            { s.inner.Join(a, b, out) }
func (s *SwapDSC) JoinN(in [][]float64, out []float64) { s.inner.JoinN(in, out) }

func (s *SwapDSC) PixelCost(leftX, rightX, y int) float64 {
	return pixelCost(s, leftX, rightX, y)
}

func (s *SwapDSC) Clone() DSC { return NewSwapDSC(s.inner) }
