package stereo

import (
	"github.com/golang/glog"

	"github.com/TrevorS/cyclops/field"
)

// HierarchyDSC precomputes the features of a DSC over a whole image pyramid.
// Level 0 holds the features of the wrapped DSC; every coarser level joins
// the up to four children of each pixel, leaving out children that fall off
// the image or are masked at the finer level. Cost, Join and JoinN of every
// level delegate to the wrapped DSC.
//
// The cached features are read-only once Set returns, so the per-level DSCs
// can be shared between goroutines.
type HierarchyDSC struct {
	// Workers is the number of goroutines used to build each level.
	Workers int

	levels    []*hierLevel
	leftMask  []*field.Mask
	rightMask []*field.Mask
}

// Set builds the pyramid for d. Either mask may be nil, meaning everything
// is valid.
func (h *HierarchyDSC) Set(d DSC, leftMask, rightMask *field.Mask) {
	base := d.Clone()
	n := pyramidLevels(base.WidthLeft(), base.HeightLeft(), base.WidthRight())
	glog.V(2).Infof("stereo: building %d level hierarchy for %dx%d/%dx%d", n,
		base.WidthLeft(), base.HeightLeft(), base.WidthRight(), base.HeightRight())

	h.levels = make([]*hierLevel, n)
	h.leftMask = make([]*field.Mask, n)
	h.rightMask = make([]*field.Mask, n)
	if n == 0 {
		return
	}

	fl := base.FeatureLen()
	l0 := &hierLevel{
		dsc:        base,
		featureLen: fl,
		widthLeft:  base.WidthLeft(),
		widthRight: base.WidthRight(),
		height:     base.HeightLeft(),
	}
	l0.leftData = make([]float64, fl*l0.widthLeft*l0.height)
	l0.rightData = make([]float64, fl*l0.widthRight*l0.height)
	parallelRows(l0.height, h.Workers, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < l0.widthLeft; x++ {
				base.Left(x, y, l0.left(x, y))
			}
			for x := 0; x < l0.widthRight; x++ {
				base.Right(x, y, l0.right(x, y))
			}
		}
	})
	h.levels[0] = l0
	h.leftMask[0] = leftMask
	h.rightMask[0] = rightMask

	for l := 1; l < n; l++ {
		prev := h.levels[l-1]
		cur := &hierLevel{
			dsc:        base,
			featureLen: fl,
			widthLeft:  field.HalfSize(prev.widthLeft),
			widthRight: field.HalfSize(prev.widthRight),
			height:     field.HalfSize(prev.height),
		}
		cur.leftData = make([]float64, fl*cur.widthLeft*cur.height)
		cur.rightData = make([]float64, fl*cur.widthRight*cur.height)
		lm, rm := h.leftMask[l-1], h.rightMask[l-1]
		parallelRows(cur.height, h.Workers, func(start, end int) {
			from := make([][]float64, 4)
			for y := start; y < end; y++ {
				for x := 0; x < cur.widthLeft; x++ {
					gatherChildren(from, x, y, prev.widthLeft, prev.height, lm, prev.left)
					base.JoinN(from, cur.left(x, y))
				}
				for x := 0; x < cur.widthRight; x++ {
					gatherChildren(from, x, y, prev.widthRight, prev.height, rm, prev.right)
					base.JoinN(from, cur.right(x, y))
				}
			}
		})
		h.levels[l] = cur
		h.leftMask[l] = field.Downsample(lm)
		h.rightMask[l] = field.Downsample(rm)
	}
}

// gatherChildren fills from with the features of the four children of coarse
// pixel (x, y), nil for children outside a w×h level or masked out by m.
func gatherChildren(from [][]float64, x, y, w, h int, m *field.Mask, feature func(x, y int) []float64) {
	fx, fy := x*2, y*2
	okX := fx+1 < w
	okY := fy+1 < h
	child := func(cx, cy int, ok bool) []float64 {
		if !ok || !field.Valid(m, cx, cy) {
			return nil
		}
		return feature(cx, cy)
	}
	from[0] = child(fx, fy, true)
	from[1] = child(fx+1, fy, okX)
	from[2] = child(fx, fy+1, okY)
	from[3] = child(fx+1, fy+1, okX && okY)
}

// Levels returns the number of pyramid levels.
func (h *HierarchyDSC) Levels() int { return len(h.levels) }

// Level returns the DSC of level l, 0 being the finest.
func (h *HierarchyDSC) Level(l int) DSC { return h.levels[l] }

// LeftMask returns the left mask of level l, nil if none was given.
func (h *HierarchyDSC) LeftMask(l int) *field.Mask { return h.leftMask[l] }

// RightMask returns the right mask of level l, nil if none was given.
func (h *HierarchyDSC) RightMask(l int) *field.Mask { return h.rightMask[l] }

type hierLevel struct {
	dsc        DSC
	featureLen int
	widthLeft  int
	widthRight int
	height     int
	leftData   []float64
	rightData  []float64
}

func (l *hierLevel) left(x, y int) []float64 {
	i := (y*l.widthLeft + x) * l.featureLen
	return l.leftData[i : i+l.featureLen : i+l.featureLen]
}

func (l *hierLevel) right(x, y int) []float64 {
	i := (y*l.widthRight + x) * l.featureLen
	return l.rightData[i : i+l.featureLen : i+l.featureLen]
}

func (l *hierLevel) FeatureLen() int  { return l.featureLen }
func (l *hierLevel) WidthLeft() int   { return l.widthLeft }
func (l *hierLevel) HeightLeft() int  { return l.height }
func (l *hierLevel) WidthRight() int  { return l.widthRight }
func (l *hierLevel) HeightRight() int { return l.height }

func (l *hierLevel) Left(x, y int, out []float64)  { copy(out, l.left(x, y)) }
func (l *hierLevel) Right(x, y int, out []float64) { copy(out, l.right(x, y)) }

func (l *hierLevel) Cost(left, right []float64) float64 { return l.dsc.Cost(left, right) }

func (l *hierLevel) Join(a, b, out []float64)            { l.dsc.Join(a, b, out) }
func (l *hierLevel) JoinN(in [][]float64, out []float64) { l.dsc.JoinN(in, out) }

func (l *hierLevel) PixelCost(leftX, rightX, y int) float64 {
	return l.dsc.Cost(l.left(leftX, y), l.right(rightX, y))
}

// Clone shares the cached features, which are never written after Set.
func (l *hierLevel) Clone() DSC {
	c := *l
	return &c
}
