package stereo

import (
	"math"

	"github.com/TrevorS/cyclops/field"
)

// HierarchyDSR derives the search ranges of a pyramid level from the result
// of the next coarser level. Pixel (x, y) inherits the candidates of its
// parent (x/2, y/2), rescaled to this level, widened by the candidate's
// DispWidth plus searchRange, and merged where they meet.
//
// Ranges are computed on demand and the last pixel is cached, so a
// HierarchyDSR must not be shared between goroutines.
type HierarchyDSR struct {
	width, height int
	parent        DSI
	searchRange   int
	leftMask      *field.Mask

	cacheX, cacheY int
	cache          []Range
}

// NewHierarchyDSR returns a width×height DSR over the coarser result parent.
// Pixels masked out by leftMask, which may be nil, get no ranges.
func NewHierarchyDSR(width, height int, parent DSI, searchRange int, leftMask *field.Mask) *HierarchyDSR {
	return &HierarchyDSR{
		width:       width,
		height:      height,
		parent:      parent,
		searchRange: searchRange,
		leftMask:    leftMask,
		cacheX:      -1,
		cacheY:      -1,
	}
}

func (h *HierarchyDSR) Width() int  { return h.width }
func (h *HierarchyDSR) Height() int { return h.height }

func (h *HierarchyDSR) Ranges(x, y int) int {
	h.calc(x, y)
	return len(h.cache)
}

func (h *HierarchyDSR) Start(x, y, i int) int {
	h.calc(x, y)
	return h.cache[i].Start
}

func (h *HierarchyDSR) End(x, y, i int) int {
	h.calc(x, y)
	return h.cache[i].End
}

func (h *HierarchyDSR) calc(x, y int) {
	if x == h.cacheX && y == h.cacheY {
		return
	}
	h.cacheX, h.cacheY = x, y
	h.cache = h.cache[:0]

	px, py := x/2, y/2
	n := h.parent.Size(px, py)
	if n == 0 || !field.Valid(h.leftMask, x, y) {
		return
	}
	r := float64(h.searchRange)
	for i := 0; i < n; i++ {
		d := (float64(px)+h.parent.Disp(px, py, i))*2 - float64(x)
		w := h.parent.DispWidth(px, py, i)
		cur := Range{
			Start: int(math.Floor(d - w + 0.5 - r)),
			End:   int(math.Ceil(d + w - 0.5 + r)),
		}
		if k := len(h.cache) - 1; k >= 0 && cur.Start <= h.cache[k].End+1 {
			h.cache[k].Start = min(h.cache[k].Start, cur.Start)
			h.cache[k].End = max(h.cache[k].End, cur.End)
			continue
		}
		h.cache = append(h.cache, cur)
	}
}
