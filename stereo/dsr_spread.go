package stereo

import "github.com/TrevorS/cyclops/field"

// SpreadDSR dilates another DSR with a separable (2r+1)×(2r+1) top-hat: every
// pixel searches the union of the ranges of its window. This keeps the
// windows handed down a pyramid from collapsing around point estimates.
type SpreadDSR struct {
	width int
	data  *scanlines[Range]
}

// NewSpreadDSR spreads src by radius. Pixels masked out by leftMask, which
// may be nil, end up with no ranges; masking is applied after spreading, so
// masked pixels still contribute to their neighbours.
func NewSpreadDSR(src DSR, radius int, leftMask *field.Mask) *SpreadDSR {
	w, h := src.Width(), src.Height()

	orig := make([][]Range, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := src.Ranges(x, y)
			rs := make([]Range, n)
			for i := range rs {
				rs[i] = Range{src.Start(x, y, i), src.End(x, y, i)}
			}
			orig[y*w+x] = rs
		}
	}

	// Horizontal pass.
	inter := make([][]Range, w*h)
	var tmp []Range
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			in := orig[y*w+x]
			if len(in) == 0 {
				continue
			}
			for x2 := max(0, x-radius); x2 <= min(w-1, x+radius); x2++ {
				p := y*w + x2
				tmp = unionRanges(inter[p], in, tmp[:0])
				inter[p] = append(inter[p][:0], tmp...)
			}
		}
	}

	// Vertical pass, into orig since every pixel's own ranges survive anyway.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			in := inter[y*w+x]
			if len(in) == 0 {
				continue
			}
			for y2 := max(0, y-radius); y2 <= min(h-1, y+radius); y2++ {
				p := y2*w + x
				tmp = unionRanges(orig[p], in, tmp[:0])
				orig[p] = append(orig[p][:0], tmp...)
			}
		}
	}

	s := &SpreadDSR{width: w, data: newScanlines[Range](w, h)}
	for y := 0; y < h; y++ {
		s.data.buildRow(y, func(x int, data []Range) []Range {
			if !field.Valid(leftMask, x, y) {
				return data
			}
			return append(data, orig[y*w+x]...)
		})
	}
	return s
}

func (s *SpreadDSR) Width() int            { return s.width }
func (s *SpreadDSR) Height() int           { return s.data.height() }
func (s *SpreadDSR) Ranges(x, y int) int   { return s.data.size(x, y) }
func (s *SpreadDSR) Start(x, y, i int) int { return s.data.at(x, y, i).Start }
func (s *SpreadDSR) End(x, y, i int) int   { return s.data.at(x, y, i).End }
