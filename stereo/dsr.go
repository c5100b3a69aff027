package stereo

import (
	"math"
	"slices"
)

// DSR is a disparity-space range: for every left pixel a list of inclusive
// disparity ranges to search. Ranges are ascending and disjoint, and a
// pixel with no ranges is excluded from matching.
type DSR interface {
	Width() int
	Height() int

	// Ranges returns the number of ranges at (x, y).
	Ranges(x, y int) int
	// Start returns the first disparity of range i.
	Start(x, y, i int) int
	// End returns the last disparity of range i, inclusive.
	End(x, y, i int) int
}

// Range is an inclusive disparity interval.
type Range struct {
	Start, End int
}

// Len returns the number of disparities in r.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Matches returns the total number of disparities represented by d.
func Matches(d DSR) int {
	ret := 0
	for y := 0; y < d.Height(); y++ {
		for x := 0; x < d.Width(); x++ {
			for i := 0; i < d.Ranges(x, y); i++ {
				ret += 1 + d.End(x, y, i) - d.Start(x, y, i)
			}
		}
	}
	return ret
}

// RangeDSR offers the same single range at every pixel.
type RangeDSR struct {
	width, height int
	start, end    int
}

// NewRangeDSR returns a width×height DSR searching [start, end] everywhere.
func NewRangeDSR(width, height, start, end int) *RangeDSR {
	return &RangeDSR{width: width, height: height, start: start, end: end}
}

// Set changes the range.
func (r *RangeDSR) Set(start, end int) {
	r.start = start
	r.end = end
}

func (r *RangeDSR) Width() int            { return r.width }
func (r *RangeDSR) Height() int           { return r.height }
func (r *RangeDSR) Ranges(_, _ int) int   { return 1 }
func (r *RangeDSR) Start(_, _, _ int) int { return r.start }
func (r *RangeDSR) End(_, _, _ int) int   { return r.end }

// BasicDSR stores an explicit range list per pixel.
type BasicDSR struct {
	width, height int
	data          [][]Range
}

// NewBasicDSR returns a width×height DSR with no ranges anywhere.
func NewBasicDSR(width, height int) *BasicDSR {
	return &BasicDSR{width: width, height: height, data: make([][]Range, width*height)}
}

// NewBasicDSRFrom copies any DSR.
func NewBasicDSRFrom(d DSR) *BasicDSR {
	b := NewBasicDSR(d.Width(), d.Height())
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			n := d.Ranges(x, y)
			if n == 0 {
				continue
			}
			rs := make([]Range, n)
			for i := range rs {
				rs[i] = Range{d.Start(x, y, i), d.End(x, y, i)}
			}
			b.data[y*b.width+x] = rs
		}
	}
	return b
}

// NewBasicDSRFromDSI covers every candidate of a DSI, widened by its
// DispWidth and rounded outwards to whole disparities.
func NewBasicDSRFromDSI(d DSI) *BasicDSR {
	b := NewBasicDSR(d.Width(), d.Height())
	var disp []int
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			disp = disp[:0]
			for i := 0; i < d.Size(x, y); i++ {
				v, w := d.Disp(x, y, i), d.DispWidth(x, y, i)
				start := int(math.Floor(v - w + 0.5))
				end := int(math.Ceil(v + w - 0.5))
				for k := start; k <= end; k++ {
					disp = append(disp, k)
				}
			}
			if len(disp) == 0 {
				continue
			}
			slices.Sort(disp)
			rs := []Range{{disp[0], disp[0]}}
			for _, k := range disp[1:] {
				last := &rs[len(rs)-1]
				if last.End+1 < k {
					rs = append(rs, Range{k, k})
				} else {
					last.End = k
				}
			}
			b.data[y*b.width+x] = rs
		}
	}
	return b
}

// Add inserts [start, end] at (x, y), merging it with any range it overlaps
// or touches.
func (b *BasicDSR) Add(x, y, start, end int) {
	rs := b.data[y*b.width+x]
	r := Range{start, end}
	out := make([]Range, 0, len(rs)+1)
	i := 0
	for i < len(rs) && rs[i].End+1 < r.Start {
		out = append(out, rs[i])
		i++
	}
	for i < len(rs) && rs[i].Start <= r.End+1 {
		r.Start = min(r.Start, rs[i].Start)
		r.End = max(r.End, rs[i].End)
		i++
	}
	out = append(out, r)
	out = append(out, rs[i:]...)
	b.data[y*b.width+x] = out
}

// Grow widens every range by r on both sides, merging ranges that meet.
func (b *BasicDSR) Grow(r int) {
	for p, rs := range b.data {
		if len(rs) == 0 {
			continue
		}
		last := 0
		rs[0].Start -= r
		rs[0].End += r
		for i := 1; i < len(rs); i++ {
			cur := Range{rs[i].Start - r, rs[i].End + r}
			if cur.Start > rs[last].End+1 {
				last++
				rs[last] = cur
			} else {
				rs[last].End = max(rs[last].End, cur.End)
			}
		}
		b.data[p] = rs[:last+1]
	}
}

func (b *BasicDSR) Width() int            { return b.width }
func (b *BasicDSR) Height() int           { return b.height }
func (b *BasicDSR) Ranges(x, y int) int   { return len(b.data[y*b.width+x]) }
func (b *BasicDSR) Start(x, y, i int) int { return b.data[y*b.width+x][i].Start }
func (b *BasicDSR) End(x, y, i int) int   { return b.data[y*b.width+x][i].End }

// unionRanges appends to out the union of two ascending range lists, merging
// ranges that overlap or touch.
func unionRanges(a, b, out []Range) []Range {
	start := len(out)
	push := func(r Range) {
		if len(out) > start && r.Start <= out[len(out)-1].End+1 {
			last := &out[len(out)-1]
			last.End = max(last.End, r.End)
			return
		}
		out = append(out, r)
	}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if j == len(b) || (i < len(a) && a[i].Start <= b[j].Start) {
			push(a[i])
			i++
		} else {
			push(b[j])
			j++
		}
	}
	return out
}
