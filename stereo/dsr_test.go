package stereo

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/TrevorS/cyclops/field"
)

func ranges(d DSR, x, y int) []Range {
	var out []Range
	for i := 0; i < d.Ranges(x, y); i++ {
		out = append(out, Range{d.Start(x, y, i), d.End(x, y, i)})
	}
	return out
}

func TestBasicDSR_Add(t *testing.T) {
	tests := []struct {
		name string
		add  []Range
		want []Range
	}{
		{"single", []Range{{2, 4}}, []Range{{2, 4}}},
		{"disjoint sorted", []Range{{5, 6}, {0, 1}, {9, 9}}, []Range{{0, 1}, {5, 6}, {9, 9}}},
		{"adjacent merges", []Range{{0, 2}, {3, 5}}, []Range{{0, 5}}},
		{"overlap merges", []Range{{0, 4}, {2, 8}}, []Range{{0, 8}}},
		{"gap of one stays", []Range{{0, 2}, {4, 5}}, []Range{{0, 2}, {4, 5}}},
		{"bridge joins three", []Range{{0, 1}, {5, 6}, {9, 10}, {2, 8}}, []Range{{0, 10}}},
		{"negative", []Range{{-3, -1}, {0, 0}}, []Range{{-3, 0}}},
		{"contained", []Range{{0, 10}, {3, 4}}, []Range{{0, 10}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewBasicDSR(2, 2)
			for _, r := range tt.add {
				d.Add(1, 1, r.Start, r.End)
			}
			if got := ranges(d, 1, 1); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ranges = %v, want %v", got, tt.want)
			}
			if d.Ranges(0, 0) != 0 {
				t.Error("other pixels should stay empty")
			}
		})
	}
}

func TestBasicDSR_Grow(t *testing.T) {
	d := NewBasicDSR(1, 1)
	d.Add(0, 0, 0, 0)
	d.Add(0, 0, 3, 5)
	d.Add(0, 0, 10, 10)
	d.Grow(1)
	want := []Range{{-1, 6}, {9, 11}}
	if got := ranges(d, 0, 0); !reflect.DeepEqual(got, want) {
		t.Errorf("after Grow(1) = %v, want %v", got, want)
	}
}

func TestMatches(t *testing.T) {
	if got := Matches(NewRangeDSR(3, 2, -1, 2)); got != 24 {
		t.Errorf("RangeDSR matches = %d, want 24", got)
	}
	d := NewBasicDSR(2, 1)
	d.Add(0, 0, 0, 3)
	d.Add(0, 0, 7, 7)
	if got := Matches(d); got != 5 {
		t.Errorf("BasicDSR matches = %d, want 5", got)
	}
}

func TestBasicDSR_FromDSR(t *testing.T) {
	src := NewRangeDSR(2, 2, 3, 6)
	d := NewBasicDSRFrom(src)
	d.Add(0, 0, 9, 9)
	if got := ranges(d, 0, 0); !reflect.DeepEqual(got, []Range{{3, 6}, {9, 9}}) {
		t.Errorf("ranges = %v", got)
	}
	if got := ranges(d, 1, 1); !reflect.DeepEqual(got, []Range{{3, 6}}) {
		t.Errorf("copied ranges = %v", got)
	}
}

// listDSI is a DSI backed by explicit per-pixel lists.
type listDSI struct {
	w, h  int
	disp  [][]float64
	width float64
}

func (l *listDSI) Width() int                    { return l.w }
func (l *listDSI) Height() int                   { return l.h }
func (l *listDSI) Size(x, y int) int             { return len(l.disp[y*l.w+x]) }
func (l *listDSI) Disp(x, y, i int) float64      { return l.disp[y*l.w+x][i] }
func (l *listDSI) Cost(_, _, _ int) float64      { return 0 }
func (l *listDSI) DispWidth(_, _, _ int) float64 { return l.width }

func TestBasicDSR_FromDSI(t *testing.T) {
	src := &listDSI{w: 3, h: 1, width: 0.5, disp: [][]float64{
		{2, 3, 7},
		{},
		{-1},
	}}
	d := NewBasicDSRFromDSI(src)
	if got := ranges(d, 0, 0); !reflect.DeepEqual(got, []Range{{2, 3}, {7, 7}}) {
		t.Errorf("(0,0) = %v", got)
	}
	if d.Ranges(1, 0) != 0 {
		t.Error("empty pixel got ranges")
	}
	if got := ranges(d, 2, 0); !reflect.DeepEqual(got, []Range{{-1, -1}}) {
		t.Errorf("(2,0) = %v", got)
	}

	wide := &listDSI{w: 1, h: 1, width: 1.5, disp: [][]float64{{4}}}
	if got := ranges(NewBasicDSRFromDSI(wide), 0, 0); !reflect.DeepEqual(got, []Range{{3, 5}}) {
		t.Errorf("wide = %v, want [{3 5}]", got)
	}
}

func TestHierarchyDSR_FollowsParent(t *testing.T) {
	parent := &listDSI{w: 2, h: 1, width: 0.5, disp: [][]float64{
		{1, 5},
		{},
	}}
	h := NewHierarchyDSR(4, 2, parent, 1, nil)

	// x = 0: parent 0 → (0+1)·2-0 = 2 and (0+5)·2-0 = 10, widened by 1.
	if got := ranges(h, 0, 0); !reflect.DeepEqual(got, []Range{{1, 3}, {9, 11}}) {
		t.Errorf("(0,0) = %v", got)
	}
	// x = 1 sits one pixel further right, so the disparity drops by one.
	if got := ranges(h, 1, 1); !reflect.DeepEqual(got, []Range{{0, 2}, {8, 10}}) {
		t.Errorf("(1,1) = %v", got)
	}
	if h.Ranges(2, 0) != 0 || h.Ranges(3, 1) != 0 {
		t.Error("children of an empty parent should be empty")
	}
	// Cached pixel answers repeat.
	if h.Start(0, 0, 1) != 9 || h.End(0, 0, 1) != 11 {
		t.Error("repeated query changed answer")
	}
}

func TestHierarchyDSR_MergesCloseCandidates(t *testing.T) {
	parent := &listDSI{w: 1, h: 1, width: 0.5, disp: [][]float64{{1, 1.5}}}
	h := NewHierarchyDSR(2, 2, parent, 0, nil)
	// 2 and 3 are adjacent and collapse into one range.
	if got := ranges(h, 0, 0); !reflect.DeepEqual(got, []Range{{2, 3}}) {
		t.Errorf("(0,0) = %v, want [{2 3}]", got)
	}
	// Half a pixel further apart they stay separate.
	parent.disp[0] = []float64{1, 2}
	h = NewHierarchyDSR(2, 2, parent, 0, nil)
	if got := ranges(h, 0, 0); !reflect.DeepEqual(got, []Range{{2, 2}, {4, 4}}) {
		t.Errorf("(0,0) = %v, want [{2 2} {4 4}]", got)
	}
}

func TestHierarchyDSR_LeftMask(t *testing.T) {
	parent := &listDSI{w: 1, h: 1, width: 0.5, disp: [][]float64{{0}}}
	m := field.New[bool](2, 2)
	m.Fill(true)
	m.Set(1, 0, false)
	h := NewHierarchyDSR(2, 2, parent, 1, m)
	if h.Ranges(1, 0) != 0 {
		t.Error("masked pixel has ranges")
	}
	if h.Ranges(0, 0) != 1 {
		t.Error("unmasked pixel lost its range")
	}
}

// bruteSpread returns the disparity set of every pixel after spreading.
func bruteSpread(src DSR, r int, mask *field.Mask) []map[int]bool {
	w, h := src.Width(), src.Height()
	out := make([]map[int]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			set := map[int]bool{}
			if field.Valid(mask, x, y) {
				for v := max(0, y-r); v <= min(h-1, y+r); v++ {
					for u := max(0, x-r); u <= min(w-1, x+r); u++ {
						for i := 0; i < src.Ranges(u, v); i++ {
							for d := src.Start(u, v, i); d <= src.End(u, v, i); d++ {
								set[d] = true
							}
						}
					}
				}
			}
			out[y*w+x] = set
		}
	}
	return out
}

func TestSpreadDSR_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const w, h = 9, 7
	src := NewBasicDSR(w, h)
	mask := field.New[bool](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask.Set(x, y, rng.Intn(5) != 0)
			for k := rng.Intn(3); k > 0; k-- {
				s := rng.Intn(30) - 10
				src.Add(x, y, s, s+rng.Intn(3))
			}
		}
	}

	for _, radius := range []int{0, 1, 2} {
		for _, m := range []*field.Mask{nil, mask} {
			got := NewSpreadDSR(src, radius, m)
			want := bruteSpread(src, radius, m)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					rs := ranges(got, x, y)
					set := map[int]bool{}
					for i, r := range rs {
						if r.Start > r.End {
							t.Fatalf("r=%d (%d,%d): empty range %v", radius, x, y, r)
						}
						if i > 0 && r.Start <= rs[i-1].End+1 {
							t.Fatalf("r=%d (%d,%d): ranges not disjoint and separated: %v", radius, x, y, rs)
						}
						for d := r.Start; d <= r.End; d++ {
							set[d] = true
						}
					}
					if !reflect.DeepEqual(set, want[y*w+x]) {
						t.Fatalf("r=%d (%d,%d): got %v, want %v", radius, x, y, rs, want[y*w+x])
					}
				}
			}
		}
	}
}
