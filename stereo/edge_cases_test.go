package stereo

import (
	"testing"

	"github.com/TrevorS/cyclops/field"
)

func TestEdgeCase_SinglePixel(t *testing.T) {
	l, r := field.New[float64](1, 1), field.New[float64](1, 1)
	l.Set(0, 0, 3)
	r.Set(0, 0, 3)
	e := runEBP(t, DefaultConfig(), NewDifferenceDSC(l, r, 1), NewRangeDSR(1, 1, 0, 0))
	if e.Size(0, 0) != 1 || e.Disp(0, 0, 0) != 0 || e.Cost(0, 0, 0) != 0 {
		t.Errorf("single pixel = %d candidates, disp %v, cost %v", e.Size(0, 0), e.Disp(0, 0, 0), e.Cost(0, 0, 0))
	}
}

func TestEdgeCase_EmptyDSR(t *testing.T) {
	l, r := randomGray(5, 4, 1), randomGray(5, 4, 2)
	e := runEBP(t, DefaultConfig(), NewDifferenceDSC(l, r, 1), NewBasicDSR(5, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			if e.Size(x, y) != 0 {
				t.Fatalf("(%d,%d) has candidates with nothing to search", x, y)
			}
		}
	}
}

func TestEdgeCase_IsolatedPixel(t *testing.T) {
	// One searchable pixel surrounded by masked ones gets no messages.
	l, r := randomGray(3, 3, 1), randomGray(3, 3, 2)
	dsr := NewBasicDSR(3, 3)
	dsr.Add(1, 1, -1, 1)
	e := runEBP(t, flatConfig(), NewDifferenceDSC(l, r, 1), dsr)

	best, bestCost := 0, -1.0
	for d := -1; d <= 1; d++ {
		c := NewDifferenceDSC(l, r, 1).PixelCost(1, 1+d, 1)
		if bestCost < 0 || c < bestCost {
			best, bestCost = d, c
		}
	}
	if e.Size(1, 1) != 1 || e.Disp(1, 1, 0) != float64(best) {
		t.Errorf("isolated pixel chose %v, want %d", e.Disp(1, 1, 0), best)
	}
	if e.Cost(1, 1, 0) != bestCost {
		t.Errorf("isolated pixel cost %v, want bare matching cost %v", e.Cost(1, 1, 0), bestCost)
	}
}

func TestEdgeCase_MatchesOffTheRightImage(t *testing.T) {
	// Every disparity falls off the right image; the boundary penalty
	// grows with distance, so the closest one wins.
	l, r := field.New[float64](2, 1), field.New[float64](2, 1)
	e := runEBP(t, flatConfig(), NewDifferenceDSC(l, r, 1), NewRangeDSR(2, 1, 5, 8))
	for x := 0; x < 2; x++ {
		if got := e.Disp(x, 0, 0); got != 5 {
			t.Errorf("x=%d: disparity %v, want 5", x, got)
		}
	}
}

func TestEdgeCase_SingleRowAndColumn(t *testing.T) {
	for _, dims := range [][2]int{{9, 1}, {1, 9}} {
		w, h := dims[0], dims[1]
		l, r := randomGray(w, h, 5), randomGray(w, h, 6)
		hb := NewHEBP(DefaultHEBPConfig())
		hb.SetDSC(NewDifferenceDSC(l, r, 1))
		if err := hb.Run(nil); err != nil {
			t.Fatalf("%dx%d: Run: %v", w, h, err)
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if hb.Size(x, y) != 1 {
					t.Fatalf("%dx%d (%d,%d): Size = %d", w, h, x, y, hb.Size(x, y))
				}
			}
		}
	}
}

func TestEdgeCase_FullyMaskedLeft(t *testing.T) {
	l, r := randomGray(4, 4, 1), randomGray(4, 4, 2)
	h := NewHEBP(DefaultHEBPConfig())
	h.SetDSC(NewDifferenceDSC(l, r, 1))
	h.SetMasks(field.New[bool](4, 4), nil)
	if err := h.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if h.Size(x, y) != 0 {
				t.Fatalf("(%d,%d) matched under a full mask", x, y)
			}
		}
	}
}

func TestEdgeCase_SpreadEmpty(t *testing.T) {
	s := NewSpreadDSR(NewBasicDSR(3, 2), 2, nil)
	if Matches(s) != 0 {
		t.Errorf("spreading nothing produced %d matches", Matches(s))
	}
}

func TestEdgeCase_HierarchySinglePixel(t *testing.T) {
	h := &HierarchyDSC{}
	h.Set(NewDifferenceDSC(field.New[float64](1, 1), field.New[float64](1, 1), 1), nil, nil)
	if h.Levels() != 1 {
		t.Errorf("Levels() = %d, want 1", h.Levels())
	}
}
