package progress

import (
	"math"
	"testing"
)

const floatTol = 1e-12

func TestProgress_NilSafe(t *testing.T) {
	var p *Progress
	p.Push()
	p.Report(1, 2)
	p.Next()
	p.Pop()
	if p.Prog() != 0 || p.Depth() != 0 {
		t.Error("nil progress should report nothing")
	}
	if x, y := p.Part(0); x != 0 || y != 1 {
		t.Errorf("Part on nil = (%d,%d), want (0,1)", x, y)
	}
	if d, r := p.Time(); d != 0 || r != 0 {
		t.Error("nil progress should report zero time")
	}
}

func TestProgress_NestedFraction(t *testing.T) {
	p := New(nil)
	p.Report(1, 4)
	p.Push()
	p.Report(1, 2)
	// One quarter done plus half of the second quarter.
	if got := p.Prog(); math.Abs(got-0.375) > floatTol {
		t.Errorf("Prog() = %v, want 0.375", got)
	}
	if p.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", p.Depth())
	}
	p.Pop()
	if got := p.Prog(); math.Abs(got-0.25) > floatTol {
		t.Errorf("after Pop Prog() = %v, want 0.25", got)
	}
}

func TestProgress_NextAndPart(t *testing.T) {
	p := New(nil)
	p.Report(0, 3)
	p.Next()
	p.Next()
	if x, y := p.Part(0); x != 2 || y != 3 {
		t.Errorf("Part(0) = (%d,%d), want (2,3)", x, y)
	}
	p.Next()
	p.Next()
	if x, _ := p.Part(0); x != 3 {
		t.Errorf("Next should saturate at total, got %d", x)
	}
}

func TestProgress_PopRootIgnored(t *testing.T) {
	p := New(nil)
	p.Pop()
	p.Pop()
	if p.Depth() != 1 {
		t.Errorf("Depth() = %d, want 1", p.Depth())
	}
}

func TestProgress_OnChange(t *testing.T) {
	calls := 0
	p := New(func(*Progress) { calls++ })
	p.Push()
	p.Report(0, 10)
	p.Pop()
	if calls != 3 {
		t.Errorf("onChange called %d times, want 3", calls)
	}
}

func TestProgress_ZeroTotalClamped(t *testing.T) {
	p := New(nil)
	p.Report(0, 0)
	if x, y := p.Part(0); x != 0 || y != 1 {
		t.Errorf("Part(0) = (%d,%d), want (0,1)", x, y)
	}
}
