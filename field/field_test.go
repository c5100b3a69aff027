package field

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestField_GetSet(t *testing.T) {
	f := New[int](3, 2)
	f.Set(2, 1, 7)
	if got := f.Get(2, 1); got != 7 {
		t.Errorf("Get(2,1) = %d, want 7", got)
	}
	if f.Size(0) != 3 || f.Size(1) != 2 {
		t.Errorf("Size = (%d,%d), want (3,2)", f.Size(0), f.Size(1))
	}
	if f.Data()[5] != 7 {
		t.Errorf("row-major layout broken: data = %v", f.Data())
	}
	*f.At(0, 0) = 4
	if f.Get(0, 0) != 4 {
		t.Error("At did not alias storage")
	}
}

func TestField_WrapSharesStorage(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	f := Wrap(data, 2, 2)
	f.Set(1, 1, 9)
	if data[3] != 9 {
		t.Errorf("Wrap copied storage, data = %v", data)
	}
}

func TestField_WrapTooShortPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Wrap([]int{1, 2, 3}, 2, 2)
}

func TestValid_NilMask(t *testing.T) {
	if !Valid(nil, 5, 5) {
		t.Error("nil mask should allow every cell")
	}
	m := New[bool](2, 1)
	m.Set(1, 0, true)
	if Valid(m, 0, 0) || !Valid(m, 1, 0) {
		t.Error("mask lookup wrong")
	}
}

func TestHalfSize(t *testing.T) {
	tests := []struct{ in, want int }{
		{1, 1}, {2, 1}, {3, 2}, {8, 4}, {9, 5},
	}
	for _, tc := range tests {
		if got := HalfSize(tc.in); got != tc.want {
			t.Errorf("HalfSize(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDownsample_OrReduction(t *testing.T) {
	m := New[bool](3, 3)
	m.Set(2, 2, true)
	m.Set(1, 0, true)
	d := Downsample(m)
	if d.Width() != 2 || d.Height() != 2 {
		t.Fatalf("size = %dx%d, want 2x2", d.Width(), d.Height())
	}
	want := [][]bool{{true, false}, {false, true}}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if d.Get(x, y) != want[y][x] {
				t.Errorf("(%d,%d) = %v, want %v", x, y, d.Get(x, y), want[y][x])
			}
		}
	}
	if Downsample(nil) != nil {
		t.Error("nil mask should stay nil")
	}
}

func TestLuvFromColor_Extremes(t *testing.T) {
	white := LuvFromColor(color.White)
	if math.Abs(white.L-100) > 0.5 {
		t.Errorf("white L = %v, want ~100", white.L)
	}
	black := LuvFromColor(color.Black)
	if black.L > 0.5 {
		t.Errorf("black L = %v, want ~0", black.L)
	}
	if d := white.Diff(black); d < 99 {
		t.Errorf("white/black distance = %v, want >= 99", d)
	}
}

func TestGrayFromImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(1, 0, color.Gray{Y: 255})
	f := GrayFromImage(img)
	if f.Get(0, 0) != 0 || math.Abs(f.Get(1, 0)-1) > 1e-9 {
		t.Errorf("gray = [%v %v], want [0 1]", f.Get(0, 0), f.Get(1, 0))
	}
	back := GrayImage(f, 0, 1)
	if back.GrayAt(1, 0).Y != 255 || back.GrayAt(0, 0).Y != 0 {
		t.Error("GrayImage round trip failed")
	}
}
