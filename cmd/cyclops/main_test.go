package main

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/TrevorS/cyclops/field"
)

func TestDecodeConfig_OverDefaults(t *testing.T) {
	cfg := defaultStereoConfig()
	raw := map[string]any{
		"iters":        "3",
		"luv_mult":     0.5,
		"search_range": 2,
		"workers":      3,
		"bound":        "true",
	}
	if err := decodeConfig(raw, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Iters != 3 || cfg.LuvMult != 0.5 || cfg.SearchRange != 2 || cfg.Workers != 3 || !cfg.Bound {
		t.Errorf("decoded %+v", cfg)
	}
	if def := defaultStereoConfig(); cfg.OccCostBase != def.OccCostBase || cfg.LuvCap != def.LuvCap {
		t.Errorf("keys absent from the file changed: %+v", cfg)
	}
}

func TestDecodeConfig_UnknownKey(t *testing.T) {
	cfg := defaultSegmentConfig()
	if err := decodeConfig(map[string]any{"colors": 3}, &cfg); err == nil {
		t.Error("expected an error for an unknown key")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.json")
	if err := os.WriteFile(path, []byte(`{"diff_cost": 0.25, "colours": 3, "iters": 4}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := defaultSegmentConfig()
	if err := loadConfig(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.DiffCost != 0.25 || cfg.Colours != 3 || cfg.Iters != 4 {
		t.Errorf("loaded %+v", cfg)
	}
	if err := loadConfig(filepath.Join(t.TempDir(), "missing.json"), &cfg); err == nil {
		t.Error("expected an error for a missing file")
	}
	if err := loadConfig("", &cfg); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestFillInvalid(t *testing.T) {
	disp := field.New[float64](4, 3)
	valid := field.New[bool](4, 3)
	disp.Set(0, 0, 1)
	valid.Set(0, 0, true)
	disp.Set(3, 2, 5)
	valid.Set(3, 2, true)

	if n := fillInvalid(disp, valid); n != 10 {
		t.Errorf("filled %d pixels, want 10", n)
	}
	tests := []struct {
		x, y int
		want float64
	}{
		{1, 0, 1}, {1, 1, 1}, {2, 1, 5}, {2, 2, 5}, {0, 0, 1}, {3, 2, 5},
	}
	for _, tt := range tests {
		if got := disp.Get(tt.x, tt.y); got != tt.want {
			t.Errorf("(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
	if valid.Get(1, 0) {
		t.Error("fillInvalid changed the valid mask")
	}
}

func TestFillInvalid_NothingValid(t *testing.T) {
	disp := field.New[float64](3, 3)
	if n := fillInvalid(disp, field.New[bool](3, 3)); n != 0 {
		t.Errorf("filled %d pixels with no valid source", n)
	}
}

func blocks(w, h int, cols ...color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, cols[x*len(cols)/w])
		}
	}
	return img
}

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

func TestChoosePalette_StopsAtDistinctColours(t *testing.T) {
	luv := field.LuvFromImage(blocks(6, 1, red, green, blue))
	tree, palette := choosePalette(luv, 5, 100)
	if len(palette) != 3 || tree.Size() != 3 {
		t.Fatalf("palette size %d (tree %d), want 3", len(palette), tree.Size())
	}
	for i, e := range palette {
		if e.model != uint32(i) {
			t.Errorf("entry %d has model %d", i, e.model)
		}
		for _, o := range palette[:i] {
			if o.luv == e.luv {
				t.Errorf("colour %v chosen twice", e.luv)
			}
		}
	}
}

func TestSegment_TwoHalves(t *testing.T) {
	cfg := defaultSegmentConfig()
	cfg.Colours = 2
	res, err := segment(blocks(8, 6, red, blue), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.regions != 2 {
		t.Errorf("regions = %d, want 2", res.regions)
	}
	left, right := res.seg.Model(0, 0), res.seg.Model(7, 5)
	if left == right {
		t.Fatalf("both halves got model %d", left)
	}
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			want := left
			if x >= 4 {
				want = right
			}
			if got := res.seg.Model(x, y); got != want {
				t.Errorf("(%d,%d) model %d, want %d", x, y, got, want)
			}
		}
	}
	img := res.image()
	if r, _, b, _ := img.At(0, 0).RGBA(); r < b {
		t.Errorf("left half painted %v, want red", img.At(0, 0))
	}
}

func TestSegment_BadConfig(t *testing.T) {
	cfg := defaultSegmentConfig()
	cfg.Colours = 0
	if _, err := segment(blocks(2, 2, red), cfg); err == nil {
		t.Error("expected an error for zero colours")
	}
}

// stripes is a grey pattern without repeats over short spans; the right
// image is the left shifted by shift.
func stripes(w, h, shift int) (left, right *image.RGBA) {
	grey := func(x, y int) color.RGBA {
		v := uint8((((7*x+13*y)%11 + 11) % 11) * 20)
		return color.RGBA{v, v, v, 255}
	}
	left = image.NewRGBA(image.Rect(0, 0, w, h))
	right = image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			left.SetRGBA(x, y, grey(x, y))
			right.SetRGBA(x, y, grey(x-shift, y))
		}
	}
	return left, right
}

func TestRunStereo_WritesDisparityImage(t *testing.T) {
	dir := t.TempDir()
	l, r := stripes(12, 6, 2)
	lp, rp := filepath.Join(dir, "l.png"), filepath.Join(dir, "r.png")
	if err := savePNG(lp, l); err != nil {
		t.Fatal(err)
	}
	if err := savePNG(rp, r); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "cfg.json")
	if err := os.WriteFile(cfgPath, []byte(`{"workers": 1, "iters": 2}`), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, extra := range [][]string{{"-max-disp", "3"}, {"-hebp", "-fill"}} {
		out := filepath.Join(dir, "disp.png")
		args := append([]string{"-left", lp, "-right", rp, "-config", cfgPath, "-out", out}, extra...)
		if err := runStereo(args); err != nil {
			t.Fatalf("%v: %v", extra, err)
		}
		img, err := loadImage(out)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 6 {
			t.Errorf("%v: output %v, want 12x6", extra, b)
		}
	}
}

func TestMatchStereo_RangeCoversEveryPixel(t *testing.T) {
	l, r := stripes(10, 4, 1)
	opts := stereoOptions{cfg: defaultStereoConfig(), maxDisp: 2}
	opts.cfg.Workers = 1
	m, err := matchStereo(l, r, opts)
	if err != nil {
		t.Fatal(err)
	}
	for i, ok := range m.valid.Data() {
		if !ok {
			t.Fatalf("pixel %d has no match", i)
		}
		if d := m.disp.Data()[i]; d < 0 || d > 2 {
			t.Fatalf("pixel %d disparity %v outside 0..2", i, d)
		}
	}
}

func TestMatchStereo_HeightMismatch(t *testing.T) {
	l, _ := stripes(6, 4, 0)
	_, r := stripes(6, 3, 0)
	if _, err := matchStereo(l, r, stereoOptions{cfg: defaultStereoConfig()}); err == nil {
		t.Error("expected an error for images of different heights")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if err := run("calibrate", nil); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
