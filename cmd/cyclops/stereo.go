package main

import (
	"flag"
	"image"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/TrevorS/cyclops/field"
	"github.com/TrevorS/cyclops/kdtree"
	"github.com/TrevorS/cyclops/progress"
	"github.com/TrevorS/cyclops/stereo"
)

type stereoOptions struct {
	cfg     stereoConfig
	hebp    bool
	maxDisp int
	fill    bool
}

func runStereo(args []string) error {
	fs := flag.NewFlagSet("stereo", flag.ContinueOnError)
	leftPath := fs.String("left", "", "left image (required)")
	rightPath := fs.String("right", "", "right image (required)")
	cfgPath := fs.String("config", "", "JSON parameter file")
	useHEBP := fs.Bool("hebp", false, "search every disparity hierarchically instead of 0..max-disp")
	maxDisp := fs.Int("max-disp", 32, "largest disparity searched without -hebp, after any resize")
	outPath := fs.String("out", "disp.png", "output disparity PNG")
	fill := fs.Bool("fill", false, "give unmatched pixels the disparity of the nearest matched pixel")
	maxWidth := fs.Int("max-width", 0, "shrink both images to at most this width first")
	blurRadius := fs.Float64("blur", 0, "Gaussian pre-blur radius in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *leftPath == "" || *rightPath == "" {
		fs.Usage()
		return errors.New("stereo: -left and -right are required")
	}

	opts := stereoOptions{cfg: defaultStereoConfig(), hebp: *useHEBP, maxDisp: *maxDisp, fill: *fill}
	if err := loadConfig(*cfgPath, &opts.cfg); err != nil {
		return err
	}
	left, err := loadImage(*leftPath)
	if err != nil {
		return err
	}
	right, err := loadImage(*rightPath)
	if err != nil {
		return err
	}

	m, err := matchStereo(prepare(left, *maxWidth, *blurRadius), prepare(right, *maxWidth, *blurRadius), opts)
	if err != nil {
		return err
	}
	m.logStats()
	lo, hi := m.span()
	return savePNG(*outPath, field.GrayImage(m.disp, lo, hi))
}

// disparityMap is the best disparity of every pixel. valid marks the
// pixels that had a match before any filling.
type disparityMap struct {
	disp   *field.Field[float64]
	valid  *field.Mask
	filled int
}

func matchStereo(left, right image.Image, opts stereoOptions) (*disparityMap, error) {
	if err := opts.cfg.validate(); err != nil {
		return nil, err
	}
	lf := field.LuvFromImage(left)
	rf := field.LuvFromImage(right)
	if lf.Height() != rf.Height() {
		return nil, errors.Errorf("image heights differ: %d and %d", lf.Height(), rf.Height())
	}

	dsc := buildDSC(lf, rf, &opts.cfg)
	prog := progress.New(progressLogger("stereo"))
	var dsi stereo.DSI
	if opts.hebp {
		h := stereo.NewHEBP(opts.cfg.HEBPConfig)
		h.SetDSC(dsc)
		if err := h.Run(prog); err != nil {
			return nil, errors.Wrap(err, "hierarchical matching")
		}
		dsi = h
	} else {
		if opts.maxDisp < 0 {
			return nil, errors.Errorf("max-disp must be >= 0, got %d", opts.maxDisp)
		}
		e := stereo.NewEBP(opts.cfg.Config)
		e.SetDSC(dsc)
		e.SetDSR(stereo.NewRangeDSR(lf.Width(), lf.Height(), 0, opts.maxDisp))
		if err := e.Run(prog); err != nil {
			return nil, errors.Wrap(err, "matching")
		}
		dsi = e
	}

	m := &disparityMap{
		disp:  field.New[float64](lf.Width(), lf.Height()),
		valid: field.New[bool](lf.Width(), lf.Height()),
	}
	stereo.BestDisparity(dsi, m.disp)
	stereo.ValidMask(dsi, m.valid)
	if opts.fill {
		m.filled = fillInvalid(m.disp, m.valid)
	}
	return m, nil
}

func buildDSC(left, right *field.Field[field.Luv], cfg *stereoConfig) stereo.DSC {
	var d stereo.DSC
	if cfg.Bound {
		d = stereo.NewBoundLuvDSC(left, right, cfg.LuvMult, cfg.LuvCap)
	} else {
		d = stereo.NewLuvDSC(left, right, cfg.LuvMult, cfg.LuvCap)
	}
	if cfg.RegionRadius > 0 {
		d = stereo.NewRegionDSC(d, cfg.RegionRadius, cfg.CornerWeight)
	}
	return d
}

// fillInvalid gives every pixel outside valid the disparity of the nearest
// valid pixel and returns how many pixels it filled. Nothing changes when
// no pixel is valid.
func fillInvalid(disp *field.Field[float64], valid *field.Mask) int {
	n := 0
	for _, v := range valid.Data() {
		if v {
			n++
		}
	}
	if n == 0 || n == len(valid.Data()) {
		return 0
	}

	tree := kdtree.NewInplace[float64](2, n)
	pos := make([]float64, 2)
	i := 0
	for y := 0; y < disp.Height(); y++ {
		for x := 0; x < disp.Width(); x++ {
			if valid.Get(x, y) {
				pos[0], pos[1] = float64(x), float64(y)
				tree.SetPos(i, pos)
				*tree.Item(i) = disp.Get(x, y)
				i++
			}
		}
	}
	tree.Build()

	filled := 0
	for y := 0; y < disp.Height(); y++ {
		for x := 0; x < disp.Width(); x++ {
			if !valid.Get(x, y) {
				pos[0], pos[1] = float64(x), float64(y)
				j, _ := tree.NearestEuc(pos)
				disp.Set(x, y, *tree.Item(j))
				filled++
			}
		}
	}
	return filled
}

func (m *disparityMap) values() []float64 {
	var v []float64
	for i, ok := range m.valid.Data() {
		if ok {
			v = append(v, m.disp.Data()[i])
		}
	}
	return v
}

// span returns the disparity range of the matched pixels, or [0, 1] when
// none matched.
func (m *disparityMap) span() (lo, hi float64) {
	v := m.values()
	if len(v) == 0 {
		return 0, 1
	}
	return floats.Min(v), floats.Max(v)
}

func (m *disparityMap) logStats() {
	v := m.values()
	total := len(m.valid.Data())
	if len(v) == 0 {
		glog.Warningf("stereo: none of %d pixels matched", total)
		return
	}
	mean, std := stat.MeanStdDev(v, nil)
	lo, hi := m.span()
	glog.Infof("stereo: %d of %d pixels matched, disparity mean %.2f std dev %.2f range [%g, %g], %d filled",
		len(v), total, mean, std, lo, hi, m.filled)
}
