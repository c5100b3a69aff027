package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/TrevorS/cyclops/field"
	"github.com/TrevorS/cyclops/kdtree"
	"github.com/TrevorS/cyclops/modelseg"
	"github.com/TrevorS/cyclops/progress"
)

func runSegment(args []string) error {
	cfg := defaultSegmentConfig()
	fs := flag.NewFlagSet("segment", flag.ContinueOnError)
	inPath := fs.String("in", "", "input image (required)")
	cfgPath := fs.String("config", "", "JSON parameter file")
	colours := fs.Int("colours", cfg.Colours, "palette size, overrides the config file")
	outPath := fs.String("out", "seg.png", "output PNG coloured by palette entry")
	maxWidth := fs.Int("max-width", 0, "shrink the image to at most this width first")
	blurRadius := fs.Float64("blur", 0, "Gaussian pre-blur radius in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		fs.Usage()
		return errors.New("segment: -in is required")
	}
	if err := loadConfig(*cfgPath, &cfg); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "colours" {
			cfg.Colours = *colours
		}
	})

	img, err := loadImage(*inPath)
	if err != nil {
		return err
	}
	res, err := segment(prepare(img, *maxWidth, *blurRadius), cfg)
	if err != nil {
		return err
	}
	glog.Infof("segment: %d palette entries, %d regions", len(res.palette), res.regions)
	fmt.Fprintf(os.Stdout, "%d regions\n", res.regions)
	return savePNG(*outPath, res.image())
}

// paletteEntry is a palette colour in Luv and the model it stands for.
type paletteEntry struct {
	model uint32
	luv   r3.Vector
}

func luvAxis(e paletteEntry, d int) float64 {
	switch d {
	case 0:
		return e.luv.X
	case 1:
		return e.luv.Y
	}
	return e.luv.Z
}

func luvVector(c field.Luv) r3.Vector { return r3.Vector{X: c.L, Y: c.U, Z: c.V} }
func coords(v r3.Vector) []float64    { return []float64{v.X, v.Y, v.Z} }

// choosePalette picks up to k colours from an evenly spaced sample of about
// samples pixels by farthest point sampling: each new entry is the sampled
// colour farthest from every entry so far. A colour already in the palette
// is never chosen again, so the palette is smaller than k when the image
// has fewer colours. Entry i has model i.
func choosePalette(img *field.Field[field.Luv], k, samples int) (*kdtree.Tree[paletteEntry], []paletteEntry) {
	data := img.Data()
	step := max(1, len(data)/samples)
	var pts []r3.Vector
	for i := 0; i < len(data); i += step {
		pts = append(pts, luvVector(data[i]))
	}

	tree := kdtree.New(3, luvAxis)
	if len(pts) == 0 {
		return tree, nil
	}
	palette := []paletteEntry{{model: 0, luv: pts[0]}}
	tree.Add(palette[0])
	for len(palette) < k {
		best, bestDist := -1, 0.0
		for i, p := range pts {
			if _, d, _ := tree.Nearest(coords(p)); d > bestDist {
				best, bestDist = i, d
			}
		}
		if best < 0 {
			break
		}
		e := paletteEntry{model: uint32(len(palette)), luv: pts[best]}
		palette = append(palette, e)
		tree.Add(e)
		if n := len(palette); n&(n-1) == 0 {
			tree.Rebalance()
		}
	}
	tree.Rebalance()
	return tree, palette
}

type segmentation struct {
	seg     *modelseg.ModelSeg
	palette []paletteEntry
	labels  *field.Field[int]
	regions int
}

func segment(img image.Image, cfg segmentConfig) (*segmentation, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	luv := field.LuvFromImage(img)
	tree, palette := choosePalette(luv, cfg.Colours, cfg.Samples)

	s := modelseg.New(cfg.Config)
	s.SetSize(luv.Width(), luv.Height(), len(palette))

	// Only palette entries within reach of a pixel cost less than the cap;
	// pixels with none get their approximate nearest entry at the cap.
	reach := cfg.CostCap / cfg.ColourMult
	lo, hi := make([]float64, 3), make([]float64, 3)
	for y := 0; y < luv.Height(); y++ {
		for x := 0; x < luv.Width(); x++ {
			q := luvVector(luv.Get(x, y))
			c := coords(q)
			for d := range c {
				lo[d], hi[d] = c[d]-reach, c[d]+reach
			}
			found := false
			for _, e := range tree.RangeGet(lo, hi) {
				if cost := cfg.ColourMult * q.Sub(e.luv).Norm(); cost <= cfg.CostCap {
					s.AddCost(x, y, e.model, cost)
					found = true
				}
			}
			if !found {
				if e, d, ok := tree.ApproxNearest(c, cfg.Fallback); ok {
					s.AddCost(x, y, e.model, math.Min(cfg.ColourMult*d, cfg.CostCap))
				}
			}
		}
	}

	if err := s.Run(progress.New(progressLogger("segment"))); err != nil {
		return nil, errors.Wrap(err, "segmenting")
	}
	labels, n := modelseg.Regions(s)
	return &segmentation{seg: s, palette: palette, labels: labels, regions: n}, nil
}

// image paints every pixel in the colour of its model, black where it has
// none.
func (r *segmentation) image() *image.RGBA {
	w, h := r.seg.Width(), r.seg.Height()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	colours := make([]color.Color, len(r.palette))
	for i, e := range r.palette {
		colours[i] = field.Luv{L: e.luv.X, U: e.luv.Y, V: e.luv.Z}.Color()
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m := r.seg.Model(x, y); m != modelseg.NoModel {
				out.Set(x, y, colours[m])
			} else {
				out.Set(x, y, color.Black)
			}
		}
	}
	return out
}
