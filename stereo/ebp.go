package stereo

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/golang/glog"

	"github.com/TrevorS/cyclops/progress"
)

var (
	// ErrNoDSC is returned by Run when no DSC was set.
	ErrNoDSC = errors.New("stereo: no DSC set")
	// ErrNoDSR is returned by EBP.Run when no DSR was set.
	ErrNoDSR = errors.New("stereo: no DSR set")
	// ErrSizeMismatch is returned when the inputs of a run disagree on their
	// dimensions.
	ErrSizeMismatch = errors.New("stereo: input size mismatch")
	// ErrEmpty is returned for zero sized inputs.
	ErrEmpty = errors.New("stereo: empty input")
	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("stereo: already run")
)

// Config controls belief propagation. Start with [DefaultConfig] and
// override the fields you need.
type Config struct {
	// OccCostBase is the slope of the smoothness term: the cost of a one
	// disparity step between neighbours. It is also the per-pixel penalty
	// for matches that fall outside the right image. Default: 1.0.
	OccCostBase float64 `mapstructure:"occ_cost_base"`

	// OccCostMult scales the occlusion DSC cost between neighbours before it
	// is added to OccCostBase. Negative values make steps cheaper across
	// colour edges; the sum is clamped at 0, so a strong edge makes a step
	// free but never rewards one. Default: -0.1.
	OccCostMult float64 `mapstructure:"occ_cost_mult"`

	// OccLimMult caps every message at the sending direction's occlusion
	// cost times this value. Default: 2.0.
	OccLimMult float64 `mapstructure:"occ_lim_mult"`

	// Iters is the number of checkerboard iterations on every level below
	// the top. The top level always runs 2·(width+height). Must be >= 0.
	// Default: 8.
	Iters int `mapstructure:"iters"`

	// OutCount is the number of disparities kept per pixel. Must be >= 1.
	// Default: 1.
	OutCount int `mapstructure:"out_count"`

	// Workers controls the number of goroutines used per checkerboard
	// colour, for result extraction and for building HEBP's pyramid. 0
	// means use runtime.NumCPU(). Results do not depend on it. Default: 1.
	Workers int `mapstructure:"workers"`
}

// DefaultConfig returns a Config with the usual parameters.
func DefaultConfig() Config {
	return Config{
		OccCostBase: 1.0,
		OccCostMult: -0.1,
		OccLimMult:  2.0,
		Iters:       8,
		OutCount:    1,
		Workers:     1,
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Iters < 0 {
		return fmt.Errorf("stereo: Iters must be >= 0, got %d", cfg.Iters)
	}
	if cfg.OutCount < 1 {
		return fmt.Errorf("stereo: OutCount must be >= 1, got %d", cfg.OutCount)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("stereo: Workers must be >= 0, got %d", cfg.Workers)
	}
	if math.IsNaN(cfg.OccCostBase) || math.IsNaN(cfg.OccCostMult) || math.IsNaN(cfg.OccLimMult) {
		return fmt.Errorf("stereo: occlusion parameters must not be NaN")
	}
	return nil
}

func workers(cfg *Config) int {
	if cfg.Workers == 0 {
		return runtime.NumCPU()
	}
	return cfg.Workers
}

// EBP is efficient hierarchical belief propagation for stereo. Give it a
// DSC, a DSR saying which disparities to consider at each pixel, and
// optionally a separate DSC for occlusion costs, then call Run once. After
// Run the EBP is a read-only DSI whose candidates each cover ±0.5.
type EBP struct {
	cfg    Config
	dsc    DSC
	dscOcc DSC
	dsr    DSR

	ran  bool
	disp *scanlines[match]
}

type match struct {
	disp int
	cost float64
}

// NewEBP returns an EBP with the given parameters.
func NewEBP(cfg Config) *EBP {
	return &EBP{cfg: cfg}
}

// SetDSC sets the matching cost. It is cloned.
func (e *EBP) SetDSC(d DSC) { e.dsc = d.Clone() }

// SetOcc sets the DSC whose left-image costs between neighbours modulate
// the occlusion cost. Defaults to the matching DSC.
func (e *EBP) SetOcc(d DSC) { e.dscOcc = d.Clone() }

// SetDSR sets the disparities to search.
func (e *EBP) SetDSR(d DSR) { e.dsr = d }

func (e *EBP) validate() error {
	if err := validateConfig(&e.cfg); err != nil {
		return err
	}
	if e.ran {
		return ErrAlreadyRun
	}
	if e.dsc == nil {
		return ErrNoDSC
	}
	if e.dsr == nil {
		return ErrNoDSR
	}
	if e.dsc.WidthLeft() == 0 || e.dsc.HeightLeft() == 0 || e.dsc.WidthRight() == 0 {
		return ErrEmpty
	}
	if e.dsc.HeightLeft() != e.dsc.HeightRight() {
		return fmt.Errorf("%w: left height %d, right height %d", ErrSizeMismatch,
			e.dsc.HeightLeft(), e.dsc.HeightRight())
	}
	if e.dsr.Width() != e.dsc.WidthLeft() || e.dsr.Height() != e.dsc.HeightLeft() {
		return fmt.Errorf("%w: DSR %dx%d, left image %dx%d", ErrSizeMismatch,
			e.dsr.Width(), e.dsr.Height(), e.dsc.WidthLeft(), e.dsc.HeightLeft())
	}
	if occ := e.dscOcc; occ != nil && (occ.WidthLeft() != e.dsc.WidthLeft() || occ.HeightLeft() != e.dsc.HeightLeft()) {
		return fmt.Errorf("%w: occlusion DSC %dx%d, left image %dx%d", ErrSizeMismatch,
			occ.WidthLeft(), occ.HeightLeft(), e.dsc.WidthLeft(), e.dsc.HeightLeft())
	}
	return nil
}

// level is one resolution of the pyramid; nil pixels are masked.
type level struct {
	width, height int
	pix           []*pixel
}

func (l *level) get(x, y int) *pixel { return l.pix[y*l.width+x] }

// Run builds the pyramid, passes messages coarse to fine and extracts the
// best OutCount disparities of every pixel. prog may be nil.
func (e *EBP) Run(prog *progress.Progress) error {
	if err := e.validate(); err != nil {
		return err
	}
	e.ran = true
	if e.dscOcc == nil {
		e.dscOcc = e.dsc
	}

	nLevels := pyramidLevels(e.dsc.WidthLeft(), e.dsc.HeightLeft(), e.dsc.WidthRight())
	steps := nLevels*2 + 3
	glog.V(1).Infof("stereo: EBP %dx%d, %d levels, %d matches",
		e.dsc.WidthLeft(), e.dsc.HeightLeft(), nLevels, Matches(e.dsr))

	prog.Push()
	defer prog.Pop()

	prog.Report(0, steps)
	pool := newPixelPool()
	levels := make([]*level, nLevels)
	w, h := e.dsc.WidthLeft(), e.dsc.HeightLeft()
	for l := range levels {
		levels[l] = &level{width: w, height: h, pix: make([]*pixel, w*h)}
		w, h = (w+1)/2, (h+1)/2
	}

	prog.Report(1, steps)
	e.buildBase(levels[0], pool, prog)

	var scratch unionScratch
	for l := 1; l < nLevels; l++ {
		prog.Report(l+1, steps)
		e.buildLevel(levels[l], levels[l-1], pool, &scratch)
	}

	prog.Report(nLevels+1, steps)
	for _, lv := range levels {
		setPassFlags(lv)
	}

	prog.Report(nLevels+2, steps)
	top := levels[nLevels-1]
	topIters := 2 * (top.width + top.height)
	glog.V(2).Infof("stereo: level %d (%dx%d), %d iterations", nLevels-1, top.width, top.height, topIters)
	prog.Push()
	for i := 0; i < topIters; i++ {
		prog.Report(i, topIters)
		e.iter(top, i)
	}
	prog.Pop()

	for l := nLevels - 2; l >= 0; l-- {
		prog.Report(nLevels*2+1-l, steps)
		lv, parent := levels[l], levels[l+1]
		glog.V(2).Infof("stereo: level %d (%dx%d), %d iterations", l, lv.width, lv.height, e.cfg.Iters)
		prog.Push()
		prog.Report(0, e.cfg.Iters+1)
		for y := 0; y < lv.height; y++ {
			for x := 0; x < lv.width; x++ {
				if p := lv.get(x, y); p != nil {
					getMessages(p, parent.get(x/2, y/2))
				}
			}
		}
		for i := 0; i < e.cfg.Iters; i++ {
			prog.Report(i+1, e.cfg.Iters+1)
			e.iter(lv, i)
		}
		prog.Pop()
	}

	prog.Report(nLevels*2+2, steps)
	e.extract(levels[0])
	return nil
}

// buildBase creates the finest level: one pixel per left pixel with at least
// one range, holding the matching cost of every candidate disparity.
func (e *EBP) buildBase(lv *level, pool *pixelPool, prog *progress.Progress) {
	cb := e.cfg.OccCostBase
	fl := e.dscOcc.FeatureLen()
	pixA := make([]float64, fl)
	pixB := make([]float64, fl)
	wr := e.dsc.WidthRight()

	prog.Push()
	defer prog.Pop()
	for y := 0; y < lv.height; y++ {
		prog.Report(y, lv.height)
		for x := 0; x < lv.width; x++ {
			n := e.dsr.Ranges(x, y)
			if n == 0 {
				continue
			}
			msgSize := 0
			for i := 0; i < n; i++ {
				msgSize += 1 + e.dsr.End(x, y, i) - e.dsr.Start(x, y, i)
			}
			p := pool.alloc(n, msgSize)
			lv.pix[y*lv.width+x] = p

			// A neighbour off the grid or without candidates is a hard
			// boundary: its colour never reaches this pixel's costs.
			e.dscOcc.Left(x, y, pixA)
			for d := 0; d < 4; d++ {
				p.occCost[d] = cb
				nx, ny := x+dirX[d], y+dirY[d]
				if nx < 0 || ny < 0 || nx >= lv.width || ny >= lv.height || e.dsr.Ranges(nx, ny) == 0 {
					continue
				}
				e.dscOcc.Left(nx, ny, pixB)
				p.occCost[d] = math.Max(0, cb+e.cfg.OccCostMult*e.dscOcc.Cost(pixA, pixB))
			}

			off := 0
			for i := 0; i < n; i++ {
				start, end := e.dsr.Start(x, y, i), e.dsr.End(x, y, i)
				p.sections[i] = section{start: start, run: end - start + 1}
				for d := start; d <= end; d++ {
					ux2 := x + d
					x2 := clampInt(ux2, 0, wr-1)
					p.values[off] = e.dsc.PixelCost(x, x2, y) + cb*math.Abs(float64(ux2-x2))
					off++
				}
			}
		}
	}
}

func (e *EBP) buildLevel(lv, child *level, pool *pixelPool, scratch *unionScratch) {
	for y := 0; y < lv.height; y++ {
		for x := 0; x < lv.width; x++ {
			fx, fy := x*2, y*2
			okX := fx+1 < child.width
			okY := fy+1 < child.height
			var ch [4]*pixel
			ch[0] = child.get(fx, fy)
			if okX {
				ch[1] = child.get(fx+1, fy)
			}
			if okY {
				ch[2] = child.get(fx, fy+1)
			}
			if okX && okY {
				ch[3] = child.get(fx+1, fy+1)
			}
			lv.pix[y*lv.width+x] = pool.union(ch, scratch)
		}
	}
}

// setPassFlags stops messages leaving the grid or reaching masked pixels.
func setPassFlags(lv *level) {
	for x := 0; x < lv.width; x++ {
		if p := lv.get(x, 0); p != nil {
			p.pass[3] = false
		}
		if p := lv.get(x, lv.height-1); p != nil {
			p.pass[1] = false
		}
	}
	for y := 0; y < lv.height; y++ {
		if p := lv.get(0, y); p != nil {
			p.pass[2] = false
		}
		if p := lv.get(lv.width-1, y); p != nil {
			p.pass[0] = false
		}
	}
	for y := 0; y < lv.height; y++ {
		for x := 0; x < lv.width; x++ {
			p := lv.get(x, y)
			if p == nil {
				continue
			}
			for d := 0; d < 4; d++ {
				if p.pass[d] && lv.get(x+dirX[d], y+dirY[d]) == nil {
					p.pass[d] = false
				}
			}
		}
	}
}

// iter runs one checkerboard half-iteration: every pixel with
// (x+y+iter)%2 == 0 sends to its neighbours. Pixels of one colour only write
// the slots of other-colour neighbours that face them, so rows of a colour
// can be processed concurrently.
func (e *EBP) iter(lv *level, iter int) {
	parallelRows(lv.height, workers(&e.cfg), func(start, end int) {
		for y := start; y < end; y++ {
			for x := (y + iter) % 2; x < lv.width; x += 2 {
				p := lv.get(x, y)
				if p == nil {
					continue
				}
				for md := 0; md < 4; md++ {
					if !p.pass[md] {
						continue
					}
					q := lv.get(x+dirX[md], y+dirY[md])
					if q.msgSize == 0 {
						continue
					}
					p.send(q, md, e.cfg.OccLimMult)
				}
			}
		}
	})
}

// matchHeap is a max-heap on cost, so the worst kept match is on top.
type matchHeap []match

func (h matchHeap) Len() int           { return len(h) }
func (h matchHeap) Less(i, j int) bool { return h[i].cost > h[j].cost }
func (h matchHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x any)        { *h = append(*h, x.(match)) }
func (h *matchHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func (e *EBP) extract(lv *level) {
	outCount := e.cfg.OutCount
	e.disp = newScanlines[match](lv.width, lv.height)
	parallelRows(lv.height, workers(&e.cfg), func(start, end int) {
		h := make(matchHeap, 0, outCount)
		for y := start; y < end; y++ {
			e.disp.buildRow(y, func(x int, data []match) []match {
				p := lv.get(x, y)
				if p == nil {
					return data
				}
				h = h[:0]
				it := p.iter()
				for i := 0; i < p.msgSize; i++ {
					cost := p.values[i]
					for d := 0; d < 4; d++ {
						cost += p.msg(d)[i]
					}
					m := match{disp: it.d, cost: cost}
					switch {
					case len(h) < outCount:
						heap.Push(&h, m)
					case cost < h[0].cost:
						h[0] = m
						heap.Fix(&h, 0)
					}
					if i+1 < p.msgSize {
						it.next()
					}
				}
				n := len(data)
				data = append(data, h...)
				slices.SortFunc(data[n:], func(a, b match) int { return a.disp - b.disp })
				return data
			})
		}
	})
}

// Width returns the width of the result.
func (e *EBP) Width() int {
	if e.disp == nil {
		return 0
	}
	return e.disp.width
}

// Height returns the height of the result.
func (e *EBP) Height() int {
	if e.disp == nil {
		return 0
	}
	return e.disp.height()
}

func (e *EBP) Size(x, y int) int             { return e.disp.size(x, y) }
func (e *EBP) Disp(x, y, i int) float64      { return float64(e.disp.at(x, y, i).disp) }
func (e *EBP) Cost(x, y, i int) float64      { return e.disp.at(x, y, i).cost }
func (e *EBP) DispWidth(_, _, _ int) float64 { return 0.5 }
