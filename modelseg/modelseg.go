// Package modelseg assigns one of a set of models to every pixel of a grid by
// belief propagation over a Potts smoothness term.
//
// The caller lists sparse per-pixel model costs; any model not listed for a
// pixel costs the cost cap. Neighbouring pixels pay the difference cost when
// they disagree. Messages are sparse sorted model lists, so memory depends on
// how many models are competitive rather than on how many exist.
//
// Usage follows a fixed sequence:
//
//	s := modelseg.New(modelseg.DefaultConfig())
//	s.SetSize(w, h, models)
//	s.AddCost(x, y, model, cost) // repeatedly
//	if err := s.Run(nil); err != nil { ... }
//	m := s.Model(x, y)
package modelseg

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"slices"

	"github.com/golang/glog"

	"github.com/TrevorS/cyclops/field"
	"github.com/TrevorS/cyclops/internal/arena"
	"github.com/TrevorS/cyclops/progress"
)

// NoModel is the model of pixels that ended up with no candidate at all,
// masked pixels among them.
const NoModel uint32 = 0xFFFFFFFF

var (
	// ErrEmpty is returned by Run when SetSize was never called or was given
	// a zero dimension or model count.
	ErrEmpty = errors.New("modelseg: empty grid")
	// ErrSizeMismatch is returned when the mask does not match the grid.
	ErrSizeMismatch = errors.New("modelseg: mask size mismatch")
	// ErrOutOfRange is returned when a cost names a pixel or model outside
	// the grid.
	ErrOutOfRange = errors.New("modelseg: cost out of range")
	// ErrAlreadyRun is returned by a second call to Run.
	ErrAlreadyRun = errors.New("modelseg: already run")
)

// Config controls the segmentation. Start with [DefaultConfig] and override
// the fields you need.
type Config struct {
	// DiffCost is the cost of neighbouring pixels taking different models,
	// before the per-edge multipliers of SetMult. Must be >= 0. Default: 1.0.
	DiffCost float64 `mapstructure:"diff_cost"`

	// CostCap is the cost of every model not listed for a pixel. Listed
	// costs above it are dropped. Default: 1.0.
	CostCap float64 `mapstructure:"cost_cap"`

	// Iters is the number of checkerboard iterations per pyramid level.
	// Must be >= 0. Default: 10.
	Iters int `mapstructure:"iters"`
}

// DefaultConfig returns a Config with the usual parameters.
func DefaultConfig() Config {
	return Config{
		DiffCost: 1.0,
		CostCap:  1.0,
		Iters:    10,
	}
}

func validateConfig(cfg *Config) error {
	if math.IsNaN(cfg.DiffCost) || cfg.DiffCost < 0 {
		return fmt.Errorf("modelseg: DiffCost must be >= 0, got %v", cfg.DiffCost)
	}
	if math.IsNaN(cfg.CostCap) {
		return fmt.Errorf("modelseg: CostCap must not be NaN")
	}
	if cfg.Iters < 0 {
		return fmt.Errorf("modelseg: Iters must be >= 0, got %d", cfg.Iters)
	}
	return nil
}

type userCost struct {
	x, y  int
	model uint32
	cost  float64
}

// mult scales the difference cost of the edges to the +x and +y neighbours.
type mult struct {
	mx, my float64
}

type result struct {
	model uint32
	conf  float64
}

// ModelSeg is a single-shot model segmentation. It is not safe for
// concurrent use.
type ModelSeg struct {
	cfg           Config
	width, height int
	models        int
	mask          *field.Mask
	mult          []mult
	costs         []userCost

	ran bool
	out []result
}

// New returns a ModelSeg with the given parameters.
func New(cfg Config) *ModelSeg {
	return &ModelSeg{cfg: cfg}
}

// SetSize sets the grid dimensions and the number of models, and resets
// every edge multiplier to 1. Call it before AddCost and SetMult.
func (s *ModelSeg) SetSize(width, height, models int) {
	s.width, s.height, s.models = width, height, models
	s.mult = make([]mult, max(width*height, 0))
	for i := range s.mult {
		s.mult[i] = mult{1, 1}
	}
}

// SetMask restricts the segmentation to pixels set in mask. Masked pixels
// end up with NoModel and are never smoothed against.
func (s *ModelSeg) SetMask(mask *field.Mask) { s.mask = mask }

// SetParams sets the difference cost, the cost cap and the iteration count.
func (s *ModelSeg) SetParams(diffCost, costCap float64, iters int) {
	s.cfg.DiffCost = diffCost
	s.cfg.CostCap = costCap
	s.cfg.Iters = iters
}

// AddCost sets the cost of model at (x, y). Costs above the cost cap in force
// when Run is called are dropped, leaving the model at the cap. Adding the
// same pixel and model twice keeps the lower cost.
func (s *ModelSeg) AddCost(x, y int, model uint32, cost float64) {
	s.costs = append(s.costs, userCost{x: x, y: y, model: model, cost: cost})
}

// SetMult scales the difference cost of the edge from (x, y) to (x+1, y) by
// mx and of the edge to (x, y+1) by my.
func (s *ModelSeg) SetMult(x, y int, mx, my float64) {
	s.mult[y*s.width+x] = mult{mx, my}
}

func (s *ModelSeg) validate() error {
	if err := validateConfig(&s.cfg); err != nil {
		return err
	}
	if s.ran {
		return ErrAlreadyRun
	}
	if s.width <= 0 || s.height <= 0 || s.models <= 0 {
		return ErrEmpty
	}
	if uint64(s.models) > uint64(NoModel) {
		return fmt.Errorf("modelseg: at most %d models, got %d", NoModel, s.models)
	}
	if m := s.mask; m != nil && (m.Width() != s.width || m.Height() != s.height) {
		return fmt.Errorf("%w: mask %dx%d, grid %dx%d", ErrSizeMismatch,
			m.Width(), m.Height(), s.width, s.height)
	}
	for _, c := range s.costs {
		if c.x < 0 || c.y < 0 || c.x >= s.width || c.y >= s.height || uint64(c.model) >= uint64(s.models) {
			return fmt.Errorf("%w: (%d, %d) model %d", ErrOutOfRange, c.x, c.y, c.model)
		}
	}
	return nil
}

// node is one pixel of one pyramid level.
type node struct {
	send [4]bool
	cap  [4]float64
	in   [4]msg
	user msg
}

type level struct {
	width, height int
	nodes         []node
}

func (l *level) get(x, y int) *node { return &l.nodes[y*l.width+x] }

// Direction d points at neighbour (x+dirX[d], y+dirY[d]): +x, +y, -x, -y.
var (
	dirX = [4]int{1, 0, -1, 0}
	dirY = [4]int{0, 1, 0, -1}
)

// Run segments the grid. prog may be nil.
func (s *ModelSeg) Run(prog *progress.Progress) error {
	if err := s.validate(); err != nil {
		return err
	}
	s.ran = true

	nLevels := max(bits.Len(uint(s.width)), bits.Len(uint(s.height)))
	glog.V(1).Infof("modelseg: %dx%d, %d models, %d costs, %d levels",
		s.width, s.height, s.models, len(s.costs), nLevels)

	prog.Push()
	defer prog.Pop()

	// Pyramid.
	prog.Report(0, 3)
	prog.Push()
	prog.Report(0, 3)
	levels := make([]*level, nLevels)
	w, h := s.width, s.height
	for l := range levels {
		levels[l] = &level{width: w, height: h, nodes: make([]node, w*h)}
		w, h = field.HalfSize(w), field.HalfSize(h)
	}
	base := levels[0]
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			n := base.get(x, y)
			m := s.mult[y*s.width+x]
			n.cap[0] = s.cfg.DiffCost * m.mx
			n.cap[1] = s.cfg.DiffCost * m.my
			if x != 0 {
				n.cap[2] = s.cfg.DiffCost * s.mult[y*s.width+x-1].mx
			}
			if y != 0 {
				n.cap[3] = s.cfg.DiffCost * s.mult[(y-1)*s.width+x].my
			}
		}
	}

	prog.Report(1, 3)
	userAlloc := arena.New[entry](0)
	s.buildUser(base, userAlloc)
	var scratch []entry
	for l := 1; l < nLevels; l++ {
		scratch = transferUserUp(levels[l-1], levels[l], userAlloc, scratch)
	}

	prog.Report(2, 3)
	mask := s.mask
	for _, lv := range levels {
		setSendFlags(lv, mask)
		mask = field.Downsample(mask)
	}
	prog.Pop()

	// Message passing, coarse to fine.
	prog.Report(1, 3)
	msgA := make([]*arena.Arena[entry], nLevels)
	msgB := make([]*arena.Arena[entry], nLevels)
	for l := range msgA {
		msgA[l] = arena.New[entry](0)
		msgB[l] = arena.New[entry](0)
	}
	iters := s.cfg.Iters
	prog.Push()
	for l := nLevels - 1; l >= 0; l-- {
		prog.Report(nLevels-1-l, nLevels)
		lv := levels[l]
		glog.V(2).Infof("modelseg: level %d (%dx%d), %d iterations", l, lv.width, lv.height, iters)
		prog.Push()
		for i := 0; i < iters; i++ {
			prog.Report(i, iters+1)
			a := msgA[l]
			if i&1 == 1 {
				a = msgB[l]
			}
			a.Reset()
			scratch = passMessages(lv, i, a, scratch)
		}
		if l != 0 {
			prog.Report(iters, iters+1)
			transferMsgDown(lv, levels[l-1], msgB[l-1], msgA[l-1])
			msgA[l], msgB[l] = nil, nil
		}
		prog.Pop()
	}
	prog.Pop()

	prog.Report(2, 3)
	s.extract(base, scratch)
	return nil
}

// buildUser turns the listed costs into the user message of every unmasked
// base pixel: costs relative to the pixel's best, every other model at the
// cap.
func (s *ModelSeg) buildUser(lv *level, a *arena.Arena[entry]) {
	costCap := s.cfg.CostCap
	costs := make([]userCost, 0, len(s.costs))
	for _, c := range s.costs {
		if c.cost <= costCap {
			costs = append(costs, c)
		}
	}
	slices.SortFunc(costs, func(p, q userCost) int {
		if c := cmp.Compare(p.y, q.y); c != 0 {
			return c
		}
		if c := cmp.Compare(p.x, q.x); c != 0 {
			return c
		}
		if c := cmp.Compare(p.model, q.model); c != 0 {
			return c
		}
		return cmp.Compare(p.cost, q.cost)
	})
	costs = slices.CompactFunc(costs, func(p, q userCost) bool {
		return p.x == q.x && p.y == q.y && p.model == q.model
	})

	for i := 0; i < len(costs); {
		j := i
		for j < len(costs) && costs[j].x == costs[i].x && costs[j].y == costs[i].y {
			j++
		}
		x, y := costs[i].x, costs[i].y
		if field.Valid(s.mask, x, y) {
			low := math.Inf(1)
			for _, c := range costs[i:j] {
				low = math.Min(low, c.cost)
			}
			u := msg{base: costCap - low, ents: a.Alloc(j - i)}
			for k, c := range costs[i:j] {
				u.ents[k] = entry{model: c.model, cost: c.cost - low}
			}
			lv.get(x, y).user = u
		}
		i = j
	}
}

// children returns the up to four nodes of from below (x, y) of the next
// level, nil where the block runs off the edge.
func children(from *level, x, y int) [4]*node {
	fx, fy := x*2, y*2
	okX := fx+1 < from.width
	okY := fy+1 < from.height
	var ch [4]*node
	ch[0] = from.get(fx, fy)
	if okX {
		ch[1] = from.get(fx+1, fy)
	}
	if okY {
		ch[2] = from.get(fx, fy+1)
	}
	if okX && okY {
		ch[3] = from.get(fx+1, fy+1)
	}
	return ch
}

// transferUserUp sums the user messages of every 2×2 block into its parent
// and averages the edge caps of the children that have one.
func transferUserUp(from, to *level, a *arena.Arena[entry], scratch []entry) []entry {
	var in [4]*msg
	for y := 0; y < to.height; y++ {
		for x := 0; x < to.width; x++ {
			ch := children(from, x, y)
			k := 0
			for _, c := range ch {
				if c != nil && c.user.present() {
					in[k] = &c.user
					k++
				}
			}
			if k == 0 {
				continue
			}
			var base float64
			scratch, base = merge(in[:k], scratch[:0])
			n := to.get(x, y)
			n.user = normalise(scratch, base, a)
			for _, c := range ch {
				if c != nil && c.user.present() {
					for d := range n.cap {
						n.cap[d] += c.cap[d]
					}
				}
			}
			for d := range n.cap {
				n.cap[d] /= float64(k)
			}
		}
	}
	return scratch
}

// setSendFlags stops messages leaving the grid, leaving masked nodes, or
// reaching masked nodes.
func setSendFlags(lv *level, mask *field.Mask) {
	for y := 0; y < lv.height; y++ {
		for x := 0; x < lv.width; x++ {
			n := lv.get(x, y)
			valid := field.Valid(mask, x, y)
			for d := 0; d < 4; d++ {
				nx, ny := x+dirX[d], y+dirY[d]
				n.send[d] = valid && nx >= 0 && ny >= 0 && nx < lv.width && ny < lv.height &&
					field.Valid(mask, nx, ny)
			}
		}
	}
}

// passMessages runs one checkerboard half-iteration: every node with
// (x+y+iter)%2 == 0 sends to its neighbours, storing the new messages in a.
func passMessages(lv *level, iter int, a *arena.Arena[entry], scratch []entry) []entry {
	var in [4]*msg
	for y := 0; y < lv.height; y++ {
		for x := (y + iter) % 2; x < lv.width; x += 2 {
			n := lv.get(x, y)
			for d := 0; d < 4; d++ {
				if !n.send[d] {
					continue
				}
				// Everything the node knows except what the target told it.
				for i := range in {
					in[i] = &n.in[i]
				}
				in[d] = &n.user
				var base float64
				scratch, base = merge(in[:], scratch[:0])

				out := &lv.get(x+dirX[d], y+dirY[d]).in[(d+2)%4]
				if len(scratch) == 0 {
					*out = msg{}
					continue
				}
				*out = capped(scratch, base, n.cap[d], a)
			}
		}
	}
	return scratch
}

// transferMsgDown seeds every node of to with the incoming messages of its
// parent. Even (x+y) nodes store theirs in even, odd ones in odd; each set
// is overwritten by the first iteration that resets its arena.
func transferMsgDown(from, to *level, even, odd *arena.Arena[entry]) {
	for y := 0; y < to.height; y++ {
		for x := 0; x < to.width; x++ {
			out := to.get(x, y)
			in := from.get(x/2, y/2)
			a := even
			if (x+y)&1 == 1 {
				a = odd
			}
			for d := 0; d < 4; d++ {
				if out.send[d] {
					out.in[d] = in.in[d].clone(a)
				}
			}
		}
	}
}

// extract picks the cheapest model of every base node from its user message
// and its four incoming messages. The confidence is the margin to the
// runner up, which may be any model not listed at all.
func (s *ModelSeg) extract(lv *level, scratch []entry) {
	s.out = make([]result, lv.width*lv.height)
	var in [5]*msg
	for y := 0; y < lv.height; y++ {
		for x := 0; x < lv.width; x++ {
			n := lv.get(x, y)
			for d := range n.in {
				in[d] = &n.in[d]
			}
			in[4] = &n.user
			var base float64
			scratch, base = merge(in[:], scratch[:0])

			r := &s.out[y*lv.width+x]
			if len(scratch) == 0 {
				*r = result{model: NoModel}
				continue
			}
			best, second := math.Inf(1), math.Inf(1)
			model := NoModel
			for _, e := range scratch {
				if e.cost < best {
					second = best
					best = e.cost
					model = e.model
				} else {
					second = math.Min(second, e.cost)
				}
			}
			if len(scratch) < s.models {
				second = math.Min(second, base)
			}
			if math.IsInf(second, 1) {
				second = base
			}
			*r = result{model: model, conf: second - best}
		}
	}
}

// Model returns the model chosen for (x, y), or NoModel.
func (s *ModelSeg) Model(x, y int) uint32 { return s.out[y*s.width+x].model }

// Confidence returns how much more the runner up model would cost at (x, y).
// It is 0 for pixels without a model.
func (s *ModelSeg) Confidence(x, y int) float64 { return s.out[y*s.width+x].conf }

// Masked reports whether (x, y) ended up without a model.
func (s *ModelSeg) Masked(x, y int) bool { return s.out[y*s.width+x].model == NoModel }

// Width returns the grid width.
func (s *ModelSeg) Width() int { return s.width }

// Height returns the grid height.
func (s *ModelSeg) Height() int { return s.height }
