package stereo

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/TrevorS/cyclops/field"
	"github.com/TrevorS/cyclops/progress"
)

// HEBPConfig controls hierarchical EBP.
type HEBPConfig struct {
	// Config holds the parameters of every per-level EBP run.
	Config `mapstructure:",squash"`

	// SearchRange widens each coarse candidate by this many disparities on
	// both sides when it is handed to the next finer level. Must be >= 0.
	// Default: 1.
	SearchRange int `mapstructure:"search_range"`

	// SpreadRange is the radius of the top-hat that unions the handed-down
	// ranges of neighbouring pixels. Must be >= 0. Default: 1.
	SpreadRange int `mapstructure:"spread_range"`
}

// DefaultHEBPConfig returns an HEBPConfig with the usual parameters.
func DefaultHEBPConfig() HEBPConfig {
	return HEBPConfig{
		Config:      DefaultConfig(),
		SearchRange: 1,
		SpreadRange: 1,
	}
}

func validateHEBPConfig(cfg *HEBPConfig) error {
	if err := validateConfig(&cfg.Config); err != nil {
		return err
	}
	if cfg.SearchRange < 0 {
		return fmt.Errorf("stereo: SearchRange must be >= 0, got %d", cfg.SearchRange)
	}
	if cfg.SpreadRange < 0 {
		return fmt.Errorf("stereo: SpreadRange must be >= 0, got %d", cfg.SpreadRange)
	}
	return nil
}

// HEBP runs EBP without a user supplied DSR. The coarsest level of the
// image pyramid searches every disparity the right mask allows; each finer
// level searches around the result of the level above. Only the finest
// result is kept, and HEBP presents it as a DSI.
type HEBP struct {
	cfg       HEBPConfig
	dsc       DSC
	dscOcc    DSC
	leftMask  *field.Mask
	rightMask *field.Mask

	ebp *EBP
}

// NewHEBP returns an HEBP with the given parameters.
func NewHEBP(cfg HEBPConfig) *HEBP {
	return &HEBP{cfg: cfg}
}

// SetDSC sets the matching cost. It is cloned.
func (h *HEBP) SetDSC(d DSC) { h.dsc = d.Clone() }

// SetOcc sets a separate occlusion DSC. It is cloned.
func (h *HEBP) SetOcc(d DSC) { h.dscOcc = d.Clone() }

// SetMasks restricts matching to left pixels and right pixels set in the
// respective mask. Either may be nil.
func (h *HEBP) SetMasks(left, right *field.Mask) {
	h.leftMask = left
	h.rightMask = right
}

func (h *HEBP) validate() error {
	if err := validateHEBPConfig(&h.cfg); err != nil {
		return err
	}
	if h.ebp != nil {
		return ErrAlreadyRun
	}
	if h.dsc == nil {
		return ErrNoDSC
	}
	if h.dsc.WidthLeft() == 0 || h.dsc.HeightLeft() == 0 || h.dsc.WidthRight() == 0 {
		return ErrEmpty
	}
	if h.dsc.HeightLeft() != h.dsc.HeightRight() {
		return fmt.Errorf("%w: left height %d, right height %d", ErrSizeMismatch,
			h.dsc.HeightLeft(), h.dsc.HeightRight())
	}
	if m := h.leftMask; m != nil && (m.Width() != h.dsc.WidthLeft() || m.Height() != h.dsc.HeightLeft()) {
		return fmt.Errorf("%w: left mask %dx%d", ErrSizeMismatch, m.Width(), m.Height())
	}
	if m := h.rightMask; m != nil && (m.Width() != h.dsc.WidthRight() || m.Height() != h.dsc.HeightRight()) {
		return fmt.Errorf("%w: right mask %dx%d", ErrSizeMismatch, m.Width(), m.Height())
	}
	return nil
}

// Run matches the whole pyramid. prog may be nil.
func (h *HEBP) Run(prog *progress.Progress) error {
	if err := h.validate(); err != nil {
		return err
	}

	hdsc := &HierarchyDSC{Workers: workers(&h.cfg.Config)}
	hdsc.Set(h.dsc, h.leftMask, h.rightMask)
	var hocc *HierarchyDSC
	if h.dscOcc != nil {
		hocc = &HierarchyDSC{Workers: workers(&h.cfg.Config)}
		hocc.Set(h.dscOcc, h.leftMask, h.rightMask)
	}

	n := hdsc.Levels()
	glog.V(1).Infof("stereo: HEBP %dx%d, %d levels", h.dsc.WidthLeft(), h.dsc.HeightLeft(), n)

	prog.Push()
	defer prog.Pop()

	prog.Report(0, n)
	top := hdsc.Level(n - 1)
	ebp := NewEBP(h.cfg.Config)
	ebp.SetDSC(top)
	if hocc != nil {
		ebp.SetOcc(hocc.Level(n - 1))
	}
	ebp.SetDSR(fullDSR(top, hdsc.LeftMask(n-1), hdsc.RightMask(n-1)))
	if err := ebp.Run(prog); err != nil {
		return err
	}

	for l := n - 2; l >= 0; l-- {
		prog.Report(n-1-l, n)
		here := hdsc.Level(l)
		above := NewHierarchyDSR(here.WidthLeft(), here.HeightLeft(), ebp, h.cfg.SearchRange, hdsc.LeftMask(l))
		spread := NewSpreadDSR(above, h.cfg.SpreadRange, hdsc.LeftMask(l))
		glog.V(2).Infof("stereo: HEBP level %d, %d matches", l, Matches(spread))

		ebp = NewEBP(h.cfg.Config)
		ebp.SetDSC(here)
		if hocc != nil {
			ebp.SetOcc(hocc.Level(l))
		}
		ebp.SetDSR(spread)
		if err := ebp.Run(prog); err != nil {
			return err
		}
	}
	h.ebp = ebp
	return nil
}

// fullDSR offers every right pixel allowed by rightMask to every left pixel
// allowed by leftMask, collapsed into runs of consecutive columns.
func fullDSR(d DSC, leftMask, rightMask *field.Mask) *BasicDSR {
	out := NewBasicDSR(d.WidthLeft(), d.HeightLeft())
	wr := d.WidthRight()
	for y := 0; y < d.HeightLeft(); y++ {
		for x := 0; x < d.WidthLeft(); x++ {
			if !field.Valid(leftMask, x, y) {
				continue
			}
			inRange := false
			start := 0
			for x2 := 0; x2 < wr; x2++ {
				if field.Valid(rightMask, x2, y) {
					if !inRange {
						inRange = true
						start = x2 - x
					}
				} else if inRange {
					inRange = false
					out.Add(x, y, start, x2-1-x)
				}
			}
			if inRange {
				out.Add(x, y, start, wr-1-x)
			}
		}
	}
	return out
}

// Width returns the width of the result.
func (h *HEBP) Width() int {
	if h.ebp == nil {
		return 0
	}
	return h.ebp.Width()
}

// Height returns the height of the result.
func (h *HEBP) Height() int {
	if h.ebp == nil {
		return 0
	}
	return h.ebp.Height()
}

func (h *HEBP) Size(x, y int) int             { return h.ebp.Size(x, y) }
func (h *HEBP) Disp(x, y, i int) float64      { return h.ebp.Disp(x, y, i) }
func (h *HEBP) Cost(x, y, i int) float64      { return h.ebp.Cost(x, y, i) }
func (h *HEBP) DispWidth(x, y, i int) float64 { return h.ebp.DispWidth(x, y, i) }
