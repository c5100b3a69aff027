package modelseg

import (
	"math"

	"github.com/TrevorS/cyclops/internal/arena"
)

// entry is the cost of one model inside a sparse message.
type entry struct {
	model uint32
	cost  float64
}

// msg is a sparse cost vector over every model. Listed models carry their
// own cost, ascending by model; every other model costs base. The zero msg
// costs nothing anywhere and stands in for "no message".
type msg struct {
	base float64
	ents []entry
}

// present reports whether m lists any model.
func (m *msg) present() bool { return len(m.ents) != 0 }

// merge sums up to five sparse messages. It appends one entry per model
// listed by any input, ascending, to out, and returns the summed base, the
// cost every unlisted model has in the sum.
func merge(in []*msg, out []entry) ([]entry, float64) {
	var pos [5]int
	base := 0.0
	for _, m := range in {
		base += m.base
	}
	for {
		found := false
		minModel := uint32(0)
		for i, m := range in {
			if pos[i] < len(m.ents) {
				if !found || m.ents[pos[i]].model < minModel {
					minModel = m.ents[pos[i]].model
				}
				found = true
			}
		}
		if !found {
			return out, base
		}
		cost := 0.0
		for i, m := range in {
			if pos[i] < len(m.ents) && m.ents[pos[i]].model == minModel {
				cost += m.ents[pos[i]].cost
				pos[i]++
			} else {
				cost += m.base
			}
		}
		out = append(out, entry{model: minModel, cost: cost})
	}
}

func minCost(ents []entry) float64 {
	ret := math.Inf(1)
	for _, e := range ents {
		ret = math.Min(ret, e.cost)
	}
	return ret
}

// normalise stores ents relative to their minimum in storage from a, with
// base likewise relative.
func normalise(ents []entry, base float64, a *arena.Arena[entry]) msg {
	low := minCost(ents)
	out := msg{base: base - low, ents: a.Alloc(len(ents))}
	for i, e := range ents {
		out.ents[i] = entry{model: e.model, cost: e.cost - low}
	}
	return out
}

// capped turns a merged belief into the message sent across an edge whose
// disagreement costs limit: each model costs min(belief - best, limit).
// Models at the limit are folded into the base.
func capped(ents []entry, base, limit float64, a *arena.Arena[entry]) msg {
	low := minCost(ents)
	kept := 0
	for _, e := range ents {
		if e.cost-low < limit {
			kept++
		}
	}
	out := msg{base: math.Min(limit, base-low), ents: a.Alloc(kept)}
	i := 0
	for _, e := range ents {
		if e.cost-low < limit {
			out.ents[i] = entry{model: e.model, cost: e.cost - low}
			i++
		}
	}
	return out
}

// clone copies m into storage from a.
func (m *msg) clone(a *arena.Arena[entry]) msg {
	out := msg{base: m.base, ents: a.Alloc(len(m.ents))}
	copy(out.ents, m.ents)
	return out
}
