package stereo

import (
	"fmt"
	"math"

	"github.com/TrevorS/cyclops/internal/arena"
)

// Direction d points at neighbour (x+dirX[d], y+dirY[d]): +x, +y, -x, -y.
var (
	dirX = [4]int{1, 0, -1, 0}
	dirY = [4]int{0, 1, 0, -1}
)

// section is a run of consecutive disparities.
type section struct {
	start int
	run   int
}

// pixel is one node of the message passing pyramid. values holds 5 blocks of
// msgSize entries: the matching cost of every disparity, then the incoming
// message from each direction.
type pixel struct {
	pass     [4]bool
	occCost  [4]float64
	msgSize  int
	sections []section
	values   []float64
}

func (p *pixel) cost(i int) float64 { return p.values[i] }

// msg returns the incoming message from direction d.
func (p *pixel) msg(d int) []float64 {
	return p.values[(d+1)*p.msgSize : (d+2)*p.msgSize]
}

func (p *pixel) iter() dispIter {
	return dispIter{sec: p.sections, d: p.sections[0].start}
}

// dispIter walks the disparities of a pixel in ascending order. i is the
// index of the current disparity into every value block.
type dispIter struct {
	sec []section
	s   int
	d   int
	i   int
}

func (it *dispIter) next() {
	it.i++
	it.d++
	if it.d >= it.sec[it.s].start+it.sec[it.s].run {
		it.s++
		if it.s < len(it.sec) {
			it.d = it.sec[it.s].start
		}
	}
}

func (it *dispIter) prev() {
	it.i--
	it.d--
	if it.d < it.sec[it.s].start {
		it.s--
		if it.s >= 0 {
			it.d = it.sec[it.s].start + it.sec[it.s].run - 1
		}
	}
}

// last moves the iterator onto the highest disparity of a pixel with n
// disparities.
func (it *dispIter) last(n int) {
	it.s = len(it.sec) - 1
	it.d = it.sec[it.s].start + it.sec[it.s].run - 1
	it.i = n - 1
}

// pixelPool hands out pixels and their storage from arenas shared by a whole
// pyramid.
type pixelPool struct {
	pixels   *arena.Arena[pixel]
	sections *arena.Arena[section]
	values   *arena.Arena[float64]
}

func newPixelPool() *pixelPool {
	return &pixelPool{
		pixels:   arena.New[pixel](4096),
		sections: arena.New[section](0),
		values:   arena.New[float64](0),
	}
}

func (pp *pixelPool) alloc(sections, msgSize int) *pixel {
	p := &pp.pixels.Alloc(1)[0]
	p.pass = [4]bool{true, true, true, true}
	p.msgSize = msgSize
	p.sections = pp.sections.Alloc(sections)
	p.values = pp.values.Alloc(5 * msgSize)
	return p
}

// union merges up to four child pixels into their parent. The parent covers
// every disparity of any child, with the summed matching cost of the
// children that have it and the mean occlusion costs of the present
// children. Returns nil when every child is nil.
func (pp *pixelPool) union(children [4]*pixel, scratch *unionScratch) *pixel {
	scratch.reset()
	var its [4]dispIter
	var rem [4]int
	present := 0
	for i, c := range children {
		if c == nil {
			continue
		}
		its[i] = c.iter()
		rem[i] = c.msgSize
		present++
	}
	if present == 0 {
		return nil
	}

	for {
		lowest := math.MaxInt
		for i := range its {
			if rem[i] != 0 {
				lowest = min(lowest, its[i].d)
			}
		}
		if lowest == math.MaxInt {
			break
		}
		sum := 0.0
		for i := range its {
			if rem[i] != 0 && its[i].d == lowest {
				sum += children[i].cost(its[i].i)
				rem[i]--
				if rem[i] != 0 {
					its[i].next()
				}
			}
		}
		scratch.push(lowest, sum)
	}

	p := pp.alloc(len(scratch.secs), len(scratch.costs))
	copy(p.sections, scratch.secs)
	copy(p.values, scratch.costs)
	for _, c := range children {
		if c == nil {
			continue
		}
		for d := range p.occCost {
			p.occCost[d] += c.occCost[d]
		}
	}
	for d := range p.occCost {
		p.occCost[d] /= float64(present)
	}
	return p
}

// unionScratch accumulates the merged disparity list of one union.
type unionScratch struct {
	secs  []section
	costs []float64
}

func (u *unionScratch) reset() {
	u.secs = u.secs[:0]
	u.costs = u.costs[:0]
}

func (u *unionScratch) push(d int, cost float64) {
	if n := len(u.secs); n != 0 && u.secs[n-1].start+u.secs[n-1].run == d {
		u.secs[n-1].run++
	} else {
		u.secs = append(u.secs, section{start: d, run: 1})
	}
	u.costs = append(u.costs, cost)
}

// getMessages seeds the messages of to with those its parent from holds for
// the same disparities. Every disparity of to must exist in from.
func getMessages(to, from *pixel) {
	out := to.iter()
	in := from.iter()
	for i := 0; i < to.msgSize; i++ {
		for in.d < out.d {
			if in.i+1 >= from.msgSize {
				panic(fmt.Sprintf("stereo: disparity %d missing from parent level", out.d))
			}
			in.next()
		}
		if in.d != out.d {
			panic(fmt.Sprintf("stereo: disparity %d missing from parent level", out.d))
		}
		for d := 0; d < 4; d++ {
			to.msg(d)[out.i] = from.msg(d)[in.i]
		}
		if i+1 < to.msgSize {
			out.next()
		}
	}
}

// sendCost is the belief of disparity index i excluding the message that
// came from direction md.
func (p *pixel) sendCost(i, md int) float64 {
	c := p.values[i]
	for j := 0; j < 4; j++ {
		if j != md {
			c += p.values[(j+1)*p.msgSize+i]
		}
	}
	return c
}

// send computes the message p passes to q in direction md and stores it in
// the slot of q facing back towards p. The message is a lower envelope of
// p's costs with slope occCost[md], normalised to its minimum and capped at
// occCost[md]·occLimMult.
func (p *pixel) send(q *pixel, md int, occLimMult float64) {
	occ := p.occCost[md]
	outMsg := q.msg((md + 2) % 4)
	inf := math.Inf(1)

	// Forward pass.
	self := p.iter()
	out := q.iter()
	lastCost, lastDisp, minCost := inf, 0, inf
	selfRem := p.msgSize
	for {
		for selfRem != 0 && self.d <= out.d {
			c := p.sendCost(self.i, md)
			minCost = math.Min(minCost, c)
			lastCost = math.Min(c, lastCost+occ*float64(self.d-lastDisp))
			lastDisp = self.d
			selfRem--
			if selfRem != 0 {
				self.next()
			}
		}
		outMsg[out.i] = lastCost + occ*float64(out.d-lastDisp)
		if out.i+1 == q.msgSize {
			break
		}
		out.next()
	}
	for selfRem != 0 {
		minCost = math.Min(minCost, p.sendCost(self.i, md))
		selfRem--
		if selfRem != 0 {
			self.next()
		}
	}

	// Backward pass, both iterators now sit on their highest disparity.
	self.last(p.msgSize)
	out.last(q.msgSize)
	lastCost, lastDisp = inf, 0
	selfRem = p.msgSize
	occLim := occ * occLimMult
	for {
		for selfRem != 0 && self.d >= out.d {
			c := p.sendCost(self.i, md)
			lastCost = math.Min(c, lastCost+occ*float64(lastDisp-self.d))
			lastDisp = self.d
			selfRem--
			if selfRem != 0 {
				self.prev()
			}
		}
		byLast := lastCost + occ*float64(lastDisp-out.d)
		v := math.Min(outMsg[out.i], byLast)
		outMsg[out.i] = math.Min(occLim, v-minCost)
		if out.i == 0 {
			break
		}
		out.prev()
	}
}
