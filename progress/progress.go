// Package progress implements hierarchical progress reporting.
//
// Long running algorithms call Push before entering a sub-task, Report to say
// how far through the current task they are, and Pop on leaving. Every method
// is safe on a nil *Progress, so algorithms never need to check whether a
// caller asked for progress.
package progress

import (
	"sync"
	"time"
)

type part struct {
	x, y int
}

// Progress tracks a stack of (step, steps) pairs. It is safe for concurrent use.
type Progress struct {
	mu       sync.Mutex
	stack    []part
	start    time.Time
	onChange func(*Progress)
}

// New returns a progress tracker. onChange, if not nil, is invoked after every
// change; it must not block and must not call back into Push or Pop.
func New(onChange func(*Progress)) *Progress {
	return &Progress{
		stack:    []part{{0, 1}},
		start:    time.Now(),
		onChange: onChange,
	}
}

// Push enters a sub-task of the current step.
func (p *Progress) Push() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.stack = append(p.stack, part{0, 1})
	p.mu.Unlock()
	p.changed()
}

// Pop leaves the current sub-task. Popping the root is ignored.
func (p *Progress) Pop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if len(p.stack) > 1 {
		p.stack = p.stack[:len(p.stack)-1]
	}
	p.mu.Unlock()
	p.changed()
}

// Report records that step x of y is starting at the current depth.
func (p *Progress) Report(x, y int) {
	if p == nil {
		return
	}
	if y < 1 {
		y = 1
	}
	p.mu.Lock()
	p.stack[len(p.stack)-1] = part{x, y}
	p.mu.Unlock()
	p.changed()
}

// Next advances the current depth by one step.
func (p *Progress) Next() {
	if p == nil {
		return
	}
	p.mu.Lock()
	top := &p.stack[len(p.stack)-1]
	if top.x < top.y {
		top.x++
	}
	p.mu.Unlock()
	p.changed()
}

// Prog returns the overall completed fraction in [0, 1].
func (p *Progress) Prog() float64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progLocked()
}

func (p *Progress) progLocked() float64 {
	ret := 0.0
	for i := len(p.stack) - 1; i >= 0; i-- {
		n := p.stack[i]
		ret = (float64(n.x) + ret) / float64(n.y)
	}
	return min(max(ret, 0), 1)
}

// Depth returns how many levels are on the stack, the root included.
func (p *Progress) Depth() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stack)
}

// Part returns the (step, steps) pair at depth i.
func (p *Progress) Part(i int) (x, y int) {
	if p == nil {
		return 0, 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.stack) {
		return 0, 1
	}
	return p.stack[i].x, p.stack[i].y
}

// Time returns the elapsed time and a linear estimate of the time remaining.
// The estimate is zero until some progress has been made.
func (p *Progress) Time() (done, remaining time.Duration) {
	if p == nil {
		return 0, 0
	}
	p.mu.Lock()
	frac := p.progLocked()
	start := p.start
	p.mu.Unlock()
	done = time.Since(start)
	if frac > 0 {
		remaining = time.Duration(float64(done) * (1 - frac) / frac)
	}
	return done, remaining
}

func (p *Progress) changed() {
	if p.onChange != nil {
		p.onChange(p)
	}
}
