package kdtree

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"
)

// Inplace is a k-d tree held in flat arrays. Items and their positions are
// addressed by an index in [0, Size) that Build never changes: Build only
// arranges a permutation of the indices into an implicit balanced tree, the
// node for order[lo..hi] being order[(lo+hi)/2] with its subtrees either
// side. Changing a position or the size unbuilds the tree.
type Inplace[T any] struct {
	dims   int
	items  []T
	pos    []float64 // row-major, dims per item
	order  []int
	shrink bool
	built  bool
}

// NewInplace returns a tree of size zero-valued items at the origin.
func NewInplace[T any](dims, size int) *Inplace[T] {
	if dims < 1 {
		panic(fmt.Sprintf("kdtree: dims must be >= 1, got %d", dims))
	}
	t := &Inplace[T]{dims: dims, shrink: true}
	t.Resize(size)
	return t
}

func (t *Inplace[T]) Dims() int     { return t.dims }
func (t *Inplace[T]) Size() int     { return len(t.items) }
func (t *Inplace[T]) Built() bool   { return t.built }
func (t *Inplace[T]) Shrinks() bool { return t.shrink }

// SetShrinks controls whether Resize to a smaller size releases storage.
// With shrinking off the storage is kept for later growth.
func (t *Inplace[T]) SetShrinks(s bool) { t.shrink = s }

// Resize sets the number of items, keeping the first min(Size, n) items and
// positions. Items beyond the old size are zero-valued at the origin.
func (t *Inplace[T]) Resize(n int) {
	if n < 0 {
		panic(fmt.Sprintf("kdtree: size must be >= 0, got %d", n))
	}
	t.built = false
	old := len(t.items)
	if n <= cap(t.items) && (n >= old || !t.shrink) {
		t.items = t.items[:n]
		t.pos = t.pos[:n*t.dims]
		if n > old {
			clear(t.items[old:])
			clear(t.pos[old*t.dims:])
		}
		return
	}
	items := make([]T, n)
	pos := make([]float64, n*t.dims)
	copy(items, t.items)
	copy(pos, t.pos)
	t.items, t.pos = items, pos
}

// Item returns the item at index i for reading or writing. Items may be
// changed without unbuilding the tree.
func (t *Inplace[T]) Item(i int) *T { return &t.items[i] }

// Pos returns the position of item i. The slice aliases the tree's storage
// and must not be modified; use SetPos.
func (t *Inplace[T]) Pos(i int) []float64 {
	return t.pos[i*t.dims : (i+1)*t.dims : (i+1)*t.dims]
}

// SetPos moves item i to p and unbuilds the tree.
func (t *Inplace[T]) SetPos(i int, p []float64) {
	if len(p) != t.dims {
		panic(fmt.Sprintf("kdtree: position has %d coordinates, tree has %d", len(p), t.dims))
	}
	copy(t.pos[i*t.dims:(i+1)*t.dims], p)
	t.built = false
}

// Build arranges the items into a balanced tree. It must be called before
// any search and again after any SetPos or Resize.
func (t *Inplace[T]) Build() {
	start := time.Now()
	n := len(t.items)
	if cap(t.order) < n {
		t.order = make([]int, n)
	}
	t.order = t.order[:n]
	for i := range t.order {
		t.order[i] = i
	}
	t.build(0, n-1, 0)
	t.built = true
	glog.V(3).Infof("kdtree: built in-place tree of %d items in %v", n, time.Since(start))
}

func (t *Inplace[T]) build(lo, hi, depth int) {
	if hi <= lo {
		return
	}
	d := depth % t.dims
	mid := (lo + hi) / 2
	quickselect(lo, hi, mid,
		func(i int) float64 { return t.pos[t.order[i]*t.dims+d] },
		func(i, j int) { t.order[i], t.order[j] = t.order[j], t.order[i] })
	t.build(lo, mid-1, depth+1)
	t.build(mid+1, hi, depth+1)
}

// NearestEuc returns the index of the item closest to q by Euclidean
// distance, and that distance.
func (t *Inplace[T]) NearestEuc(q []float64) (int, float64) { return t.Nearest(q, Euclidean{}) }

// NearestMan returns the index of the item closest to q by Manhattan
// distance, and that distance.
func (t *Inplace[T]) NearestMan(q []float64) (int, float64) { return t.Nearest(q, Manhattan{}) }

// Nearest returns the index of the item closest to q under m, and that
// distance. Among items at the minimal distance it returns the first one
// the search reaches. An empty tree gives -1 and +Inf. Panics if the tree
// is not built.
func (t *Inplace[T]) Nearest(q []float64, m Metric) (int, float64) {
	if !t.built {
		panic("kdtree: search of an unbuilt in-place tree")
	}
	if len(q) != t.dims {
		panic(fmt.Sprintf("kdtree: query has %d coordinates, tree has %d", len(q), t.dims))
	}
	s := flatSearch{q: q, m: m, best: -1, dist: math.Inf(1)}
	t.visit(&s, 0, len(t.order)-1, 0)
	if s.best < 0 {
		return -1, math.Inf(1)
	}
	return s.best, m.FromReduced(s.dist)
}

type flatSearch struct {
	q    []float64
	m    Metric
	best int
	dist float64 // reduced
}

func (t *Inplace[T]) visit(s *flatSearch, lo, hi, depth int) {
	if hi < lo {
		return
	}
	mid := (lo + hi) / 2
	idx := t.order[mid]
	p := t.Pos(idx)
	d := depth % t.dims
	gap := s.q[d] - p[d]

	nearLo, nearHi, farLo, farHi := lo, mid-1, mid+1, hi
	if gap >= 0 {
		nearLo, nearHi, farLo, farHi = farLo, farHi, nearLo, nearHi
	}
	t.visit(s, nearLo, nearHi, depth+1)
	if r := s.m.Reduced(p, s.q); r < s.dist {
		s.best, s.dist = idx, r
	}
	if s.m.AxisReduced(gap) < s.dist {
		t.visit(s, farLo, farHi, depth+1)
	}
}
