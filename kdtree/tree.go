package kdtree

import (
	"container/heap"
	"fmt"
	"math"
)

// Tree is a pointer-based k-d tree over items of type T. Each item's
// position is read once through the axis accessor when it enters the tree.
// Items can be added one at a time, which may unbalance the tree; Build and
// Rebalance split every level at the median.
//
// A Tree is not safe for concurrent use: ApproxNearest reuses an internal
// queue.
type Tree[T any] struct {
	dims   int
	axis   func(item T, dim int) float64
	metric Metric
	root   *node[T]
	size   int
	queue  branchHeap[T]
}

// node splits on axis depth%dims. Positions in the left subtree are no
// greater than the node's on that axis and positions in the right subtree
// are no smaller.
type node[T any] struct {
	item        T
	pos         []float64
	left, right *node[T]
}

// New returns an empty tree over dims axes. axis(item, d) gives the
// coordinate of item on axis d. Searches use the Euclidean metric until
// SetMetric changes it.
func New[T any](dims int, axis func(item T, dim int) float64) *Tree[T] {
	if dims < 1 {
		panic(fmt.Sprintf("kdtree: dims must be >= 1, got %d", dims))
	}
	if axis == nil {
		panic("kdtree: nil axis accessor")
	}
	return &Tree[T]{dims: dims, axis: axis, metric: Euclidean{}}
}

func (t *Tree[T]) SetMetric(m Metric) { t.metric = m }
func (t *Tree[T]) Dims() int          { return t.dims }
func (t *Tree[T]) Size() int          { return t.size }

// Reset empties the tree.
func (t *Tree[T]) Reset() {
	t.root = nil
	t.size = 0
	t.queue = t.queue[:0]
}

func (t *Tree[T]) newNode(item T) *node[T] {
	pos := make([]float64, t.dims)
	for d := range pos {
		pos[d] = t.axis(item, d)
	}
	return &node[T]{item: item, pos: pos}
}

// Add inserts item as a new leaf. A position equal to a node's on its split
// axis goes right.
func (t *Tree[T]) Add(item T) {
	n := t.newNode(item)
	t.size++
	if t.root == nil {
		t.root = n
		return
	}
	cur := t.root
	for depth := 0; ; depth++ {
		d := depth % t.dims
		if n.pos[d] < cur.pos[d] {
			if cur.left == nil {
				cur.left = n
				return
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				return
			}
			cur = cur.right
		}
	}
}

// Build replaces the contents of the tree with items, balanced.
func (t *Tree[T]) Build(items []T) {
	nodes := make([]*node[T], len(items))
	for i, it := range items {
		nodes[i] = t.newNode(it)
	}
	t.size = len(nodes)
	t.root = t.balance(nodes, 0)
}

// Rebalance rebuilds the tree from its current items so every level splits
// at the median.
func (t *Tree[T]) Rebalance() {
	nodes := collect(t.root, make([]*node[T], 0, t.size))
	t.root = t.balance(nodes, 0)
}

func collect[T any](n *node[T], out []*node[T]) []*node[T] {
	if n == nil {
		return out
	}
	out = collect(n.left, out)
	out = append(out, n)
	return collect(n.right, out)
}

func (t *Tree[T]) balance(nodes []*node[T], depth int) *node[T] {
	if len(nodes) == 0 {
		return nil
	}
	d := depth % t.dims
	m := len(nodes) / 2
	quickselect(0, len(nodes)-1, m,
		func(i int) float64 { return nodes[i].pos[d] },
		func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
	n := nodes[m]
	n.left = t.balance(nodes[:m], depth+1)
	n.right = t.balance(nodes[m+1:], depth+1)
	return n
}

func (t *Tree[T]) checkLen(name string, v []float64) {
	if len(v) != t.dims {
		panic(fmt.Sprintf("kdtree: %s has %d coordinates, tree has %d", name, len(v), t.dims))
	}
}

// Nearest returns the item closest to q and its distance. Among items at
// the minimal distance it returns the first one the search reaches. ok is
// false when the tree is empty.
func (t *Tree[T]) Nearest(q []float64) (item T, dist float64, ok bool) {
	t.checkLen("query", q)
	s := treeSearch[T]{q: q, dims: t.dims, m: t.metric, dist: math.Inf(1)}
	s.visit(t.root, 0)
	return s.result()
}

// ApproxNearest descends greedily towards q, checking every node on the
// path, then explores at most nodeLimit of the skipped branches in order of
// their lower bound. The result is never worse than the greedy descent
// alone and is exact once nodeLimit reaches Size.
func (t *Tree[T]) ApproxNearest(q []float64, nodeLimit int) (item T, dist float64, ok bool) {
	t.checkLen("query", q)
	s := treeSearch[T]{q: q, dims: t.dims, m: t.metric, dist: math.Inf(1)}
	t.queue = t.queue[:0]
	s.descend(t.root, 0, &t.queue)
	for i := 0; i < nodeLimit && t.queue.Len() > 0; i++ {
		b := heap.Pop(&t.queue).(branch[T])
		if b.bound >= s.dist {
			break
		}
		s.descend(b.node, b.depth, &t.queue)
	}
	return s.result()
}

// RangeGet returns the items whose positions lie inside the closed box
// [lo, hi] on every axis, in no particular order.
func (t *Tree[T]) RangeGet(lo, hi []float64) []T {
	t.checkLen("lo", lo)
	t.checkLen("hi", hi)
	var out []T
	var walk func(n *node[T], depth int)
	walk = func(n *node[T], depth int) {
		if n == nil {
			return
		}
		if inBox(n.pos, lo, hi) {
			out = append(out, n.item)
		}
		d := depth % t.dims
		if lo[d] <= n.pos[d] {
			walk(n.left, depth+1)
		}
		if hi[d] >= n.pos[d] {
			walk(n.right, depth+1)
		}
	}
	walk(t.root, 0)
	return out
}

func inBox(p, lo, hi []float64) bool {
	for d, v := range p {
		if v < lo[d] || v > hi[d] {
			return false
		}
	}
	return true
}

type treeSearch[T any] struct {
	q    []float64
	dims int
	m    Metric
	best *node[T]
	dist float64 // reduced
}

func (s *treeSearch[T]) consider(n *node[T]) {
	if r := s.m.Reduced(n.pos, s.q); r < s.dist {
		s.best, s.dist = n, r
	}
}

func (s *treeSearch[T]) visit(n *node[T], depth int) {
	if n == nil {
		return
	}
	d := depth % s.dims
	gap := s.q[d] - n.pos[d]
	near, far := n.left, n.right
	if gap >= 0 {
		near, far = far, near
	}
	s.visit(near, depth+1)
	s.consider(n)
	if s.m.AxisReduced(gap) < s.dist {
		s.visit(far, depth+1)
	}
}

func (s *treeSearch[T]) descend(n *node[T], depth int, h *branchHeap[T]) {
	for ; n != nil; depth++ {
		s.consider(n)
		d := depth % s.dims
		gap := s.q[d] - n.pos[d]
		near, far := n.left, n.right
		if gap >= 0 {
			near, far = far, near
		}
		if far != nil {
			heap.Push(h, branch[T]{bound: s.m.AxisReduced(gap), depth: depth + 1, node: far})
		}
		n = near
	}
}

func (s *treeSearch[T]) result() (item T, dist float64, ok bool) {
	if s.best == nil {
		return item, math.Inf(1), false
	}
	return s.best.item, s.m.FromReduced(s.dist), true
}
