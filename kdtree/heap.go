package kdtree

// branch is a subtree skipped during a greedy descent, keyed by a lower
// bound on the reduced distance from the query to anything inside it.
type branch[T any] struct {
	bound float64
	depth int
	node  *node[T]
}

// branchHeap is a min-heap of branches, nearest bound on top.
type branchHeap[T any] []branch[T]

func (h branchHeap[T]) Len() int           { return len(h) }
func (h branchHeap[T]) Less(i, j int) bool { return h[i].bound < h[j].bound }
func (h branchHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *branchHeap[T]) Push(x any)        { *h = append(*h, x.(branch[T])) }
func (h *branchHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
