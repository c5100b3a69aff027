// Package kdtree provides k-d trees for nearest-neighbour and range queries
// over low-dimensional positions.
//
// Tree is pointer-based and grows by Add, with Rebalance to restore median
// splits. It answers exact Nearest, budgeted ApproxNearest and box RangeGet
// queries. Inplace keeps items and positions in flat arrays addressed by
// stable indices and answers exact nearest queries under any Metric:
//
//	t := kdtree.NewInplace[float64](2, len(samples))
//	for i, s := range samples {
//		*t.Item(i) = s.value
//		t.SetPos(i, []float64{s.x, s.y})
//	}
//	t.Build()
//	i, dist := t.NearestEuc([]float64{x, y})
package kdtree
