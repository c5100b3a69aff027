package kdtree

import "testing"

func TestEdge_AllPointsIdentical(t *testing.T) {
	pts := make([]point, 40)
	for i := range pts {
		pts[i] = point{id: i, p: []float64{1, 1}}
	}
	tr := New(2, pointAxis)
	tr.Build(pts)
	if _, d, _ := tr.Nearest([]float64{1, 1}); d != 0 {
		t.Errorf("Nearest dist = %v, want 0", d)
	}
	if got := tr.RangeGet([]float64{1, 1}, []float64{1, 1}); len(got) != 40 {
		t.Errorf("RangeGet on the shared point = %d items, want 40", len(got))
	}
	if got := tr.RangeGet([]float64{1.5, 0}, []float64{2, 2}); len(got) != 0 {
		t.Errorf("RangeGet beside the shared point = %d items, want 0", len(got))
	}

	in := fillInplace(pts, 2)
	if _, d := in.NearestMan([]float64{2, 3}); d != 3 {
		t.Errorf("NearestMan dist = %v, want 3", d)
	}
}

func TestEdge_SingleItem(t *testing.T) {
	tr := New(3, pointAxis)
	tr.Add(point{id: 7, p: []float64{1, 2, 3}})
	got, d, ok := tr.ApproxNearest([]float64{1, 2, 4}, 0)
	if !ok || got.id != 7 || d != 1 {
		t.Errorf("ApproxNearest = (%d, %v, %v), want (7, 1, true)", got.id, d, ok)
	}
	tr.Rebalance()
	if tr.Size() != 1 || tr.root == nil {
		t.Error("Rebalance of a single item lost it")
	}
}

func TestEdge_AddAfterBuild(t *testing.T) {
	tr := New(1, pointAxis)
	tr.Build([]point{{0, []float64{0}}, {1, []float64{10}}})
	tr.Add(point{id: 2, p: []float64{4}})
	if got, _, _ := tr.Nearest([]float64{5}); got.id != 2 {
		t.Errorf("Nearest = %d, want 2", got.id)
	}
	if tr.Size() != 3 {
		t.Errorf("Size = %d, want 3", tr.Size())
	}
}
