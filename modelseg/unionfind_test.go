package modelseg

import "testing"

func TestNewUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	for i := 0; i < 5; i++ {
		if root := uf.find(i); root != i {
			t.Errorf("find(%d) = %d, want %d", i, root, i)
		}
		if uf.size[i] != 1 {
			t.Errorf("size[%d] = %d, want 1", i, uf.size[i])
		}
	}
}

func TestUnionFind_MultipleUnions(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(0, 1)
	uf.union(1, 2)
	uf.union(3, 4)
	uf.union(4, 5)

	if uf.find(0) != uf.find(2) {
		t.Error("0 and 2 should be in same set")
	}
	if uf.find(3) != uf.find(5) {
		t.Error("3 and 5 should be in same set")
	}
	if uf.find(0) == uf.find(3) {
		t.Error("0 and 3 should be in different sets")
	}

	uf.union(2, 4)
	root := uf.find(0)
	for i := 1; i < 6; i++ {
		if uf.find(i) != root {
			t.Errorf("after full union, find(%d) != find(0)", i)
		}
	}
	if uf.size[root] != 6 {
		t.Errorf("size of root = %d, want 6", uf.size[root])
	}
}

func TestUnionFind_PathCompression(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(uf.find(0), 2)
	uf.union(uf.find(0), 3)
	uf.union(uf.find(0), 4)

	root := uf.find(4)
	if uf.parent[4] != -1 && uf.parent[4] != root {
		t.Errorf("after find(4), parent[4] = %d, want root %d", uf.parent[4], root)
	}
}

func TestUnionFind_UnionBySize(t *testing.T) {
	uf := newUnionFind(4)
	uf.union(0, 1)
	uf.union(0, 2)
	bigRoot := uf.find(0)

	uf.union(3, 0)
	if newRoot := uf.find(3); newRoot != bigRoot {
		t.Errorf("small tree should attach to big root %d, got root %d", bigRoot, newRoot)
	}
}
