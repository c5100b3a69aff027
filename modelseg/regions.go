package modelseg

import "github.com/TrevorS/cyclops/field"

// Regions labels the 4-connected regions of equal model in a finished
// segmentation. Labels run from 0 in scan order of each region's first
// pixel; pixels without a model get -1. It returns the label field and the
// number of regions.
func Regions(s *ModelSeg) (*field.Field[int], int) {
	w, h := s.width, s.height
	uf := newUnionFind(w * h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := s.Model(x, y)
			if m == NoModel {
				continue
			}
			if x+1 < w && s.Model(x+1, y) == m {
				uf.union(y*w+x, y*w+x+1)
			}
			if y+1 < h && s.Model(x, y+1) == m {
				uf.union(y*w+x, (y+1)*w+x)
			}
		}
	}

	labels := field.New[int](w, h)
	byRoot := make(map[int]int)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if s.Masked(x, y) {
				labels.Set(x, y, -1)
				continue
			}
			root := uf.find(y*w + x)
			l, ok := byRoot[root]
			if !ok {
				l = len(byRoot)
				byRoot[root] = l
			}
			labels.Set(x, y, l)
		}
	}
	return labels, len(byRoot)
}
