package kdtree

import (
	"math/rand"
	"slices"
	"testing"
)

func TestQuickselect_PartitionsAroundRank(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{1, 2, 3, 4, 7, 16, 33, 100} {
		for _, distinct := range []int{2, 5, 1000} {
			for trial := 0; trial < 5; trial++ {
				base := make([]float64, n)
				for i := range base {
					base[i] = float64(rng.Intn(distinct))
				}
				for k := 0; k < n; k++ {
					v := append([]float64(nil), base...)
					quickselect(0, n-1, k,
						func(i int) float64 { return v[i] },
						func(i, j int) { v[i], v[j] = v[j], v[i] })
					checkPartition(t, base, v, k)
				}
			}
		}
	}
}

func TestQuickselect_SubRange(t *testing.T) {
	v := []float64{9, 5, 4, 3, 2, 1, 9}
	quickselect(1, 5, 3,
		func(i int) float64 { return v[i] },
		func(i, j int) { v[i], v[j] = v[j], v[i] })
	if v[0] != 9 || v[6] != 9 {
		t.Errorf("elements outside the range moved: %v", v)
	}
	if v[3] != 3 {
		t.Errorf("v[3] = %v, want 3", v[3])
	}
}

func TestQuickselect_DuplicateKeysLinear(t *testing.T) {
	const n = 20000
	for _, distinct := range []int{1, 2, 3} {
		v := make([]float64, n)
		for i := range v {
			v[i] = float64(i % distinct)
		}
		calls := 0
		quickselect(0, n-1, n/2,
			func(i int) float64 { calls++; return v[i] },
			func(i, j int) { v[i], v[j] = v[j], v[i] })
		if calls > 10*n {
			t.Errorf("%d distinct keys: %d key reads for %d items", distinct, calls, n)
		}
		sorted := slices.Clone(v)
		slices.Sort(sorted)
		if v[n/2] != sorted[n/2] {
			t.Errorf("%d distinct keys: v[%d] = %v, want %v", distinct, n/2, v[n/2], sorted[n/2])
		}
	}
}

func checkPartition(t *testing.T, before, after []float64, k int) {
	t.Helper()
	counts := make(map[float64]int)
	for _, x := range before {
		counts[x]++
	}
	for _, x := range after {
		counts[x]--
	}
	for x, c := range counts {
		if c != 0 {
			t.Fatalf("value %v count changed by %d", x, -c)
		}
	}
	for i, x := range after {
		if i < k && x > after[k] || i > k && x < after[k] {
			t.Fatalf("k=%d: after[%d]=%v breaks partition around %v: %v", k, i, x, after[k], after)
		}
	}
}
