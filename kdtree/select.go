package kdtree

// quickselect reorders positions lo..hi (inclusive) so that position k holds
// the element of rank k-lo by key, every position before k has a key no
// greater and every position after has a key no smaller. Pivots are the
// median of the first, centre and last keys. Keys equal to the pivot are
// gathered into one band, so runs of duplicates cost a single pass.
func quickselect(lo, hi, k int, key func(i int) float64, swap func(i, j int)) {
	for lo < hi {
		mid := (lo + hi) / 2
		if key(mid) < key(lo) {
			swap(mid, lo)
		}
		if key(hi) < key(lo) {
			swap(hi, lo)
		}
		if key(hi) < key(mid) {
			swap(hi, mid)
		}
		pivot := key(mid)

		// [lo, lt) < pivot, [lt, i) == pivot, (gt, hi] > pivot.
		lt, i, gt := lo, lo, hi
		for i <= gt {
			v := key(i)
			switch {
			case v < pivot:
				swap(lt, i)
				lt++
				i++
			case v > pivot:
				swap(i, gt)
				gt--
			default:
				i++
			}
		}

		switch {
		case k < lt:
			hi = lt - 1
		case k > gt:
			lo = gt + 1
		default:
			return
		}
	}
}
