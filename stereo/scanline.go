package stereo

// scanlines stores a variable number of values per pixel, packed row by row.
// Row y holds the values of pixel x in data[index[x]:index[x+1]].
type scanlines[T any] struct {
	width int
	rows  []scanline[T]
}

type scanline[T any] struct {
	index []int32
	data  []T
}

func newScanlines[T any](width, height int) *scanlines[T] {
	return &scanlines[T]{width: width, rows: make([]scanline[T], height)}
}

// buildRow fills row y by calling emit for every x in turn. emit appends the
// values of pixel x to data and returns it. Rows are independent, so
// different rows may be built concurrently.
func (s *scanlines[T]) buildRow(y int, emit func(x int, data []T) []T) {
	r := &s.rows[y]
	r.index = make([]int32, s.width+1)
	r.data = r.data[:0]
	for x := 0; x < s.width; x++ {
		r.data = emit(x, r.data)
		r.index[x+1] = int32(len(r.data))
	}
}

func (s *scanlines[T]) size(x, y int) int {
	r := &s.rows[y]
	return int(r.index[x+1] - r.index[x])
}

func (s *scanlines[T]) at(x, y, i int) *T {
	r := &s.rows[y]
	return &r.data[int(r.index[x])+i]
}

func (s *scanlines[T]) height() int { return len(s.rows) }
