// Package field provides typed 2D grid views used by the stereo and
// segmentation algorithms. A Field never owns more than the slice it wraps;
// callers hand in their storage and the algorithms read or write through it.
package field

import "fmt"

// Field is a row-major 2D view over caller-owned storage.
type Field[T any] struct {
	data   []T
	width  int
	height int
}

// New allocates a zeroed width×height field.
func New[T any](width, height int) *Field[T] {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("field: negative size %dx%d", width, height))
	}
	return &Field[T]{data: make([]T, width*height), width: width, height: height}
}

// Wrap creates a field over existing row-major data. Panics if data is too
// short for the requested size.
func Wrap[T any](data []T, width, height int) *Field[T] {
	if width < 0 || height < 0 || len(data) < width*height {
		panic(fmt.Sprintf("field: cannot wrap %d values as %dx%d", len(data), width, height))
	}
	return &Field[T]{data: data[:width*height], width: width, height: height}
}

// Width returns the x extent.
func (f *Field[T]) Width() int { return f.width }

// Height returns the y extent.
func (f *Field[T]) Height() int { return f.height }

// Size returns the extent of dimension dim (0 = x, 1 = y).
func (f *Field[T]) Size(dim int) int {
	switch dim {
	case 0:
		return f.width
	case 1:
		return f.height
	default:
		return 1
	}
}

// In reports whether (x, y) is inside the field.
func (f *Field[T]) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.width && y < f.height
}

// Get returns the value at (x, y).
func (f *Field[T]) Get(x, y int) T { return f.data[y*f.width+x] }

// Set stores v at (x, y).
func (f *Field[T]) Set(x, y int, v T) { f.data[y*f.width+x] = v }

// At returns a pointer to the value at (x, y).
func (f *Field[T]) At(x, y int) *T { return &f.data[y*f.width+x] }

// Data returns the backing row-major slice.
func (f *Field[T]) Data() []T { return f.data }

// Fill sets every cell to v.
func (f *Field[T]) Fill(v T) {
	for i := range f.data {
		f.data[i] = v
	}
}

// Clone returns a deep copy of the field.
func (f *Field[T]) Clone() *Field[T] {
	out := New[T](f.width, f.height)
	copy(out.data, f.data)
	return out
}

// Mask is a boolean field; true marks a usable cell.
type Mask = Field[bool]

// Valid reports whether (x, y) is usable under m. A nil mask allows everything.
func Valid(m *Mask, x, y int) bool {
	return m == nil || m.Get(x, y)
}

// HalfSize returns the ceil-halved dimension used by every pyramid level.
func HalfSize(n int) int { return n/2 + n&1 }

// Downsample builds the next coarser mask by OR-reducing 2×2 blocks.
// Blocks hanging off the right or bottom edge only consider the cells that
// exist. A nil mask downsamples to nil.
func Downsample(m *Mask) *Mask {
	if m == nil {
		return nil
	}
	out := New[bool](HalfSize(m.width), HalfSize(m.height))
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			fx, fy := x*2, y*2
			okX := fx+1 < m.width
			okY := fy+1 < m.height
			v := m.Get(fx, fy)
			if okX {
				v = v || m.Get(fx+1, fy)
			}
			if okY {
				v = v || m.Get(fx, fy+1)
			}
			if okX && okY {
				v = v || m.Get(fx+1, fy+1)
			}
			out.Set(x, y, v)
		}
	}
	return out
}
