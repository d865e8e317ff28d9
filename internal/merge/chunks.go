package merge

import "iter"

// Chunks splits items into consecutive slices of size elements; the last
// chunk may be shorter. Chunks panics if size is not positive.
func Chunks[T any](items iter.Seq[T], size int) iter.Seq[[]T] {
	if size <= 0 {
		panic("merge: chunk size must be positive")
	}
	return func(yield func([]T) bool) {
		chunk := make([]T, 0, size)
		for v := range items {
			chunk = append(chunk, v)
			if len(chunk) == size {
				if !yield(chunk) {
					return
				}
				chunk = make([]T, 0, size)
			}
		}
		if len(chunk) > 0 {
			yield(chunk)
		}
	}
}
