package fn

import "iter"

// Map applies f to each element.
func Map[T, U any](items []T, f func(T) U) []U {
	out := make([]U, len(items))
	for i, v := range items {
		out[i] = f(v)
	}
	return out
}

// Filter returns elements where pred is true.
func Filter[T any](items []T, pred func(T) bool) []T {
	var out []T
	for _, v := range items {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// Chunk splits items into contiguous chunks of size n. Returns nil if n <= 0.
// The last chunk may be shorter; concatenating all chunks yields the input.
func Chunk[T any](items []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	var out [][]T
	for i := 0; i < len(items); i += n {
		out = append(out, items[i:min(i+n, len(items))])
	}
	return out
}

// ChunkSeq is the lazy form of Chunk: a restartable sequence of contiguous
// chunks of size n. Consumers may abandon iteration at any point.
func ChunkSeq[T any](items []T, n int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		if n <= 0 {
			return
		}
		for i := 0; i < len(items); i += n {
			if !yield(items[i:min(i+n, len(items))]) {
				return
			}
		}
	}
}
