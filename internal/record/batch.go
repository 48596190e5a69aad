package record

import "iter"

// DefaultBatchSize is used when a non-positive batch size is requested.
const DefaultBatchSize = 1000

// Batches yields contiguous slices of at most size rows, in order, together
// with their zero-based batch index. The slices share the backing array of
// rows.
func Batches(rows []Row, size int) iter.Seq2[int, []Row] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return func(yield func(int, []Row) bool) {
		for i, start := 0, 0; start < len(rows); i, start = i+1, start+size {
			end := min(start+size, len(rows))
			if !yield(i, rows[start:end]) {
				return
			}
		}
	}
}

// BatchCount returns how many batches Batches yields for n rows.
func BatchCount(n, size int) int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
