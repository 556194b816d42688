// Package chunk splits sequences into fixed-size, order-preserving batches.
package chunk

import (
	"fmt"
	"iter"

	"github.com/cdtdelta/mft2es/internal/model"
)

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d: %w", size, model.ErrInvalidConfiguration)
	}
	return nil
}

// Chunks returns a lazy sequence of sub-slices of seq, each at most size long.
// Only the chunk being built is held in memory. The final chunk may be short;
// an empty seq yields nothing.
func Chunks[T any](size int, seq iter.Seq[T]) (iter.Seq[[]T], error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	return func(yield func([]T) bool) {
		piece := make([]T, 0, size)
		for item := range seq {
			piece = append(piece, item)
			if len(piece) == size {
				if !yield(piece) {
					return
				}
				piece = make([]T, 0, size)
			}
		}
		if len(piece) > 0 {
			yield(piece)
		}
	}, nil
}

// Slice splits items into chunks of at most size elements.
// The chunks share the backing array of items.
func Slice[T any](size int, items []T) ([][]T, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out, nil
}

// Pair holds the chunks found at the same position of two streams.
// OkLeft and OkRight report whether each stream still had a chunk there.
type Pair[L, R any] struct {
	Left    []L
	Right   []R
	OkLeft  bool
	OkRight bool
}

// Aligned reports whether both sides are present and equally long.
func (p Pair[L, R]) Aligned() bool {
	return p.OkLeft == p.OkRight && len(p.Left) == len(p.Right)
}

// Pull walks left and right in lock-step and yields their chunks pairwise.
// It ends once both streams are exhausted. When one side runs out first the
// remaining pairs have that side missing.
func Pull[L, R any](left iter.Seq[[]L], right iter.Seq[[]R]) iter.Seq[Pair[L, R]] {
	return func(yield func(Pair[L, R]) bool) {
		nextLeft, stopLeft := iter.Pull(left)
		defer stopLeft()
		nextRight, stopRight := iter.Pull(right)
		defer stopRight()
		for {
			var p Pair[L, R]
			p.Left, p.OkLeft = nextLeft()
			p.Right, p.OkRight = nextRight()
			if !p.OkLeft && !p.OkRight {
				return
			}
			if !yield(p) {
				return
			}
		}
	}
}
