package chunk

import (
	"errors"
	"slices"
	"testing"

	"github.com/cdtdelta/mft2es/internal/model"
)

func collect[T any](t *testing.T, size int, items []T) [][]T {
	t.Helper()
	seq, err := Chunks(size, slices.Values(items))
	if err != nil {
		t.Fatalf("Chunks(%d) failed: %v", size, err)
	}
	var out [][]T
	for c := range seq {
		out = append(out, c)
	}
	return out
}

func TestChunks_ConcatenationReproducesInput(t *testing.T) {
	for n := 0; n <= 23; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		for size := 1; size <= 8; size++ {
			chunks := collect(t, size, items)

			var joined []int
			for i, c := range chunks {
				if len(c) > size {
					t.Fatalf("n=%d size=%d: chunk %d has %d items", n, size, i, len(c))
				}
				if len(c) == 0 {
					t.Fatalf("n=%d size=%d: empty chunk %d", n, size, i)
				}
				if i < len(chunks)-1 && len(c) != size {
					t.Fatalf("n=%d size=%d: only the last chunk may be short", n, size)
				}
				joined = append(joined, c...)
			}
			if !slices.Equal(joined, items) {
				t.Fatalf("n=%d size=%d: joined = %v, want %v", n, size, joined, items)
			}
		}
	}
}

func TestChunks_EmptyInput(t *testing.T) {
	if chunks := collect(t, 3, []string{}); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunks_ChunksAreIndependent(t *testing.T) {
	chunks := collect(t, 2, []int{1, 2, 3, 4})
	chunks[0][0] = 99
	if chunks[1][0] != 3 {
		t.Errorf("chunks share storage: %v", chunks)
	}
}

func TestChunks_StopsEarly(t *testing.T) {
	seq, err := Chunks(2, slices.Values([]int{1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for range seq {
		count++
		break
	}
	if count != 1 {
		t.Errorf("expected 1 chunk before break, got %d", count)
	}
}

func TestChunks_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := Chunks(size, slices.Values([]int{1})); !errors.Is(err, model.ErrInvalidConfiguration) {
			t.Errorf("Chunks(%d): expected ErrInvalidConfiguration, got %v", size, err)
		}
		if _, err := Slice(size, []int{1}); !errors.Is(err, model.ErrInvalidConfiguration) {
			t.Errorf("Slice(%d): expected ErrInvalidConfiguration, got %v", size, err)
		}
	}
}

func TestSlice(t *testing.T) {
	got, err := Slice(3, []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || len(got[0]) != 3 || len(got[1]) != 1 || got[1][0] != "d" {
		t.Errorf("Slice = %v", got)
	}

	// Appending to a chunk must not clobber the next one.
	got[0] = append(got[0], "x")
	if got[1][0] != "d" {
		t.Errorf("append to chunk 0 overwrote chunk 1: %v", got)
	}
}

func TestPull_LockStep(t *testing.T) {
	left, _ := Chunks(2, slices.Values([]int{1, 2, 3}))
	right, _ := Chunks(2, slices.Values([]string{"a", "b", "c"}))

	var pairs []Pair[int, string]
	for p := range Pull(left, right) {
		pairs = append(pairs, p)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	for i, p := range pairs {
		if !p.Aligned() {
			t.Errorf("pair %d not aligned: %+v", i, p)
		}
	}
	if !slices.Equal(pairs[1].Left, []int{3}) || !slices.Equal(pairs[1].Right, []string{"c"}) {
		t.Errorf("unexpected last pair: %+v", pairs[1])
	}
}

func TestPull_Mismatch(t *testing.T) {
	left, _ := Chunks(2, slices.Values([]int{1, 2, 3}))
	right, _ := Chunks(2, slices.Values([]int{1, 2}))

	var pairs []Pair[int, int]
	for p := range Pull(left, right) {
		pairs = append(pairs, p)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if !pairs[0].Aligned() {
		t.Errorf("first pair should be aligned: %+v", pairs[0])
	}
	last := pairs[1]
	if last.Aligned() || !last.OkLeft || last.OkRight {
		t.Errorf("expected right side missing, got %+v", last)
	}
}

func TestPull_BothEmpty(t *testing.T) {
	left, _ := Chunks(2, slices.Values([]int{}))
	right, _ := Chunks(2, slices.Values([]int{}))
	for p := range Pull(left, right) {
		t.Errorf("unexpected pair %+v", p)
	}
}
