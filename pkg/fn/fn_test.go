package fn

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestChunkRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		n      int
		size   int
		chunks int
	}{
		{"even split", 10, 5, 2},
		{"short tail", 10, 3, 4},
		{"single chunk", 3, 10, 1},
		{"empty input", 0, 4, 0},
		{"chunk of one", 4, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}
			chunks := Chunk(items, tt.size)
			if len(chunks) != tt.chunks {
				t.Fatalf("got %d chunks, want %d", len(chunks), tt.chunks)
			}
			var joined []int
			for _, c := range chunks {
				joined = append(joined, c...)
			}
			if len(joined) != tt.n {
				t.Fatalf("round trip lost elements: got %d, want %d", len(joined), tt.n)
			}
			for i, v := range joined {
				if v != i {
					t.Errorf("element %d = %d, want %d", i, v, i)
				}
			}
		})
	}
}

func TestChunkInvalidSize(t *testing.T) {
	if got := Chunk([]int{1, 2, 3}, 0); got != nil {
		t.Errorf("Chunk with size 0 = %v, want nil", got)
	}
	if got := Chunk([]int{1, 2, 3}, -1); got != nil {
		t.Errorf("Chunk with negative size = %v, want nil", got)
	}
}

func TestChunkSeqAbandonAndRestart(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	seq := ChunkSeq(items, 3)

	// Abandon after the first chunk.
	var first [][]int
	for c := range seq {
		first = append(first, c)
		break
	}
	if len(first) != 1 || len(first[0]) != 3 {
		t.Fatalf("partial iteration got %v", first)
	}

	// The same sequence restarts from the beginning.
	var all [][]int
	for c := range seq {
		all = append(all, c)
	}
	if len(all) != 3 {
		t.Fatalf("restart got %d chunks, want 3", len(all))
	}
	if len(all[2]) != 1 || all[2][0] != 7 {
		t.Errorf("last chunk = %v, want [7]", all[2])
	}
}

func TestParMapPreservesOrder(t *testing.T) {
	items := make([]int, 100)
	for i := range items {
		items[i] = i
	}
	out := ParMap(items, 8, func(v int) int { return v * 2 })
	for i, v := range out {
		if v != i*2 {
			t.Fatalf("out[%d] = %d, want %d", i, v, i*2)
		}
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	result := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("transient"))
		}
		return Ok(42)
	})
	v, err := result.Unwrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || attempts != 3 {
		t.Errorf("got v=%d attempts=%d, want v=42 attempts=3", v, attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond}
	result := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		return Err[int](fmt.Errorf("attempt %d", attempts))
	})
	_, err := result.Unwrap()
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}
	result := Retry(ctx, opts, func(context.Context) Result[int] {
		return Err[int](errors.New("always"))
	})
	_, err := result.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestThenShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	first := func(context.Context, int) Result[int] { return Err[int](boom) }
	called := false
	second := func(_ context.Context, v int) Result[string] {
		called = true
		return Ok(fmt.Sprint(v))
	}
	_, err := Then(first, second)(context.Background(), 1).Unwrap()
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if called {
		t.Error("second stage ran after first stage failed")
	}
}
