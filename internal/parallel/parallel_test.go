package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

// TestForEachCoversAllIndices tests that every index runs exactly once.
func TestForEachCoversAllIndices(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		workers int
	}{
		{name: "empty", n: 0, workers: 4},
		{name: "serial", n: 10, workers: 1},
		{name: "small parallel", n: 10, workers: 4},
		{name: "large parallel", n: 10000, workers: 8},
		{name: "more workers than work", n: 3, workers: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := make([]atomic.Int32, tt.n)
			ForEach(tt.n, tt.workers, func(i int) {
				counts[i].Add(1)
			})
			for i := range counts {
				if got := counts[i].Load(); got != 1 {
					t.Fatalf("index %d ran %d times", i, got)
				}
			}
		})
	}
}

// TestForEachErrFirstError tests that one error surfaces and all work
// still completes.
func TestForEachErrFirstError(t *testing.T) {
	wantErr := errors.New("boom")
	var ran atomic.Int32
	err := ForEachErr(100, 4, func(i int) error {
		ran.Add(1)
		if i == 37 {
			return wantErr
		}
		return nil
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("ForEachErr = %v, want %v", err, wantErr)
	}
	if ran.Load() != 100 {
		t.Errorf("ran %d of 100 items", ran.Load())
	}
}

// TestWorkers tests the default resolution.
func TestWorkers(t *testing.T) {
	if got := Workers(3); got != 3 {
		t.Errorf("Workers(3) = %d", got)
	}
	if got := Workers(0); got < 1 {
		t.Errorf("Workers(0) = %d", got)
	}
}
