package chunk

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gopsd/psd/internal/errdefs"
)

// makeData builds a compressible buffer of the given size.
func makeData(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i / 64)
	}
	return out
}

// TestStoreMetadata tests the O(1) size bookkeeping.
func TestStoreMetadata(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		blockSize  int
		wantChunks int
	}{
		{name: "empty", size: 0, blockSize: 16, wantChunks: 0},
		{name: "single partial chunk", size: 10, blockSize: 16, wantChunks: 1},
		{name: "exact chunks", size: 64, blockSize: 16, wantChunks: 4},
		{name: "trailing partial", size: 70, blockSize: 16, wantChunks: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(makeData(tt.size), tt.blockSize, 1)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := s.OriginalSize(); got != tt.size {
				t.Errorf("OriginalSize = %d, want %d", got, tt.size)
			}
			if got := s.NumChunks(); got != tt.wantChunks {
				t.Errorf("NumChunks = %d, want %d", got, tt.wantChunks)
			}
		})
	}
}

// TestGetChunkRandomAccess tests per-chunk extraction without touching
// the other chunks.
func TestGetChunkRandomAccess(t *testing.T) {
	data := makeData(1000)
	s, err := New(data, 256, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Read the chunks out of order.
	for _, idx := range []int{3, 0, 2, 1} {
		size, err := s.ChunkSize(idx)
		if err != nil {
			t.Fatalf("ChunkSize(%d): %v", idx, err)
		}
		dst := make([]byte, size)
		if err := s.GetChunk(dst, idx); err != nil {
			t.Fatalf("GetChunk(%d): %v", idx, err)
		}
		start := idx * 256
		if !bytes.Equal(dst, data[start:start+size]) {
			t.Errorf("chunk %d content mismatch", idx)
		}
	}
}

// TestGetChunkSizeMismatch tests the destination size contract.
func TestGetChunkSizeMismatch(t *testing.T) {
	s, err := New(makeData(100), 64, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = s.GetChunk(make([]byte, 10), 0)
	if !errors.Is(err, errdefs.ErrInvalidArgument) {
		t.Errorf("GetChunk with wrong size = %v, want ErrInvalidArgument", err)
	}
}

// TestDecodeRepeatable tests that Decode leaves the store intact.
func TestDecodeRepeatable(t *testing.T) {
	data := makeData(500)
	s, err := New(data, 128, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 2; i++ {
		out, err := s.Decode(1)
		if err != nil {
			t.Fatalf("Decode #%d: %v", i+1, err)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("Decode #%d content mismatch", i+1)
		}
	}
}

// TestExtractMoveOut tests the move-out semantics: the first extract
// succeeds, the second fails with ErrAlreadyExtracted.
func TestExtractMoveOut(t *testing.T) {
	data := makeData(300)
	s, err := New(data, 128, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out, err := s.Extract(1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("Extract content mismatch")
	}
	if !s.Extracted() {
		t.Error("store not marked extracted")
	}

	if _, err := s.Extract(1); !errors.Is(err, errdefs.ErrAlreadyExtracted) {
		t.Errorf("second Extract = %v, want ErrAlreadyExtracted", err)
	}
	if _, err := s.Decode(1); !errors.Is(err, errdefs.ErrAlreadyExtracted) {
		t.Errorf("Decode after Extract = %v, want ErrAlreadyExtracted", err)
	}
}

// TestCloneIndependentExtraction tests that clones track their own
// extraction state over shared blocks.
func TestCloneIndependentExtraction(t *testing.T) {
	data := makeData(300)
	s, err := New(data, 128, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clone := s.Clone()

	if _, err := s.Extract(1); err != nil {
		t.Fatalf("Extract original: %v", err)
	}
	out, err := clone.Extract(1)
	if err != nil {
		t.Fatalf("Extract clone: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("clone content mismatch after original extraction")
	}
}

// TestIncompressibleChunks tests that high-entropy data still round
// trips through the raw-block path.
func TestIncompressibleChunks(t *testing.T) {
	data := make([]byte, 4096)
	state := uint32(0x12345678)
	for i := range data {
		state = state*1664525 + 1013904223
		data[i] = byte(state >> 24)
	}
	s, err := New(data, 1024, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := s.Decode(1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("incompressible data round trip mismatch")
	}
}
