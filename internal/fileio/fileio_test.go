package fileio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gopsd/psd/internal/errdefs"
)

// TestByteSwap tests the bulk swap against a scalar reference.
func TestByteSwap(t *testing.T) {
	tests := []struct {
		name     string
		elemSize int
		elems    int
	}{
		{name: "16-bit small", elemSize: 2, elems: 5},
		{name: "16-bit wide-loop", elemSize: 2, elems: 4096},
		{name: "16-bit odd tail", elemSize: 2, elems: 4099},
		{name: "32-bit small", elemSize: 4, elems: 3},
		{name: "32-bit wide-loop", elemSize: 4, elems: 4096},
		{name: "32-bit odd tail", elemSize: 4, elems: 4097},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, tt.elemSize*tt.elems)
			for i := range data {
				data[i] = byte(i*31 + 7)
			}

			want := make([]byte, len(data))
			for e := 0; e < tt.elems; e++ {
				for b := 0; b < tt.elemSize; b++ {
					want[e*tt.elemSize+b] = data[e*tt.elemSize+tt.elemSize-1-b]
				}
			}

			got := make([]byte, len(data))
			copy(got, data)
			ByteSwap(got, tt.elemSize, 4)
			if !bytes.Equal(got, want) {
				t.Error("ByteSwap mismatch against scalar reference")
			}

			// Swapping twice restores the input.
			ByteSwap(got, tt.elemSize, 4)
			if !bytes.Equal(got, data) {
				t.Error("ByteSwap is not an involution")
			}
		})
	}
}

// TestByteSwapParallelBlocks tests correctness across the parallel block
// boundary.
func TestByteSwapParallelBlocks(t *testing.T) {
	data := make([]byte, swapBlockSize*3+10)
	for i := range data {
		data[i] = byte(i)
	}
	serial := make([]byte, len(data))
	copy(serial, data)
	swapBlock(serial, 2)

	ByteSwap(data, 2, 8)
	if !bytes.Equal(data, serial) {
		t.Error("parallel swap differs from single-block swap")
	}
}

// TestReadScalar tests big-endian scalar decoding.
func TestReadScalar(t *testing.T) {
	raw := []byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0}
	f := NewReader(bytes.NewReader(raw), uint64(len(raw)))

	v16, err := ReadScalar[uint16](f)
	if err != nil {
		t.Fatalf("ReadScalar[uint16]: %v", err)
	}
	if v16 != 0x1234 {
		t.Errorf("uint16 = %#x, want 0x1234", v16)
	}

	v32, err := ReadScalar[uint32](f)
	if err != nil {
		t.Fatalf("ReadScalar[uint32]: %v", err)
	}
	if v32 != 0x56789ABC {
		t.Errorf("uint32 = %#x, want 0x56789abc", v32)
	}

	if f.Offset() != 6 {
		t.Errorf("offset = %d, want 6", f.Offset())
	}
}

// TestWriteScalarRoundTrip tests scalar encode/decode symmetry.
func TestWriteScalarRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)
	if err := WriteScalar(w, uint16(0xBEEF)); err != nil {
		t.Fatalf("WriteScalar: %v", err)
	}
	if err := WriteScalar(w, int32(-12345)); err != nil {
		t.Fatalf("WriteScalar: %v", err)
	}
	if err := WriteScalar(w, uint64(1<<40)); err != nil {
		t.Fatalf("WriteScalar: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()), uint64(buf.Len()))
	if v, _ := ReadScalar[uint16](r); v != 0xBEEF {
		t.Errorf("uint16 = %#x", v)
	}
	if v, _ := ReadScalar[int32](r); v != -12345 {
		t.Errorf("int32 = %d", v)
	}
	if v, _ := ReadScalar[uint64](r); v != 1<<40 {
		t.Errorf("uint64 = %d", v)
	}
}

// TestReadOverflow tests that reads past the recorded size fail.
func TestReadOverflow(t *testing.T) {
	f := NewReader(bytes.NewReader(make([]byte, 4)), 4)
	if err := f.Read(make([]byte, 8)); !errors.Is(err, errdefs.ErrIoOverflow) {
		t.Errorf("Read past size = %v, want ErrIoOverflow", err)
	}
	if err := f.SetOffset(5); !errors.Is(err, errdefs.ErrIoOverflow) {
		t.Errorf("SetOffset past size = %v, want ErrIoOverflow", err)
	}
	if err := f.ReadAt(make([]byte, 2), 3); !errors.Is(err, errdefs.ErrIoOverflow) {
		t.Errorf("ReadAt past size = %v, want ErrIoOverflow", err)
	}
}

// TestWriteOverflow tests the planned-size limit on writers.
func TestWriteOverflow(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriter(&buf, 4)
	if err := f.Write(make([]byte, 4)); err != nil {
		t.Fatalf("Write within plan: %v", err)
	}
	if err := f.Write([]byte{1}); !errors.Is(err, errdefs.ErrIoOverflow) {
		t.Errorf("Write past plan = %v, want ErrIoOverflow", err)
	}
}

// TestReadAtConcurrent tests the shared-read path from many goroutines.
func TestReadAtConcurrent(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	f := NewReader(bytes.NewReader(data), uint64(len(data)))

	done := make(chan error, 16)
	for g := 0; g < 16; g++ {
		go func(g int) {
			buf := make([]byte, 64)
			offset := uint64(g * 64)
			if err := f.ReadAt(buf, offset); err != nil {
				done <- err
				return
			}
			if buf[0] != byte(offset) {
				done <- errors.New("content mismatch")
				return
			}
			done <- nil
		}(g)
	}
	for g := 0; g < 16; g++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent ReadAt: %v", err)
		}
	}
}

// TestRoundUpToMultiple tests the padding helper.
func TestRoundUpToMultiple(t *testing.T) {
	tests := []struct {
		value, m, want uint64
	}{
		{0, 2, 0}, {1, 2, 2}, {2, 2, 2}, {3, 4, 4}, {8, 4, 8}, {9, 4, 12}, {5, 0, 5},
	}
	for _, tt := range tests {
		if got := RoundUpToMultiple(tt.value, tt.m); got != tt.want {
			t.Errorf("RoundUpToMultiple(%d, %d) = %d, want %d", tt.value, tt.m, got, tt.want)
		}
	}
}

// BenchmarkByteSwap16 measures the wide-loop swap.
func BenchmarkByteSwap16(b *testing.B) {
	data := make([]byte, 1<<20)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ByteSwap(data, 2, 0)
	}
}
