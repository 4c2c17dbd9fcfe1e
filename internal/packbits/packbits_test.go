package packbits

import (
	"bytes"
	"testing"
)

// TestDecodeConformance tests the canonical PackBits example byte for
// byte.
func TestDecodeConformance(t *testing.T) {
	src := []byte{0xFE, 0xAA, 0x02, 0x80, 0x00, 0x2A, 0xFD, 0xAA, 0x03, 0x80, 0x00, 0x2A, 0x22, 0xF7, 0xAA}
	want := []byte{
		0xAA, 0xAA, 0xAA,
		0x80, 0x00, 0x2A,
		0xAA, 0xAA, 0xAA, 0xAA,
		0x80, 0x00, 0x2A, 0x22,
		0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA,
	}
	if len(want) != 24 {
		t.Fatalf("bad fixture: want length %d, expected 24", len(want))
	}

	dst := make([]byte, len(want))
	n, err := Decode(src, dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(want) {
		t.Fatalf("Decode produced %d bytes, want %d", n, len(want))
	}
	if !bytes.Equal(dst, want) {
		t.Errorf("Decode = % X, want % X", dst, want)
	}
}

// TestDecodeNoOpHeader tests that 0x80 headers are skipped.
func TestDecodeNoOpHeader(t *testing.T) {
	src := []byte{0x80, 0x80, 0x00, 0x42}
	dst := make([]byte, 1)
	if _, err := Decode(src, dst); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dst[0] != 0x42 {
		t.Errorf("dst[0] = %#x, want 0x42", dst[0])
	}
}

// TestDecodeTruncated tests error reporting for short input.
func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		dst  int
	}{
		{name: "literal run cut", src: []byte{0x05, 0x01}, dst: 6},
		{name: "repeat without byte", src: []byte{0xFE}, dst: 3},
		{name: "not enough output", src: []byte{0x00, 0x42}, dst: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.src, make([]byte, tt.dst)); err == nil {
				t.Error("Decode succeeded on truncated input")
			}
		})
	}
}

// TestEncodeRoundTrip tests encode/decode over representative scanlines.
func TestEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{name: "empty", src: []byte{}},
		{name: "single byte", src: []byte{7}},
		{name: "short run", src: []byte{1, 1, 1, 1}},
		{name: "alternating", src: []byte{1, 2, 1, 2, 1, 2}},
		{name: "long run", src: bytes.Repeat([]byte{9}, 300)},
		{name: "long literal", src: func() []byte {
			out := make([]byte, 300)
			for i := range out {
				out[i] = byte(i*7 + 3)
			}
			return out
		}()},
		{name: "run then literal", src: append(bytes.Repeat([]byte{0}, 64), 1, 2, 3, 4, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(nil, tt.src)
			dst := make([]byte, len(tt.src))
			if _, err := Decode(encoded, dst); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(dst, tt.src) {
				t.Errorf("round trip mismatch: got % X, want % X", dst, tt.src)
			}
		})
	}
}

// TestEncodeLiteralChunking tests that literal runs longer than 128
// bytes split into multiple chunks instead of overflowing the header.
func TestEncodeLiteralChunking(t *testing.T) {
	src := make([]byte, 200)
	for i := range src {
		src[i] = byte(i)
	}
	encoded := Encode(nil, src)
	if int8(encoded[0]) < 0 {
		t.Fatalf("first chunk is a repeat, want literal")
	}
	if n := int(encoded[0]) + 1; n > 128 {
		t.Errorf("first literal chunk holds %d bytes, limit is 128", n)
	}
}

// FuzzDecode exercises the decoder against arbitrary input.
func FuzzDecode(f *testing.F) {
	f.Add([]byte{0xFE, 0xAA, 0x02, 0x80, 0x00, 0x2A}, 6)
	f.Add([]byte{}, 0)
	f.Fuzz(func(t *testing.T, src []byte, size int) {
		if size < 0 || size > 1<<16 {
			t.Skip()
		}
		dst := make([]byte, size)
		// Must not panic; errors are fine.
		_, _ = Decode(src, dst)
	})
}
