package encoding

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// TestLegacyRoundTrip tests code-page encode/decode symmetry.
func TestLegacyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		cp   Codepage
	}{
		{name: "ascii windows", text: "Layer 1", cp: Windows1252},
		{name: "ascii mac", text: "Layer 1", cp: MacRoman},
		{name: "latin accents", text: "Arrière-plan", cp: Windows1252},
		{name: "euro sign", text: "Preis 5€", cp: Windows1252},
		{name: "empty", text: "", cp: Windows1252},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeLegacy(tt.text, tt.cp)
			if err != nil {
				t.Fatalf("EncodeLegacy: %v", err)
			}
			got, err := DecodeLegacy(raw, tt.cp)
			if err != nil {
				t.Fatalf("DecodeLegacy: %v", err)
			}
			if got != tt.text {
				t.Errorf("round trip = %q, want %q", got, tt.text)
			}
		})
	}
}

// TestDecodeWindows1252HighBytes tests the fixed-table decode of the
// non-ASCII range.
func TestDecodeWindows1252HighBytes(t *testing.T) {
	got, err := DecodeLegacy([]byte{0x80, 0xE9, 0xFC}, Windows1252)
	if err != nil {
		t.Fatalf("DecodeLegacy: %v", err)
	}
	if got != "€éü" {
		t.Errorf("DecodeLegacy = %q, want %q", got, "€éü")
	}
}

// TestPascalRoundTrip tests Pascal strings across padding rules.
func TestPascalRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		padTo uint64
	}{
		{name: "pad 1", text: "abc", padTo: 1},
		{name: "pad 2 odd payload", text: "ab", padTo: 2},
		{name: "pad 4", text: "layer", padTo: 4},
		{name: "empty pad 4", text: "", padTo: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := fileio.NewWriter(&buf, 0)
			if err := WritePascal(w, tt.text, tt.padTo, Windows1252); err != nil {
				t.Fatalf("WritePascal: %v", err)
			}
			if tt.padTo > 1 && uint64(buf.Len())%tt.padTo != 0 {
				t.Errorf("written size %d not a multiple of %d", buf.Len(), tt.padTo)
			}
			wantSize, err := PascalSize(tt.text, tt.padTo, Windows1252)
			if err != nil {
				t.Fatalf("PascalSize: %v", err)
			}
			if uint64(buf.Len()) != wantSize {
				t.Errorf("written %d bytes, PascalSize says %d", buf.Len(), wantSize)
			}

			r := fileio.NewReader(bytes.NewReader(buf.Bytes()), uint64(buf.Len()))
			got, consumed, err := ReadPascal(r, tt.padTo, Windows1252)
			if err != nil {
				t.Fatalf("ReadPascal: %v", err)
			}
			if got != tt.text {
				t.Errorf("round trip = %q, want %q", got, tt.text)
			}
			if consumed != wantSize {
				t.Errorf("consumed %d bytes, want %d", consumed, wantSize)
			}
		})
	}
}

// TestPascalOversize tests the 255-byte limit.
func TestPascalOversize(t *testing.T) {
	var buf bytes.Buffer
	w := fileio.NewWriter(&buf, 0)
	err := WritePascal(w, strings.Repeat("x", 300), 2, Windows1252)
	if !errors.Is(err, errdefs.ErrStructural) {
		t.Errorf("WritePascal oversize = %v, want ErrStructural", err)
	}
}

// TestUnicodeStringRoundTrip tests UTF-16BE string round trips,
// including astral-plane runes.
func TestUnicodeStringRoundTrip(t *testing.T) {
	tests := []string{"", "Layer 1", "Grüppe", "日本語レイヤー", "emoji 🎨 layer"}

	for _, text := range tests {
		var buf bytes.Buffer
		w := fileio.NewWriter(&buf, 0)
		if err := WriteUnicodeString(w, text); err != nil {
			t.Fatalf("WriteUnicodeString(%q): %v", text, err)
		}
		if got := uint64(buf.Len()); got != UnicodeStringSize(text) {
			t.Errorf("size of %q = %d, UnicodeStringSize says %d", text, got, UnicodeStringSize(text))
		}

		r := fileio.NewReader(bytes.NewReader(buf.Bytes()), uint64(buf.Len()))
		got, err := ReadUnicodeString(r)
		if err != nil {
			t.Fatalf("ReadUnicodeString(%q): %v", text, err)
		}
		if got != text {
			t.Errorf("round trip = %q, want %q", got, text)
		}
	}
}

// TestUnicodeStringTrailingNul tests that a counted trailing NUL is
// stripped on read.
func TestUnicodeStringTrailingNul(t *testing.T) {
	raw := []byte{0, 0, 0, 3, 0, 'H', 0, 'i', 0, 0}
	r := fileio.NewReader(bytes.NewReader(raw), uint64(len(raw)))
	got, err := ReadUnicodeString(r)
	if err != nil {
		t.Fatalf("ReadUnicodeString: %v", err)
	}
	if got != "Hi" {
		t.Errorf("ReadUnicodeString = %q, want %q", got, "Hi")
	}
}
