// Package encoding converts between the document's on-disk string
// representations and Unicode. Legacy Pascal strings are 8-bit text in a
// platform code page and are decoded at the boundary; everything past it
// handles plain Go strings.
package encoding

import (
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Codepage identifies the legacy 8-bit code page of a Pascal string.
// Windows writers use Windows-1252, Mac writers MacRoman.
type Codepage int

const (
	// Windows1252 is the Windows legacy code page.
	Windows1252 Codepage = iota
	// MacRoman is the classic Mac OS legacy code page.
	MacRoman
)

func (c Codepage) charmap() *charmap.Charmap {
	if c == MacRoman {
		return charmap.Macintosh
	}
	return charmap.Windows1252
}

// DecodeLegacy decodes code-page bytes to a Unicode string.
func DecodeLegacy(raw []byte, cp Codepage) (string, error) {
	out, err := cp.charmap().NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("legacy string decode: %w", err)
	}
	return string(out), nil
}

// EncodeLegacy encodes a Unicode string into code-page bytes. Runes the
// code page cannot represent are replaced with its substitute byte.
func EncodeLegacy(s string, cp Codepage) ([]byte, error) {
	enc := encoding.ReplaceUnsupported(cp.charmap().NewEncoder())
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("legacy string encode: %w", err)
	}
	return out, nil
}

// ReadPascal reads a Pascal string from the file cursor: a 1-byte length,
// that many payload bytes, then padding so the total is a multiple of
// padTo. Returns the decoded string and the number of bytes consumed.
func ReadPascal(f *fileio.File, padTo uint64, cp Codepage) (string, uint64, error) {
	length, err := fileio.ReadScalar[uint8](f)
	if err != nil {
		return "", 0, err
	}
	raw, err := fileio.ReadBytes(f, uint64(length))
	if err != nil {
		return "", 0, err
	}
	total := fileio.RoundUpToMultiple(1+uint64(length), padTo)
	if pad := total - 1 - uint64(length); pad > 0 {
		if err := f.Skip(pad); err != nil {
			return "", 0, err
		}
	}
	s, err := DecodeLegacy(raw, cp)
	if err != nil {
		return "", 0, err
	}
	return s, total, nil
}

// WritePascal writes a Pascal string with the given padding rule.
func WritePascal(f *fileio.File, s string, padTo uint64, cp Codepage) error {
	raw, err := EncodeLegacy(s, cp)
	if err != nil {
		return err
	}
	if len(raw) > 255 {
		return fmt.Errorf("%w: pascal string of %d bytes exceeds the 255 byte limit", errdefs.ErrStructural, len(raw))
	}
	if err := fileio.WriteScalar(f, uint8(len(raw))); err != nil {
		return err
	}
	if err := f.Write(raw); err != nil {
		return err
	}
	total := fileio.RoundUpToMultiple(1+uint64(len(raw)), padTo)
	return f.WritePadding(total - 1 - uint64(len(raw)))
}

// PascalSize returns the padded on-disk size of a Pascal string.
func PascalSize(s string, padTo uint64, cp Codepage) (uint64, error) {
	raw, err := EncodeLegacy(s, cp)
	if err != nil {
		return 0, err
	}
	if len(raw) > 255 {
		return 0, fmt.Errorf("%w: pascal string of %d bytes exceeds the 255 byte limit", errdefs.ErrStructural, len(raw))
	}
	return fileio.RoundUpToMultiple(1+uint64(len(raw)), padTo), nil
}

// ReadUnicodeString reads a Photoshop Unicode string: a u32 count of
// UTF-16BE code units followed by the units themselves.
func ReadUnicodeString(f *fileio.File) (string, error) {
	count, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return "", err
	}
	units := make([]uint16, count)
	for i := range units {
		units[i], err = fileio.ReadScalar[uint16](f)
		if err != nil {
			return "", err
		}
	}
	// Writers commonly include a trailing NUL in the count; strip it.
	if n := len(units); n > 0 && units[n-1] == 0 {
		units = units[:n-1]
	}
	return string(utf16.Decode(units)), nil
}

// WriteUnicodeString writes a Photoshop Unicode string.
func WriteUnicodeString(f *fileio.File, s string) error {
	units := utf16.Encode([]rune(s))
	if err := fileio.WriteScalar(f, uint32(len(units))); err != nil {
		return err
	}
	for _, u := range units {
		if err := fileio.WriteScalar(f, u); err != nil {
			return err
		}
	}
	return nil
}

// UnicodeStringSize returns the on-disk size of a Unicode string.
func UnicodeStringSize(s string) uint64 {
	return 4 + 2*uint64(len(utf16.Encode([]rune(s))))
}
