package format

import (
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// ColorModeData carries the section following the header: the palette for
// Indexed documents, the transfer tables for Duotone, empty otherwise.
// The payload is opaque to the engine and round-trips untouched.
type ColorModeData struct {
	Raw []byte
}

// ReadColorModeData reads the color mode data section.
func ReadColorModeData(f *fileio.File, mode ColorMode) (*ColorModeData, error) {
	length, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return &ColorModeData{}, nil
	}
	if mode == ColorModeIndexed && length != 768 {
		return nil, fmt.Errorf("%w: indexed color table of %d bytes, expected 768", errdefs.ErrStructural, length)
	}
	raw, err := fileio.ReadBytes(f, uint64(length))
	if err != nil {
		return nil, err
	}
	return &ColorModeData{Raw: raw}, nil
}

// Write writes the section with its length field, padded to 2 bytes.
func (c *ColorModeData) Write(f *fileio.File) error {
	padded := fileio.RoundUpToMultiple(uint64(len(c.Raw)), 2)
	if err := fileio.WriteScalar(f, uint32(padded)); err != nil {
		return err
	}
	if err := f.Write(c.Raw); err != nil {
		return err
	}
	return f.WritePadding(padded - uint64(len(c.Raw)))
}

// Size returns the on-disk size of the section including its length field.
func (c *ColorModeData) Size() uint64 {
	return 4 + fileio.RoundUpToMultiple(uint64(len(c.Raw)), 2)
}
