// Package format implements the on-disk structure of PSD and PSB
// documents: the file header, color mode data, image resources, the
// layer-and-mask information section with its layer records and tagged
// blocks, and the merged image data. It deals purely in wire-level types;
// the root psd package maps them to and from the layered document model.
package format

import (
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Version discriminates the 32-bit PSD container from the 64-bit PSB one.
type Version uint16

const (
	// VersionPSD is the classic format with 32-bit section lengths.
	VersionPSD Version = 1
	// VersionPSB is the big variant with 64-bit section lengths and
	// raised dimensional limits.
	VersionPSB Version = 2
)

// String returns the conventional file extension for the version.
func (v Version) String() string {
	if v == VersionPSB {
		return "psb"
	}
	return "psd"
}

// MaxDimension returns the inclusive width/height limit of the version.
func (v Version) MaxDimension() uint32 {
	if v == VersionPSB {
		return 300000
	}
	return 30000
}

// ReadSectionLength reads a section length field: u32 in PSD, u64 in PSB.
func (v Version) ReadSectionLength(f *fileio.File) (uint64, error) {
	if v == VersionPSB {
		return fileio.ReadScalar[uint64](f)
	}
	l, err := fileio.ReadScalar[uint32](f)
	return uint64(l), err
}

// WriteSectionLength writes a section length field in the version's width.
func (v Version) WriteSectionLength(f *fileio.File, length uint64) error {
	if v == VersionPSB {
		return fileio.WriteScalar(f, length)
	}
	if length > 0xffffffff {
		return fmt.Errorf("%w: section length %d exceeds the 32-bit field", errdefs.ErrIoOverflow, length)
	}
	return fileio.WriteScalar(f, uint32(length))
}

// SectionLengthSize returns the byte width of a section length field.
func (v Version) SectionLengthSize() uint64 {
	if v == VersionPSB {
		return 8
	}
	return 4
}
