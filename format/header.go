package format

import (
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// ColorMode is the document color mode as stored in the header.
type ColorMode uint16

// Color modes in header order.
const (
	ColorModeBitmap       ColorMode = 0
	ColorModeGrayscale    ColorMode = 1
	ColorModeIndexed      ColorMode = 2
	ColorModeRGB          ColorMode = 3
	ColorModeCMYK         ColorMode = 4
	ColorModeMultichannel ColorMode = 7
	ColorModeDuotone      ColorMode = 8
	ColorModeLab          ColorMode = 9
)

// String returns the color mode name.
func (m ColorMode) String() string {
	switch m {
	case ColorModeBitmap:
		return "Bitmap"
	case ColorModeGrayscale:
		return "Grayscale"
	case ColorModeIndexed:
		return "Indexed"
	case ColorModeRGB:
		return "RGB"
	case ColorModeCMYK:
		return "CMYK"
	case ColorModeMultichannel:
		return "Multichannel"
	case ColorModeDuotone:
		return "Duotone"
	case ColorModeLab:
		return "Lab"
	default:
		return "Unknown"
	}
}

// ColorChannels returns the number of color channels the mode implies, or
// zero when the count is not fixed by the mode.
func (m ColorMode) ColorChannels() int {
	switch m {
	case ColorModeBitmap, ColorModeGrayscale, ColorModeIndexed, ColorModeDuotone:
		return 1
	case ColorModeRGB, ColorModeLab:
		return 3
	case ColorModeCMYK:
		return 4
	default:
		return 0
	}
}

// headerSize is the fixed byte size of the file header.
const headerSize = 26

// FileHeader is the 26-byte fixed header opening every document.
type FileHeader struct {
	Version   Version
	Channels  uint16
	Height    uint32
	Width     uint32
	Depth     uint16
	ColorMode ColorMode
}

// Validate checks the header fields against the format limits.
func (h *FileHeader) Validate() error {
	if h.Version != VersionPSD && h.Version != VersionPSB {
		return fmt.Errorf("%w: header version %d", errdefs.ErrStructural, h.Version)
	}
	if h.Channels < 1 || h.Channels > 56 {
		return fmt.Errorf("%w: channel count %d outside [1, 56]", errdefs.ErrStructural, h.Channels)
	}
	limit := h.Version.MaxDimension()
	if h.Width < 1 || h.Width > limit {
		return fmt.Errorf("%w: width %d outside [1, %d]", errdefs.ErrStructural, h.Width, limit)
	}
	if h.Height < 1 || h.Height > limit {
		return fmt.Errorf("%w: height %d outside [1, %d]", errdefs.ErrStructural, h.Height, limit)
	}
	switch h.Depth {
	case 1, 8, 16, 32:
	default:
		return fmt.Errorf("%w: bit depth %d", errdefs.ErrStructural, h.Depth)
	}
	switch h.ColorMode {
	case ColorModeBitmap, ColorModeGrayscale, ColorModeIndexed, ColorModeRGB,
		ColorModeCMYK, ColorModeMultichannel, ColorModeDuotone, ColorModeLab:
	default:
		return fmt.Errorf("%w: color mode %d", errdefs.ErrStructural, uint16(h.ColorMode))
	}
	return nil
}

// ReadFileHeader reads and validates the file header.
func ReadFileHeader(f *fileio.File) (*FileHeader, error) {
	if _, err := ExpectSignature(f, SigFile); err != nil {
		return nil, err
	}
	h := &FileHeader{}
	version, err := fileio.ReadScalar[uint16](f)
	if err != nil {
		return nil, err
	}
	h.Version = Version(version)
	if err := f.Skip(6); err != nil {
		return nil, err
	}
	if h.Channels, err = fileio.ReadScalar[uint16](f); err != nil {
		return nil, err
	}
	if h.Height, err = fileio.ReadScalar[uint32](f); err != nil {
		return nil, err
	}
	if h.Width, err = fileio.ReadScalar[uint32](f); err != nil {
		return nil, err
	}
	if h.Depth, err = fileio.ReadScalar[uint16](f); err != nil {
		return nil, err
	}
	mode, err := fileio.ReadScalar[uint16](f)
	if err != nil {
		return nil, err
	}
	h.ColorMode = ColorMode(mode)
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Write validates and writes the file header.
func (h *FileHeader) Write(f *fileio.File) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if err := WriteSignature(f, SigFile); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, uint16(h.Version)); err != nil {
		return err
	}
	if err := f.WritePadding(6); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, h.Channels); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, h.Height); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, h.Width); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, h.Depth); err != nil {
		return err
	}
	return fileio.WriteScalar(f, uint16(h.ColorMode))
}

// Size returns the on-disk size of the header.
func (h *FileHeader) Size() uint64 {
	return headerSize
}
