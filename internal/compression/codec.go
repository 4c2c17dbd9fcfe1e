// Package compression implements the four channel compression schemes of
// the document format: raw, PackBits RLE, Zlib and Zlib with per-scanline
// delta prediction.
//
// Codec payloads hold big-endian data on disk; Decode returns pixels in
// native byte order and Encode accepts them that way, performing the swap
// internally around the compression step.
package compression

import (
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Codec is the channel compression code as stored in the file.
type Codec uint16

const (
	// Raw stores big-endian scanlines of the native element type.
	Raw Codec = 0
	// RLE stores per-scanline PackBits runs behind a scanline length table.
	RLE Codec = 1
	// Zip deflates all scanlines concatenated with no framing.
	Zip Codec = 2
	// ZipPrediction deflates after per-scanline delta encoding.
	ZipPrediction Codec = 3
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case Raw:
		return "Raw"
	case RLE:
		return "RLE"
	case Zip:
		return "Zip"
	case ZipPrediction:
		return "ZipPrediction"
	default:
		return "Unknown"
	}
}

// Params describes the channel a payload belongs to.
type Params struct {
	Width  int
	Height int
	// Depth is the channel bit depth: 8, 16 or 32.
	Depth int
	// PSB selects 32-bit RLE scanline counts instead of 16-bit.
	PSB bool
	// Workers bounds codec parallelism; zero means GOMAXPROCS.
	Workers int
}

// elemSize returns the pixel element width in bytes.
func (p Params) elemSize() int {
	return max(p.Depth/8, 1)
}

// pixelBytes returns the uncompressed size of the channel in bytes.
func (p Params) pixelBytes() int {
	return p.Width * p.Height * p.elemSize()
}

func (p Params) validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: codec requires positive dimensions, got %dx%d",
			errdefs.ErrInvalidArgument, p.Width, p.Height)
	}
	switch p.Depth {
	case 8, 16, 32:
		return nil
	default:
		return fmt.Errorf("%w: codec depth must be 8, 16 or 32, got %d",
			errdefs.ErrInvalidArgument, p.Depth)
	}
}

// Decode decompresses a channel payload into native-endian pixel bytes of
// exactly width*height elements.
func Decode(codec Codec, src []byte, p Params) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	switch codec {
	case Raw:
		return decodeRaw(src, p)
	case RLE:
		return decodeRLE(src, p)
	case Zip:
		return decodeZip(src, p)
	case ZipPrediction:
		return decodeZipPrediction(src, p)
	default:
		return nil, fmt.Errorf("%w: compression code %d", errdefs.ErrUnsupported, codec)
	}
}

// Encode compresses native-endian pixel bytes into a channel payload.
func Encode(codec Codec, pixels []byte, p Params) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(pixels) != p.pixelBytes() {
		return nil, fmt.Errorf("%w: expected %d pixel bytes for %dx%d depth %d, got %d",
			errdefs.ErrInvalidArgument, p.pixelBytes(), p.Width, p.Height, p.Depth, len(pixels))
	}
	switch codec {
	case Raw:
		return encodeRaw(pixels, p)
	case RLE:
		return encodeRLE(pixels, p)
	case Zip:
		return encodeZip(pixels, p)
	case ZipPrediction:
		return encodeZipPrediction(pixels, p)
	default:
		return nil, fmt.Errorf("%w: compression code %d", errdefs.ErrUnsupported, codec)
	}
}

func decodeRaw(src []byte, p Params) ([]byte, error) {
	if len(src) < p.pixelBytes() {
		return nil, fmt.Errorf("%w: raw payload holds %d of %d bytes",
			errdefs.ErrCompression, len(src), p.pixelBytes())
	}
	out := make([]byte, p.pixelBytes())
	copy(out, src)
	fileio.NativeToBigEndian(out, p.elemSize(), p.Workers)
	return out, nil
}

func encodeRaw(pixels []byte, p Params) ([]byte, error) {
	out := make([]byte, len(pixels))
	copy(out, pixels)
	fileio.NativeToBigEndian(out, p.elemSize(), p.Workers)
	return out, nil
}
