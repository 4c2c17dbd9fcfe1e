package format

import (
	"fmt"

	"github.com/gopsd/psd/internal/encoding"
	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Layer record flag bits.
const (
	FlagTransparencyProtected = 1 << 0
	FlagHidden                = 1 << 1
	FlagBit4Meaningful        = 1 << 3
	FlagPixelDataIrrelevant   = 1 << 4
)

// Mask flag bits.
const (
	MaskFlagRelative      = 1 << 0
	MaskFlagDisabled      = 1 << 1
	MaskFlagInvert        = 1 << 2
	MaskFlagFromRender    = 1 << 3
	MaskFlagHasParameters = 1 << 4
)

// Mask parameter presence bits.
const (
	maskParamUserDensity   = 1 << 0
	maskParamUserFeather   = 1 << 1
	maskParamVectorDensity = 1 << 2
	maskParamVectorFeather = 1 << 3
)

// ChannelInfo is one channel declaration in a layer record. Length is the
// compressed byte count in the channel image data section, including the
// leading 2-byte compression code.
type ChannelInfo struct {
	ID     int16
	Length uint64
}

// ChannelPayload is the matching entry from the channel image data
// section: the compression code and the compressed bytes.
type ChannelPayload struct {
	Compression uint16
	Data        []byte
}

// MaskData is the layer mask adjustment carried in a layer record's extra
// data. Trailing bytes beyond the parsed fields round-trip raw.
type MaskData struct {
	Top, Left, Bottom, Right int32
	DefaultColor             uint8
	Flags                    uint8

	// Optional parameter block, present when Flags has
	// MaskFlagHasParameters set.
	UserDensity   *uint8
	UserFeather   *float64
	VectorDensity *uint8
	VectorFeather *float64

	// Rest preserves bytes the engine does not model (the "real" flags
	// and enclosing rectangle of 36-byte masks).
	Rest []byte
}

// LayerRecord is the per-layer metadata of the layer info section.
type LayerRecord struct {
	Top, Left, Bottom, Right int32
	Channels                 []ChannelInfo
	BlendKey                 string
	Opacity                  uint8
	Clipping                 uint8
	Flags                    uint8
	Mask                     *MaskData
	BlendingRanges           []byte
	LegacyName               string
	Tagged                   *TaggedBlocks

	// ChannelData is populated from the channel image data section in
	// declaration order.
	ChannelData []ChannelPayload
}

// readLayerRecord reads one layer record (not its channel data).
func readLayerRecord(f *fileio.File, version Version) (*LayerRecord, error) {
	r := &LayerRecord{Tagged: &TaggedBlocks{}}
	var err error
	if r.Top, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}
	if r.Left, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}
	if r.Bottom, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}
	if r.Right, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}

	channelCount, err := fileio.ReadScalar[uint16](f)
	if err != nil {
		return nil, err
	}
	r.Channels = make([]ChannelInfo, channelCount)
	for i := range r.Channels {
		if r.Channels[i].ID, err = fileio.ReadScalar[int16](f); err != nil {
			return nil, err
		}
		if version == VersionPSB {
			if r.Channels[i].Length, err = fileio.ReadScalar[uint64](f); err != nil {
				return nil, err
			}
		} else {
			l, err := fileio.ReadScalar[uint32](f)
			if err != nil {
				return nil, err
			}
			r.Channels[i].Length = uint64(l)
		}
	}

	if _, err := ExpectSignature(f, SigResource); err != nil {
		return nil, err
	}
	blendKey, err := ReadSignature(f)
	if err != nil {
		return nil, err
	}
	r.BlendKey = blendKey.String()

	if r.Opacity, err = fileio.ReadScalar[uint8](f); err != nil {
		return nil, err
	}
	if r.Clipping, err = fileio.ReadScalar[uint8](f); err != nil {
		return nil, err
	}
	if r.Flags, err = fileio.ReadScalar[uint8](f); err != nil {
		return nil, err
	}
	if err := f.Skip(1); err != nil { // filler
		return nil, err
	}

	extraLen, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return nil, err
	}
	extraEnd := f.Offset() + uint64(extraLen)

	if r.Mask, err = readMaskData(f); err != nil {
		return nil, err
	}

	rangesLen, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return nil, err
	}
	if r.BlendingRanges, err = fileio.ReadBytes(f, uint64(rangesLen)); err != nil {
		return nil, err
	}

	if r.LegacyName, _, err = encoding.ReadPascal(f, 4, encoding.Windows1252); err != nil {
		return nil, err
	}

	if r.Tagged, err = ReadTaggedBlocks(f, version, 2, extraEnd); err != nil {
		return nil, err
	}
	if f.Offset() != extraEnd {
		return nil, fmt.Errorf("%w: layer record extra data overran by %d bytes",
			errdefs.ErrStructural, f.Offset()-extraEnd)
	}
	return r, nil
}

func readMaskData(f *fileio.File) (*MaskData, error) {
	size, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	if size < 20 {
		return nil, fmt.Errorf("%w: mask data of %d bytes", errdefs.ErrStructural, size)
	}
	end := f.Offset() + uint64(size)

	m := &MaskData{}
	if m.Top, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}
	if m.Left, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}
	if m.Bottom, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}
	if m.Right, err = fileio.ReadScalar[int32](f); err != nil {
		return nil, err
	}
	if m.DefaultColor, err = fileio.ReadScalar[uint8](f); err != nil {
		return nil, err
	}
	if m.Flags, err = fileio.ReadScalar[uint8](f); err != nil {
		return nil, err
	}

	if m.Flags&MaskFlagHasParameters != 0 && f.Offset() < end {
		params, err := fileio.ReadScalar[uint8](f)
		if err != nil {
			return nil, err
		}
		if params&maskParamUserDensity != 0 {
			v, err := fileio.ReadScalar[uint8](f)
			if err != nil {
				return nil, err
			}
			m.UserDensity = &v
		}
		if params&maskParamUserFeather != 0 {
			v, err := readFloat64(f)
			if err != nil {
				return nil, err
			}
			m.UserFeather = &v
		}
		if params&maskParamVectorDensity != 0 {
			v, err := fileio.ReadScalar[uint8](f)
			if err != nil {
				return nil, err
			}
			m.VectorDensity = &v
		}
		if params&maskParamVectorFeather != 0 {
			v, err := readFloat64(f)
			if err != nil {
				return nil, err
			}
			m.VectorFeather = &v
		}
	}

	if f.Offset() < end {
		if m.Rest, err = fileio.ReadBytes(f, end-f.Offset()); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// write writes the record; channel lengths must already be final.
func (r *LayerRecord) write(f *fileio.File, version Version) error {
	for _, v := range []int32{r.Top, r.Left, r.Bottom, r.Right} {
		if err := fileio.WriteScalar(f, v); err != nil {
			return err
		}
	}
	if err := fileio.WriteScalar(f, uint16(len(r.Channels))); err != nil {
		return err
	}
	for _, c := range r.Channels {
		if err := fileio.WriteScalar(f, c.ID); err != nil {
			return err
		}
		if version == VersionPSB {
			if err := fileio.WriteScalar(f, c.Length); err != nil {
				return err
			}
		} else {
			if c.Length > 0xffffffff {
				return fmt.Errorf("%w: channel payload of %d bytes needs PSB", errdefs.ErrIoOverflow, c.Length)
			}
			if err := fileio.WriteScalar(f, uint32(c.Length)); err != nil {
				return err
			}
		}
	}
	if err := WriteSignature(f, SigResource); err != nil {
		return err
	}
	if len(r.BlendKey) != 4 {
		return fmt.Errorf("%w: blend mode key %q is not 4 bytes", errdefs.ErrInvalidArgument, r.BlendKey)
	}
	if err := WriteSignature(f, Sig(r.BlendKey)); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, r.Opacity); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, r.Clipping); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, r.Flags); err != nil {
		return err
	}
	if err := f.WritePadding(1); err != nil { // filler
		return err
	}

	extra, err := r.extraSize(version)
	if err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, uint32(extra)); err != nil {
		return err
	}

	if err := writeMaskData(f, r.Mask); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, uint32(len(r.BlendingRanges))); err != nil {
		return err
	}
	if err := f.Write(r.BlendingRanges); err != nil {
		return err
	}
	if err := encoding.WritePascal(f, r.LegacyName, 4, encoding.Windows1252); err != nil {
		return err
	}
	return r.Tagged.Write(f, version, 2)
}

func (m *MaskData) size() uint64 {
	if m == nil {
		return 4
	}
	size := uint64(18)
	if m.Flags&MaskFlagHasParameters != 0 {
		size++
		if m.UserDensity != nil {
			size++
		}
		if m.UserFeather != nil {
			size += 8
		}
		if m.VectorDensity != nil {
			size++
		}
		if m.VectorFeather != nil {
			size += 8
		}
	}
	size += uint64(len(m.Rest))
	// The body is at least the conventional 20 bytes and stays even.
	if size < 20 {
		size = 20
	}
	return 4 + fileio.RoundUpToMultiple(size, 2)
}

func writeMaskData(f *fileio.File, m *MaskData) error {
	if m == nil {
		return fileio.WriteScalar(f, uint32(0))
	}
	total := m.size() - 4
	if err := fileio.WriteScalar(f, uint32(total)); err != nil {
		return err
	}
	start := f.Offset()
	for _, v := range []int32{m.Top, m.Left, m.Bottom, m.Right} {
		if err := fileio.WriteScalar(f, v); err != nil {
			return err
		}
	}
	if err := fileio.WriteScalar(f, m.DefaultColor); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, m.Flags); err != nil {
		return err
	}
	if m.Flags&MaskFlagHasParameters != 0 {
		var params uint8
		if m.UserDensity != nil {
			params |= maskParamUserDensity
		}
		if m.UserFeather != nil {
			params |= maskParamUserFeather
		}
		if m.VectorDensity != nil {
			params |= maskParamVectorDensity
		}
		if m.VectorFeather != nil {
			params |= maskParamVectorFeather
		}
		if err := fileio.WriteScalar(f, params); err != nil {
			return err
		}
		if m.UserDensity != nil {
			if err := fileio.WriteScalar(f, *m.UserDensity); err != nil {
				return err
			}
		}
		if m.UserFeather != nil {
			if err := writeFloat64(f, *m.UserFeather); err != nil {
				return err
			}
		}
		if m.VectorDensity != nil {
			if err := fileio.WriteScalar(f, *m.VectorDensity); err != nil {
				return err
			}
		}
		if m.VectorFeather != nil {
			if err := writeFloat64(f, *m.VectorFeather); err != nil {
				return err
			}
		}
	}
	if err := f.Write(m.Rest); err != nil {
		return err
	}
	return f.WritePadding(total - (f.Offset() - start))
}

func (r *LayerRecord) extraSize(version Version) (uint64, error) {
	nameSize, err := encoding.PascalSize(r.LegacyName, 4, encoding.Windows1252)
	if err != nil {
		return 0, err
	}
	return r.Mask.size() + 4 + uint64(len(r.BlendingRanges)) + nameSize + r.Tagged.Size(version, 2), nil
}

// size returns the full on-disk record size.
func (r *LayerRecord) size(version Version) (uint64, error) {
	channelInfoSize := uint64(6)
	if version == VersionPSB {
		channelInfoSize = 10
	}
	extra, err := r.extraSize(version)
	if err != nil {
		return 0, err
	}
	return 16 + 2 + uint64(len(r.Channels))*channelInfoSize + 4 + 4 + 4 + 4 + extra, nil
}
