package format

import (
	"bytes"
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// GlobalLayerMask is the optional global layer mask info section,
// preserved as an opaque payload.
type GlobalLayerMask struct {
	Raw []byte
}

// LayerAndMaskInfo is the composite section between the image resources
// and the merged image data: the layer info, the global layer mask info
// and the document-scope tagged blocks.
type LayerAndMaskInfo struct {
	Info       *LayerInfo
	GlobalMask *GlobalLayerMask
	Tagged     *TaggedBlocks
}

// sectionPad returns the padding rule of the layer-and-mask section.
func sectionPad(version Version) uint64 {
	if version == VersionPSB {
		return 4
	}
	return 2
}

// rehostKey returns the tagged block re-hosting the layer info for the
// given bit depth, or empty when the info lives in the section proper.
func rehostKey(depth uint16) string {
	switch depth {
	case 16:
		return KeyLr16
	case 32:
		return KeyLr32
	default:
		return ""
	}
}

// ReadLayerAndMaskInfo reads the full section. For 16- and 32-bit files
// the layer info arrives inside the Lr16/Lr32 tagged block, which is
// lifted out of the registry and parsed here.
func ReadLayerAndMaskInfo(f *fileio.File, version Version) (*LayerAndMaskInfo, error) {
	length, err := version.ReadSectionLength(f)
	if err != nil {
		return nil, err
	}
	section := &LayerAndMaskInfo{Tagged: &TaggedBlocks{}}
	if length == 0 {
		return section, nil
	}
	end := f.Offset() + length

	infoLength, err := version.ReadSectionLength(f)
	if err != nil {
		return nil, err
	}
	if infoLength > 0 {
		infoEnd := f.Offset() + infoLength
		if section.Info, err = ReadLayerInfoPayload(f, version, infoEnd); err != nil {
			return nil, err
		}
	}

	// Global layer mask info follows when there is room for its length.
	if f.Offset()+4 <= end {
		maskLength, err := fileio.ReadScalar[uint32](f)
		if err != nil {
			return nil, err
		}
		if maskLength > 0 {
			raw, err := fileio.ReadBytes(f, uint64(maskLength))
			if err != nil {
				return nil, err
			}
			section.GlobalMask = &GlobalLayerMask{Raw: raw}
		}
	}

	// Document-scope tagged blocks run to the end of the section. The
	// Lr16/Lr32 rehost is parsed in place of the empty layer info.
	for f.Offset()+12 <= end {
		block, err := ReadTaggedBlock(f, version, 4)
		if err != nil {
			return nil, err
		}
		if block.Key == KeyLr16 || block.Key == KeyLr32 {
			sub := fileio.NewReader(bytes.NewReader(block.Data), uint64(len(block.Data)))
			info, err := ReadLayerInfoPayload(sub, version, uint64(len(block.Data)))
			if err != nil {
				return nil, fmt.Errorf("%s rehost: %w", block.Key, err)
			}
			section.Info = info
			continue
		}
		section.Tagged.Blocks = append(section.Tagged.Blocks, block)
	}
	if f.Offset() < end {
		if err := f.Skip(end - f.Offset()); err != nil {
			return nil, err
		}
	}
	return section, nil
}

// Write writes the full section. depth selects whether the layer info is
// written in place or re-hosted in Lr16/Lr32.
func (s *LayerAndMaskInfo) Write(f *fileio.File, version Version, depth uint16) error {
	pad := sectionPad(version)
	key := rehostKey(depth)

	var infoPayload []byte
	if s.Info != nil && len(s.Info.Records) > 0 {
		var buf bytes.Buffer
		sub := fileio.NewWriter(&buf, 0)
		if err := s.Info.WritePayload(sub, version, pad); err != nil {
			return err
		}
		infoPayload = buf.Bytes()
	}

	tagged := &TaggedBlocks{}
	if key != "" && infoPayload != nil {
		tagged.Blocks = append(tagged.Blocks, &TaggedBlock{
			Signature: SigResource,
			Key:       key,
			Data:      infoPayload,
		})
	}
	tagged.Blocks = append(tagged.Blocks, s.Tagged.Blocks...)

	var body uint64
	if key == "" && infoPayload != nil {
		body += version.SectionLengthSize() + uint64(len(infoPayload))
	} else {
		body += version.SectionLengthSize() // zero layer info length
	}
	body += 4 // global mask length field
	if s.GlobalMask != nil {
		body += uint64(len(s.GlobalMask.Raw))
	}
	body += tagged.Size(version, 4)

	padded := fileio.RoundUpToMultiple(body, pad)
	if err := version.WriteSectionLength(f, padded); err != nil {
		return err
	}
	start := f.Offset()

	if key == "" && infoPayload != nil {
		if err := version.WriteSectionLength(f, uint64(len(infoPayload))); err != nil {
			return err
		}
		if err := f.Write(infoPayload); err != nil {
			return err
		}
	} else {
		if err := version.WriteSectionLength(f, 0); err != nil {
			return err
		}
	}

	if s.GlobalMask != nil {
		if err := fileio.WriteScalar(f, uint32(len(s.GlobalMask.Raw))); err != nil {
			return err
		}
		if err := f.Write(s.GlobalMask.Raw); err != nil {
			return err
		}
	} else {
		if err := fileio.WriteScalar(f, uint32(0)); err != nil {
			return err
		}
	}

	if err := tagged.Write(f, version, 4); err != nil {
		return err
	}

	written := f.Offset() - start
	if written > padded {
		return fmt.Errorf("%w: layer and mask section wrote %d of %d planned bytes",
			errdefs.ErrIoOverflow, written, padded)
	}
	return f.WritePadding(padded - written)
}

// ImageData is the merged image data section closing the file: one
// compression code and the channel payloads with no framing, running to
// the end of the file.
type ImageData struct {
	Compression uint16
	Data        []byte
}

// ReadImageData reads the merged image section. The payload length is
// implicit: everything to the end of the file.
func ReadImageData(f *fileio.File) (*ImageData, error) {
	if f.Offset()+2 > f.Size() {
		return nil, nil
	}
	code, err := fileio.ReadScalar[uint16](f)
	if err != nil {
		return nil, err
	}
	data, err := fileio.ReadBytes(f, f.Size()-f.Offset())
	if err != nil {
		return nil, err
	}
	return &ImageData{Compression: code, Data: data}, nil
}

// Write writes the merged image section.
func (d *ImageData) Write(f *fileio.File) error {
	if err := fileio.WriteScalar(f, d.Compression); err != nil {
		return err
	}
	return f.Write(d.Data)
}

// Size returns the on-disk size of the section.
func (d *ImageData) Size() uint64 {
	return 2 + uint64(len(d.Data))
}
