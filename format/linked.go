package format

import (
	"bytes"
	"fmt"

	"github.com/gopsd/psd/internal/encoding"
	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Linked layer entry type tags.
const (
	linkedTypeData     = "liFD"
	linkedTypeExternal = "liFE"
	linkedTypeAlias    = "liFA"
)

// LinkedDataType says whether a linked file's bytes travel inside the
// document or live externally.
type LinkedDataType int

const (
	// LinkedData embeds the source bytes in the document.
	LinkedData LinkedDataType = iota
	// LinkedExternal references a file on disk; the document holds only
	// metadata.
	LinkedExternal
	// LinkedAlias is a legacy alias record.
	LinkedAlias
)

// LinkedLayerEntry is one linked file in the lnkD/lnkE/lnk2/lnk3 tagged
// blocks. Rest preserves trailing fields the engine does not model (the
// child version map and optional child document id).
type LinkedLayerEntry struct {
	Type     LinkedDataType
	Version  int32
	UniqueID string
	Filename string
	FileType string
	Creator  string
	Data     []byte
	Rest     []byte
}

func (t LinkedDataType) tag() string {
	switch t {
	case LinkedExternal:
		return linkedTypeExternal
	case LinkedAlias:
		return linkedTypeAlias
	default:
		return linkedTypeData
	}
}

func linkedTypeFromTag(tag string) (LinkedDataType, error) {
	switch tag {
	case linkedTypeData:
		return LinkedData, nil
	case linkedTypeExternal:
		return LinkedExternal, nil
	case linkedTypeAlias:
		return LinkedAlias, nil
	default:
		return 0, fmt.Errorf("%w: linked layer type %q", errdefs.ErrStructural, tag)
	}
}

// ParseLinkedLayers decodes the payload of a linked-layer tagged block:
// a sequence of length-prefixed entries padded to 4 bytes.
func ParseLinkedLayers(data []byte) ([]LinkedLayerEntry, error) {
	f := fileio.NewReader(bytes.NewReader(data), uint64(len(data)))
	var entries []LinkedLayerEntry
	for f.Offset()+8 <= uint64(len(data)) {
		length, err := fileio.ReadScalar[uint64](f)
		if err != nil {
			return nil, err
		}
		end := f.Offset() + length

		var e LinkedLayerEntry
		typeTag, err := ReadSignature(f)
		if err != nil {
			return nil, err
		}
		if e.Type, err = linkedTypeFromTag(typeTag.String()); err != nil {
			return nil, err
		}
		if e.Version, err = fileio.ReadScalar[int32](f); err != nil {
			return nil, err
		}
		if e.UniqueID, _, err = encoding.ReadPascal(f, 1, encoding.Windows1252); err != nil {
			return nil, err
		}
		if e.Filename, err = encoding.ReadUnicodeString(f); err != nil {
			return nil, err
		}
		fileType, err := ReadSignature(f)
		if err != nil {
			return nil, err
		}
		e.FileType = fileType.String()
		creator, err := ReadSignature(f)
		if err != nil {
			return nil, err
		}
		e.Creator = creator.String()

		dataLen, err := fileio.ReadScalar[uint64](f)
		if err != nil {
			return nil, err
		}
		// A descriptor-presence byte precedes embedded data.
		hasDescriptor, err := fileio.ReadScalar[uint8](f)
		if err != nil {
			return nil, err
		}
		_ = hasDescriptor
		if dataLen > 0 {
			if e.Data, err = fileio.ReadBytes(f, dataLen); err != nil {
				return nil, err
			}
		}
		if f.Offset() < end {
			if e.Rest, err = fileio.ReadBytes(f, end-f.Offset()); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)

		padded := fileio.RoundUpToMultiple(end, 4)
		if padded > f.Offset() {
			if err := f.Skip(min64(padded, uint64(len(data))) - f.Offset()); err != nil {
				return nil, err
			}
		}
	}
	return entries, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// EncodeLinkedLayers builds a linked-layer tagged block payload.
func EncodeLinkedLayers(entries []LinkedLayerEntry) ([]byte, error) {
	var out bytes.Buffer
	f := fileio.NewWriter(&out, 0)
	for _, e := range entries {
		var body bytes.Buffer
		sub := fileio.NewWriter(&body, 0)
		if err := WriteSignature(sub, Sig(e.Type.tag())); err != nil {
			return nil, err
		}
		if err := fileio.WriteScalar(sub, e.Version); err != nil {
			return nil, err
		}
		if err := encoding.WritePascal(sub, e.UniqueID, 1, encoding.Windows1252); err != nil {
			return nil, err
		}
		if err := encoding.WriteUnicodeString(sub, e.Filename); err != nil {
			return nil, err
		}
		if err := WriteSignature(sub, Sig(e.FileType)); err != nil {
			return nil, err
		}
		if err := WriteSignature(sub, Sig(e.Creator)); err != nil {
			return nil, err
		}
		if err := fileio.WriteScalar(sub, uint64(len(e.Data))); err != nil {
			return nil, err
		}
		if err := fileio.WriteScalar(sub, uint8(0)); err != nil { // no descriptor
			return nil, err
		}
		if err := sub.Write(e.Data); err != nil {
			return nil, err
		}
		if err := sub.Write(e.Rest); err != nil {
			return nil, err
		}

		if err := fileio.WriteScalar(f, uint64(body.Len())); err != nil {
			return nil, err
		}
		if err := f.Write(body.Bytes()); err != nil {
			return nil, err
		}
		if pad := fileio.RoundUpToMultiple(uint64(body.Len()), 4) - uint64(body.Len()); pad > 0 {
			if err := f.WritePadding(pad); err != nil {
				return nil, err
			}
		}
	}
	return out.Bytes(), nil
}
