package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gopsd/psd/internal/encoding"
	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Tagged block keys the engine parses into typed payloads. Every other
// key round-trips as raw bytes.
const (
	KeyLr16               = "Lr16"
	KeyLr32               = "Lr32"
	KeySectionDivider     = "lsct"
	KeySectionDividerAlt  = "lsdk"
	KeyUnicodeName        = "luni"
	KeyLayerID            = "lyid"
	KeyProtection         = "lspf"
	KeySheetColor         = "lclr"
	KeyReferencePoint     = "fxrp"
	KeyBlendClipping      = "clbl"
	KeyPlacedLayer        = "PlLd"
	KeyPlacedLayerData    = "SoLd"
	KeyLinkedData         = "lnkD"
	KeyLinkedDataExternal = "lnkE"
	KeyLinkedData2        = "lnk2"
	KeyLinkedData3        = "lnk3"
)

// psbPromotedKeys is the fixed set of keys whose length field widens to
// 64 bits in PSB files. All other keys stay 32-bit unconditionally.
var psbPromotedKeys = map[string]bool{
	"LMsk": true,
	"Lr16": true,
	"Lr32": true,
	"Layr": true,
	"Mt16": true,
	"Mt32": true,
	"Mtrn": true,
	"Alph": true,
	"FMsk": true,
	"lnk2": true,
	"FEid": true,
	"FXid": true,
	"PxSD": true,
	"cinf": true,
}

// LengthFieldIs64 reports whether the key stores a 64-bit length in the
// given version.
func LengthFieldIs64(key string, version Version) bool {
	return version == VersionPSB && psbPromotedKeys[key]
}

// TaggedBlock is one additional-layer-information block: a signature, a
// 4-byte key and its payload. Data holds the declared payload bytes;
// padding past the declared length is regenerated on write.
type TaggedBlock struct {
	Signature Signature
	Key       string
	Data      []byte
}

// ReadTaggedBlock reads one tagged block. padTo is the padding rule of
// the host section (2 for layer scope, 4 for some document-scope hosts).
func ReadTaggedBlock(f *fileio.File, version Version, padTo uint64) (*TaggedBlock, error) {
	sig, err := ExpectSignature(f, SigResource, SigTagged64)
	if err != nil {
		return nil, err
	}
	keySig, err := ReadSignature(f)
	if err != nil {
		return nil, err
	}
	key := keySig.String()

	var length uint64
	if LengthFieldIs64(key, version) {
		if length, err = fileio.ReadScalar[uint64](f); err != nil {
			return nil, err
		}
	} else {
		l32, err := fileio.ReadScalar[uint32](f)
		if err != nil {
			return nil, err
		}
		length = uint64(l32)
	}

	data, err := fileio.ReadBytes(f, length)
	if err != nil {
		return nil, err
	}
	if pad := fileio.RoundUpToMultiple(length, padTo) - length; pad > 0 {
		if err := f.Skip(pad); err != nil {
			return nil, err
		}
	}
	return &TaggedBlock{Signature: sig, Key: key, Data: data}, nil
}

// Write writes the block with the padding rule of its host section.
func (t *TaggedBlock) Write(f *fileio.File, version Version, padTo uint64) error {
	if len(t.Key) != 4 {
		return fmt.Errorf("%w: tagged block key %q is not 4 bytes", errdefs.ErrInvalidArgument, t.Key)
	}
	if err := WriteSignature(f, t.Signature); err != nil {
		return err
	}
	if err := WriteSignature(f, Sig(t.Key)); err != nil {
		return err
	}
	length := uint64(len(t.Data))
	if LengthFieldIs64(t.Key, version) {
		if err := fileio.WriteScalar(f, length); err != nil {
			return err
		}
	} else {
		if length > 0xffffffff {
			return fmt.Errorf("%w: tagged block %q payload of %d bytes needs a 64-bit length",
				errdefs.ErrIoOverflow, t.Key, length)
		}
		if err := fileio.WriteScalar(f, uint32(length)); err != nil {
			return err
		}
	}
	if err := f.Write(t.Data); err != nil {
		return err
	}
	return f.WritePadding(fileio.RoundUpToMultiple(length, padTo) - length)
}

// Size returns the on-disk size of the block under the given rules.
func (t *TaggedBlock) Size(version Version, padTo uint64) uint64 {
	lengthField := uint64(4)
	if LengthFieldIs64(t.Key, version) {
		lengthField = 8
	}
	return 4 + 4 + lengthField + fileio.RoundUpToMultiple(uint64(len(t.Data)), padTo)
}

// TaggedBlocks is an ordered registry of tagged blocks. Unknown keys are
// never dropped; round-trips write them back bit-exact.
type TaggedBlocks struct {
	Blocks []*TaggedBlock
}

// Get returns the first block with the given key.
func (r *TaggedBlocks) Get(key string) (*TaggedBlock, bool) {
	for _, b := range r.Blocks {
		if b.Key == key {
			return b, true
		}
	}
	return nil, false
}

// Put replaces the first block with the same key or appends.
func (r *TaggedBlocks) Put(block *TaggedBlock) {
	if block.Signature == (Signature{}) {
		block.Signature = SigResource
	}
	for i, b := range r.Blocks {
		if b.Key == block.Key {
			r.Blocks[i] = block
			return
		}
	}
	r.Blocks = append(r.Blocks, block)
}

// Remove deletes every block with the given key.
func (r *TaggedBlocks) Remove(key string) {
	out := r.Blocks[:0]
	for _, b := range r.Blocks {
		if b.Key != key {
			out = append(out, b)
		}
	}
	r.Blocks = out
}

// ReadTaggedBlocks reads blocks until the cursor reaches end.
func ReadTaggedBlocks(f *fileio.File, version Version, padTo, end uint64) (*TaggedBlocks, error) {
	r := &TaggedBlocks{}
	for f.Offset()+12 <= end {
		block, err := ReadTaggedBlock(f, version, padTo)
		if err != nil {
			return nil, err
		}
		r.Blocks = append(r.Blocks, block)
	}
	if f.Offset() < end {
		if err := f.Skip(end - f.Offset()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Write writes all blocks in order.
func (r *TaggedBlocks) Write(f *fileio.File, version Version, padTo uint64) error {
	for _, b := range r.Blocks {
		if err := b.Write(f, version, padTo); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the total on-disk size of all blocks.
func (r *TaggedBlocks) Size(version Version, padTo uint64) uint64 {
	var total uint64
	for _, b := range r.Blocks {
		total += b.Size(version, padTo)
	}
	return total
}

// SectionDividerKind discriminates the synthetic layer records that mark
// group boundaries in the flat layer sequence.
type SectionDividerKind uint32

const (
	// DividerOther marks an ordinary layer.
	DividerOther SectionDividerKind = 0
	// DividerOpenFolder opens a group shown expanded.
	DividerOpenFolder SectionDividerKind = 1
	// DividerClosedFolder opens a group shown collapsed.
	DividerClosedFolder SectionDividerKind = 2
	// DividerBoundingSection closes the current group.
	DividerBoundingSection SectionDividerKind = 3
)

// SectionDivider is the typed payload of the lsct/lsdk block.
type SectionDivider struct {
	Kind SectionDividerKind
	// BlendKey is the group blend mode key; empty when not stored.
	BlendKey string
}

// ParseSectionDivider decodes an lsct/lsdk payload.
func ParseSectionDivider(data []byte) (*SectionDivider, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: section divider payload of %d bytes", errdefs.ErrStructural, len(data))
	}
	d := &SectionDivider{Kind: SectionDividerKind(binary.BigEndian.Uint32(data))}
	if len(data) >= 12 {
		if string(data[4:8]) != SigResource.String() {
			return nil, fmt.Errorf("%w: section divider blend signature %q", errdefs.ErrInvalidSignature, data[4:8])
		}
		d.BlendKey = string(data[8:12])
	}
	return d, nil
}

// Encode builds the lsct payload.
func (d *SectionDivider) Encode() []byte {
	if d.BlendKey == "" {
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, uint32(d.Kind))
		return out
	}
	out := make([]byte, 12)
	binary.BigEndian.PutUint32(out, uint32(d.Kind))
	copy(out[4:], SigResource[:])
	copy(out[8:], d.BlendKey)
	return out
}

// ParseUnicodeName decodes a luni payload.
func ParseUnicodeName(data []byte) (string, error) {
	f := fileio.NewReader(bytes.NewReader(data), uint64(len(data)))
	return encoding.ReadUnicodeString(f)
}

// EncodeUnicodeName builds a luni payload padded to 4 bytes.
func EncodeUnicodeName(name string) []byte {
	var buf bytes.Buffer
	f := fileio.NewWriter(&buf, 0)
	// Writing to a buffer cannot fail.
	_ = encoding.WriteUnicodeString(f, name)
	out := buf.Bytes()
	for len(out)%4 != 0 {
		out = append(out, 0)
	}
	return out
}

// ParseLayerID decodes a lyid payload.
func ParseLayerID(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: layer id payload of %d bytes", errdefs.ErrStructural, len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}

// EncodeLayerID builds a lyid payload.
func EncodeLayerID(id uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, id)
	return out
}

// ParseReferencePoint decodes an fxrp payload: two float64 coordinates.
func ParseReferencePoint(data []byte) (x, y float64, err error) {
	if len(data) < 16 {
		return 0, 0, fmt.Errorf("%w: reference point payload of %d bytes", errdefs.ErrStructural, len(data))
	}
	xbits := binary.BigEndian.Uint64(data)
	ybits := binary.BigEndian.Uint64(data[8:])
	return math.Float64frombits(xbits), math.Float64frombits(ybits), nil
}

// EncodeReferencePoint builds an fxrp payload.
func EncodeReferencePoint(x, y float64) []byte {
	out := make([]byte, 16)
	binary.BigEndian.PutUint64(out, math.Float64bits(x))
	binary.BigEndian.PutUint64(out[8:], math.Float64bits(y))
	return out
}

// ParseProtection decodes an lspf payload into its flag word.
func ParseProtection(data []byte) (uint32, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("%w: protection payload of %d bytes", errdefs.ErrStructural, len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}

// EncodeProtection builds an lspf payload.
func EncodeProtection(flags uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, flags)
	return out
}

// ParseSheetColor decodes an lclr payload into its color index.
func ParseSheetColor(data []byte) (uint16, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("%w: sheet color payload of %d bytes", errdefs.ErrStructural, len(data))
	}
	return binary.BigEndian.Uint16(data), nil
}

// EncodeSheetColor builds an lclr payload.
func EncodeSheetColor(color uint16) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint16(out, color)
	return out
}
