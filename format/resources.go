package format

import (
	"encoding/binary"
	"fmt"

	"github.com/gopsd/psd/internal/encoding"
	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Well-known image resource ids the engine itself consumes. Everything
// else round-trips as opaque payload.
const (
	// ResourceIDResolutionInfo carries DPI as 16.16 fixed point.
	ResourceIDResolutionInfo uint16 = 1005
	// ResourceIDICCProfile carries the raw ICC profile bytes.
	ResourceIDICCProfile uint16 = 1039
)

// ResourceBlock is one image resource: an id, an optional Pascal name and
// an opaque payload padded to 2 bytes.
type ResourceBlock struct {
	ID   uint16
	Name string
	Data []byte
}

// ImageResources is the ordered image resource section.
type ImageResources struct {
	Blocks []ResourceBlock
}

// Get returns the first block with the given id.
func (r *ImageResources) Get(id uint16) (*ResourceBlock, bool) {
	for i := range r.Blocks {
		if r.Blocks[i].ID == id {
			return &r.Blocks[i], true
		}
	}
	return nil, false
}

// Put replaces the first block with the given id or appends a new one.
func (r *ImageResources) Put(block ResourceBlock) {
	for i := range r.Blocks {
		if r.Blocks[i].ID == block.ID {
			r.Blocks[i] = block
			return
		}
	}
	r.Blocks = append(r.Blocks, block)
}

// Remove deletes every block with the given id.
func (r *ImageResources) Remove(id uint16) {
	out := r.Blocks[:0]
	for _, b := range r.Blocks {
		if b.ID != id {
			out = append(out, b)
		}
	}
	r.Blocks = out
}

// ReadImageResources reads the image resource section.
func ReadImageResources(f *fileio.File) (*ImageResources, error) {
	length, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return nil, err
	}
	end := f.Offset() + uint64(length)

	r := &ImageResources{}
	for f.Offset() < end {
		if _, err := ExpectSignature(f, SigResource); err != nil {
			return nil, err
		}
		var block ResourceBlock
		if block.ID, err = fileio.ReadScalar[uint16](f); err != nil {
			return nil, err
		}
		if block.Name, _, err = encoding.ReadPascal(f, 2, encoding.Windows1252); err != nil {
			return nil, err
		}
		dataLen, err := fileio.ReadScalar[uint32](f)
		if err != nil {
			return nil, err
		}
		if block.Data, err = fileio.ReadBytes(f, uint64(dataLen)); err != nil {
			return nil, err
		}
		// Payloads are padded to even length; the pad byte is not part of
		// the declared size.
		if dataLen%2 != 0 {
			if err := f.Skip(1); err != nil {
				return nil, err
			}
		}
		r.Blocks = append(r.Blocks, block)
	}
	if f.Offset() != end {
		return nil, fmt.Errorf("%w: image resources overran their section by %d bytes",
			errdefs.ErrStructural, f.Offset()-end)
	}
	return r, nil
}

// Write writes the section with its length field.
func (r *ImageResources) Write(f *fileio.File) error {
	size, err := r.bodySize()
	if err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, uint32(size)); err != nil {
		return err
	}
	for _, block := range r.Blocks {
		if err := WriteSignature(f, SigResource); err != nil {
			return err
		}
		if err := fileio.WriteScalar(f, block.ID); err != nil {
			return err
		}
		if err := encoding.WritePascal(f, block.Name, 2, encoding.Windows1252); err != nil {
			return err
		}
		if err := fileio.WriteScalar(f, uint32(len(block.Data))); err != nil {
			return err
		}
		if err := f.Write(block.Data); err != nil {
			return err
		}
		if len(block.Data)%2 != 0 {
			if err := f.WritePadding(1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ImageResources) bodySize() (uint64, error) {
	var size uint64
	for _, block := range r.Blocks {
		nameSize, err := encoding.PascalSize(block.Name, 2, encoding.Windows1252)
		if err != nil {
			return 0, err
		}
		size += 4 + 2 + nameSize + 4 + fileio.RoundUpToMultiple(uint64(len(block.Data)), 2)
	}
	return size, nil
}

// Size returns the on-disk size of the section including its length field.
func (r *ImageResources) Size() (uint64, error) {
	body, err := r.bodySize()
	if err != nil {
		return 0, err
	}
	return 4 + body, nil
}

// ResolutionDPI decodes the horizontal DPI from the resolution-info
// resource, defaulting to 72 when absent.
func (r *ImageResources) ResolutionDPI() float64 {
	block, ok := r.Get(ResourceIDResolutionInfo)
	if !ok || len(block.Data) < 4 {
		return 72
	}
	fixed := binary.BigEndian.Uint32(block.Data)
	return float64(fixed) / 65536
}

// SetResolutionDPI stores the DPI into a fresh resolution-info resource.
// Both axes are set to the same value with pixels-per-inch display units.
func (r *ImageResources) SetResolutionDPI(dpi float64) {
	data := make([]byte, 16)
	fixed := uint32(dpi * 65536)
	binary.BigEndian.PutUint32(data[0:], fixed) // horizontal 16.16
	binary.BigEndian.PutUint16(data[4:], 1)     // display unit: ppi
	binary.BigEndian.PutUint16(data[6:], 1)     // width unit: inches
	binary.BigEndian.PutUint32(data[8:], fixed) // vertical 16.16
	binary.BigEndian.PutUint16(data[12:], 1)    // display unit: ppi
	binary.BigEndian.PutUint16(data[14:], 1)    // height unit: inches
	r.Put(ResourceBlock{ID: ResourceIDResolutionInfo, Data: data})
}

// ICCProfile returns the raw ICC profile bytes, if present.
func (r *ImageResources) ICCProfile() []byte {
	block, ok := r.Get(ResourceIDICCProfile)
	if !ok {
		return nil
	}
	return block.Data
}

// SetICCProfile stores raw ICC profile bytes; nil removes the resource.
func (r *ImageResources) SetICCProfile(profile []byte) {
	if profile == nil {
		r.Remove(ResourceIDICCProfile)
		return
	}
	r.Put(ResourceBlock{ID: ResourceIDICCProfile, Data: profile})
}
