package psd

import (
	"fmt"

	"github.com/gopsd/psd/internal/chunk"
	"github.com/gopsd/psd/internal/compression"
)

// ChannelID addresses a channel within a layer. Non-negative ids are
// color channels of the active color mode; reserved negative ids address
// the alpha and mask planes.
type ChannelID int16

const (
	// ChannelAlpha is the transparency channel.
	ChannelAlpha ChannelID = -1
	// ChannelUserMask is the user-supplied pixel mask.
	ChannelUserMask ChannelID = -2
	// ChannelRealMask is the combined vector-plus-pixel mask.
	ChannelRealMask ChannelID = -3
)

// IsMask reports whether the id addresses a mask plane.
func (id ChannelID) IsMask() bool {
	return id == ChannelUserMask || id == ChannelRealMask
}

// Compression selects the codec a channel is written with.
type Compression uint16

// Channel compression codes as stored in the file.
const (
	CompressionRaw           Compression = 0
	CompressionRLE           Compression = 1
	CompressionZip           Compression = 2
	CompressionZipPrediction Compression = 3
)

// String returns the codec name.
func (c Compression) String() string {
	return compression.Codec(c).String()
}

// Channel is one image channel: its id, geometry and pixel data held in
// the chunked compressed store. Pixels are stored in native byte order at
// the document bit depth; masks may differ in size from their layer, all
// other channels of a layer share dimensions.
type Channel struct {
	id          ChannelID
	width       uint32
	height      uint32
	centerX     float32
	centerY     float32
	depth       uint16
	compression Compression
	store       *chunk.Store
}

// NewChannel builds a channel from raw native-endian pixel bytes. The
// data is recompressed into the chunked store and not retained.
func NewChannel(id ChannelID, pixels []byte, width, height uint32, depth uint16, workers int) (*Channel, error) {
	elem := int(depth) / 8
	if elem == 0 {
		elem = 1
	}
	if len(pixels) != int(width)*int(height)*elem {
		return nil, fmt.Errorf("%w: channel %d expects %d bytes for %dx%d depth %d, got %d",
			ErrInvalidArgument, id, int(width)*int(height)*elem, width, height, depth, len(pixels))
	}
	store, err := chunk.New(pixels, 0, workers)
	if err != nil {
		return nil, err
	}
	return &Channel{
		id:          id,
		width:       width,
		height:      height,
		depth:       depth,
		compression: CompressionRLE,
		store:       store,
	}, nil
}

// ID returns the channel id.
func (c *Channel) ID() ChannelID {
	return c.id
}

// Width returns the channel width in pixels.
func (c *Channel) Width() uint32 {
	return c.width
}

// Height returns the channel height in pixels.
func (c *Channel) Height() uint32 {
	return c.height
}

// Center returns the channel center relative to the document center.
func (c *Channel) Center() (x, y float32) {
	return c.centerX, c.centerY
}

// SetCenter moves the channel center relative to the document center.
func (c *Channel) SetCenter(x, y float32) {
	c.centerX = x
	c.centerY = y
}

// Depth returns the channel bit depth.
func (c *Channel) Depth() uint16 {
	return c.depth
}

// Compression returns the codec used when the channel is written.
func (c *Channel) Compression() Compression {
	return c.compression
}

// SetCompression selects the codec used when the channel is written.
func (c *Channel) SetCompression(codec Compression) {
	c.compression = codec
}

// OriginalSize returns the uncompressed pixel byte count. O(1).
func (c *Channel) OriginalSize() int {
	return c.store.OriginalSize()
}

// CompressedSize returns the bytes the store currently holds.
func (c *Channel) CompressedSize() int {
	return c.store.CompressedSize()
}

// NumChunks returns the number of store chunks. O(1).
func (c *Channel) NumChunks() int {
	return c.store.NumChunks()
}

// ChunkSize returns the uncompressed byte size of one chunk.
func (c *Channel) ChunkSize(index int) (int, error) {
	return c.store.ChunkSize(index)
}

// GetChunk decompresses a single chunk into dst without touching the
// others. dst must be exactly the chunk's size.
func (c *Channel) GetChunk(dst []byte, index int) error {
	return c.store.GetChunk(dst, index)
}

// Data decompresses the whole channel into a fresh buffer. The channel
// keeps its compressed store, so Data may be called repeatedly.
func (c *Channel) Data(workers int) ([]byte, error) {
	return c.store.Decode(workers)
}

// Extract moves the pixel data out of the channel, leaving it empty.
// A second Extract fails with ErrAlreadyExtracted.
func (c *Channel) Extract(workers int) ([]byte, error) {
	return c.store.Extract(workers)
}

// Extracted reports whether the channel's buffer has been moved out.
func (c *Channel) Extracted() bool {
	return c.store.Extracted()
}

// Clone returns an independent channel over the same compressed blocks.
func (c *Channel) Clone() *Channel {
	out := *c
	out.store = c.store.Clone()
	return &out
}
