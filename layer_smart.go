package psd

import (
	"fmt"

	"github.com/gopsd/psd/format"
	"github.com/gopsd/psd/imageio"
	"github.com/gopsd/psd/warp"
)

// SmartObjectLayer is a layer whose pixels are produced by warping a
// linked source asset. The layer holds only the content hash of its
// source; the bytes live in the document's linked-layer store and may be
// shared by any number of smart-object layers. Width and height reflect
// the post-warp displayed extent; OriginalSize is the source asset's.
type SmartObjectLayer struct {
	layerBase

	hash           string
	warp           *warp.Warp
	originalWidth  uint32
	originalHeight uint32

	// channels cache the rendered (warped) pixels so the layer behaves
	// like an image layer during compositing and write.
	channels []*Channel
}

// NewSmartObjectLayer creates a smart-object layer over source bytes
// registered in the document's linked-layer store. The warp starts as
// identity over the source dimensions.
func NewSmartObjectLayer(doc *Document, name, filename string, data []byte, linkType LinkType) (*SmartObjectLayer, error) {
	img, err := doc.SourceCodec().ReadBytes(data)
	if err != nil {
		return nil, err
	}
	hash := doc.LinkedLayers().Insert(filename, data, linkType)
	w, err := warp.New(float64(img.Width), float64(img.Height), 4, 4)
	if err != nil {
		return nil, err
	}
	l := &SmartObjectLayer{
		layerBase:      newLayerBase(name),
		hash:           hash,
		warp:           w,
		originalWidth:  uint32(img.Width),
		originalHeight: uint32(img.Height),
	}
	l.coords = ChannelCoordinates{Width: int32(img.Width), Height: int32(img.Height)}
	return l, nil
}

// Hash returns the content hash keying the layer's source in the
// linked-layer store.
func (l *SmartObjectLayer) Hash() string {
	return l.hash
}

// LinkedData resolves the layer's source entry from the document store.
func (l *SmartObjectLayer) LinkedData(doc *Document) (*LinkedLayerData, error) {
	entry, ok := doc.LinkedLayers().Get(l.hash)
	if !ok {
		return nil, fmt.Errorf("%w: smart object %q references missing source %s",
			ErrStructural, l.name, l.hash)
	}
	return entry, nil
}

// SourceImage decodes the layer's source through the document codec.
func (l *SmartObjectLayer) SourceImage(doc *Document) (*imageio.Image, error) {
	entry, err := l.LinkedData(doc)
	if err != nil {
		return nil, err
	}
	return entry.Image(doc.SourceCodec())
}

// OriginalSize returns the source asset dimensions before warping.
func (l *SmartObjectLayer) OriginalSize() (width, height uint32) {
	return l.originalWidth, l.originalHeight
}

// Warp returns the layer's warp.
func (l *SmartObjectLayer) Warp() *warp.Warp {
	return l.warp
}

// SetWarp replaces the layer's warp.
func (l *SmartObjectLayer) SetWarp(w *warp.Warp) {
	l.warp = w
}

// ReplaceImage swaps the layer's source for new bytes, re-registering
// the store entry and resetting the original dimensions. The warp is
// kept so the new source lands in the same deformed extent.
func (l *SmartObjectLayer) ReplaceImage(doc *Document, filename string, data []byte, linkType LinkType) error {
	img, err := doc.SourceCodec().ReadBytes(data)
	if err != nil {
		return err
	}
	l.hash = doc.LinkedLayers().Insert(filename, data, linkType)
	l.originalWidth = uint32(img.Width)
	l.originalHeight = uint32(img.Height)
	l.channels = nil
	return nil
}

// Channels returns the rendered channel cache, empty until the layer has
// been rendered or decoded.
func (l *SmartObjectLayer) Channels() []*Channel {
	return l.channels
}

// SetChannels replaces the rendered channel cache.
func (l *SmartObjectLayer) SetChannels(channels []*Channel) {
	l.channels = channels
}

// Channel returns the rendered channel with the given id.
func (l *SmartObjectLayer) Channel(id ChannelID) (*Channel, bool) {
	for _, c := range l.channels {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// placedDescriptor serializes the layer's placement into the SoLd
// payload.
func (l *SmartObjectLayer) placedDescriptor() *format.Descriptor {
	d := &format.Descriptor{ClassID: "null"}
	d.Put("Idnt", l.hash)
	d.Put("placed", l.warp.ToDescriptor())
	d.Put("origWidth", int32(l.originalWidth))
	d.Put("origHeight", int32(l.originalHeight))
	return d
}

// Clone returns a deep copy of the layer sharing the same source entry.
func (l *SmartObjectLayer) Clone() Layer {
	out := &SmartObjectLayer{
		layerBase:      l.cloneBase(),
		hash:           l.hash,
		originalWidth:  l.originalWidth,
		originalHeight: l.originalHeight,
	}
	if l.warp != nil {
		w := *l.warp
		if err := w.SetPoints(l.warp.Points()); err == nil {
			out.warp = &w
		}
	}
	for _, c := range l.channels {
		out.channels = append(out.channels, c.Clone())
	}
	if out.mask != nil && out.mask.Channel != nil {
		out.mask.Channel = out.mask.Channel.Clone()
	}
	return out
}
