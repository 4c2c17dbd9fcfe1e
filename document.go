package psd

import (
	"fmt"
	"strings"

	"github.com/gopsd/psd/format"
	"github.com/gopsd/psd/imageio"
)

// ColorMode re-exports the wire-level color mode for the document model.
type ColorMode = format.ColorMode

// Color modes.
const (
	ColorModeBitmap       = format.ColorModeBitmap
	ColorModeGrayscale    = format.ColorModeGrayscale
	ColorModeIndexed      = format.ColorModeIndexed
	ColorModeRGB          = format.ColorModeRGB
	ColorModeCMYK         = format.ColorModeCMYK
	ColorModeMultichannel = format.ColorModeMultichannel
	ColorModeDuotone      = format.ColorModeDuotone
	ColorModeLab          = format.ColorModeLab
)

// Version re-exports the container version.
type Version = format.Version

// Container versions.
const (
	VersionPSD = format.VersionPSD
	VersionPSB = format.VersionPSB
)

// Document is a layered image document. Dimensions, bit depth and color
// mode are fixed at construction; layers, resources and the merged image
// are mutable.
type Document struct {
	width     uint32
	height    uint32
	depth     uint16
	colorMode ColorMode

	// layers is the root of the layer forest, topmost layer first.
	layers []Layer

	// mergedImage optionally holds the flattened composite, one channel
	// per plane.
	mergedImage []*Channel

	// alphaIsMerged mirrors the negative layer count flag of the file.
	alphaIsMerged bool

	resources *format.ImageResources
	colorData *format.ColorModeData

	// globalMask and docBlocks preserve document-scope sections the
	// engine does not model.
	globalMask *format.GlobalLayerMask
	docBlocks  *format.TaggedBlocks

	linked      *LinkedLayerStore
	sourceCodec imageio.Codec
}

// NewDocument creates an empty document for authoring.
func NewDocument(mode ColorMode, depth uint16, width, height uint32) (*Document, error) {
	header := format.FileHeader{
		Version:   format.VersionPSD,
		Channels:  uint16(max(mode.ColorChannels(), 1)),
		Width:     width,
		Height:    height,
		Depth:     depth,
		ColorMode: mode,
	}
	if width > format.VersionPSD.MaxDimension() || height > format.VersionPSD.MaxDimension() {
		header.Version = format.VersionPSB
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}
	doc := &Document{
		width:       width,
		height:      height,
		depth:       depth,
		colorMode:   mode,
		resources:   &format.ImageResources{},
		colorData:   &format.ColorModeData{},
		docBlocks:   &format.TaggedBlocks{},
		linked:      NewLinkedLayerStore(),
		sourceCodec: imageio.Default{},
	}
	doc.resources.SetResolutionDPI(72)
	return doc, nil
}

// Width returns the canvas width in pixels.
func (d *Document) Width() uint32 { return d.width }

// Height returns the canvas height in pixels.
func (d *Document) Height() uint32 { return d.height }

// Depth returns the channel bit depth.
func (d *Document) Depth() uint16 { return d.depth }

// ColorMode returns the document color mode.
func (d *Document) ColorMode() ColorMode { return d.colorMode }

// ColorChannels returns the number of color channels of the color mode.
// Indexing channels is supported for RGB, CMYK and Grayscale documents.
func (d *Document) ColorChannels() (int, error) {
	switch d.colorMode {
	case ColorModeRGB, ColorModeCMYK, ColorModeGrayscale:
		return d.colorMode.ColorChannels(), nil
	default:
		return 0, fmt.Errorf("%w: channel indexing for color mode %s", ErrUnsupported, d.colorMode)
	}
}

// DPI returns the document resolution.
func (d *Document) DPI() float64 {
	return d.resources.ResolutionDPI()
}

// SetDPI changes the document resolution.
func (d *Document) SetDPI(dpi float64) {
	d.resources.SetResolutionDPI(dpi)
}

// ICCProfile returns the raw ICC profile bytes, nil when absent.
func (d *Document) ICCProfile() []byte {
	return d.resources.ICCProfile()
}

// SetICCProfile attaches raw ICC profile bytes; nil removes them.
func (d *Document) SetICCProfile(profile []byte) {
	d.resources.SetICCProfile(profile)
}

// Resources exposes the ordered image resource blocks.
func (d *Document) Resources() *format.ImageResources {
	return d.resources
}

// Layers returns the root layers, topmost first.
func (d *Document) Layers() []Layer {
	return d.layers
}

// AddLayer appends a layer at the bottom of the root.
func (d *Document) AddLayer(layer Layer) {
	d.layers = append(d.layers, layer)
}

// InsertLayer places a layer at the given root position.
func (d *Document) InsertLayer(index int, layer Layer) {
	if index < 0 {
		index = 0
	}
	if index > len(d.layers) {
		index = len(d.layers)
	}
	d.layers = append(d.layers, nil)
	copy(d.layers[index+1:], d.layers[index:])
	d.layers[index] = layer
}

// RemoveLayer detaches a layer from the root, returning whether it was
// present.
func (d *Document) RemoveLayer(layer Layer) bool {
	for i, l := range d.layers {
		if l == layer {
			d.layers = append(d.layers[:i], d.layers[i+1:]...)
			return true
		}
	}
	return false
}

// FindLayer walks a '/'-separated path through the layer tree and
// returns the first match. Names within a group need not be unique.
func (d *Document) FindLayer(path string) (Layer, bool) {
	parts := strings.Split(path, "/")
	layers := d.layers
	for i, part := range parts {
		var found Layer
		for _, layer := range layers {
			if layer.Name() == part {
				found = layer
				break
			}
		}
		if found == nil {
			return nil, false
		}
		if i == len(parts)-1 {
			return found, true
		}
		group, ok := found.(*GroupLayer)
		if !ok {
			return nil, false
		}
		layers = group.Children()
	}
	return nil, false
}

// MergedImage returns the flattened composite channels, if present.
func (d *Document) MergedImage() []*Channel {
	return d.mergedImage
}

// SetMergedImage replaces the flattened composite channels.
func (d *Document) SetMergedImage(channels []*Channel) {
	d.mergedImage = channels
}

// LinkedLayers returns the document's linked-layer store.
func (d *Document) LinkedLayers() *LinkedLayerStore {
	return d.linked
}

// SourceCodec returns the codec used to decode smart-object sources.
func (d *Document) SourceCodec() imageio.Codec {
	return d.sourceCodec
}

// SetSourceCodec replaces the smart-object source codec.
func (d *Document) SetSourceCodec(codec imageio.Codec) {
	if codec == nil {
		codec = imageio.Default{}
	}
	d.sourceCodec = codec
}

// walkLayers visits every layer depth-first, topmost first. The visitor
// returns false to stop the walk.
func walkLayers(layers []Layer, visit func(Layer) bool) bool {
	for _, layer := range layers {
		if !visit(layer) {
			return false
		}
		if group, ok := layer.(*GroupLayer); ok {
			if !walkLayers(group.Children(), visit) {
				return false
			}
		}
	}
	return true
}

// Walk visits every layer of the document depth-first.
func (d *Document) Walk(visit func(Layer) bool) {
	walkLayers(d.layers, visit)
}

// referencedHashes collects the linked-layer hashes still referenced by
// smart-object layers, for store garbage collection at write time.
func (d *Document) referencedHashes() map[string]bool {
	out := make(map[string]bool)
	d.Walk(func(l Layer) bool {
		if so, ok := l.(*SmartObjectLayer); ok {
			out[so.Hash()] = true
		}
		return true
	})
	return out
}
