package psd

import (
	"github.com/gopsd/psd/format"
)

// Layer is the common interface of all layer variants: image layers,
// groups, smart objects and preserved adjustment layers. Concrete types
// are distinguished by type switch; section dividers are an encoding
// artifact and never appear in a built tree.
type Layer interface {
	// Name returns the layer name as Unicode text.
	Name() string
	// SetName renames the layer.
	SetName(name string)

	// BlendMode returns the blend mode.
	BlendMode() BlendMode
	// SetBlendMode changes the blend mode. BlendPassthrough is legal
	// only on groups.
	SetBlendMode(mode BlendMode) error

	// Opacity returns the layer opacity, 0-255.
	Opacity() uint8
	// SetOpacity changes the layer opacity.
	SetOpacity(opacity uint8)

	// Visible reports whether the layer is shown.
	Visible() bool
	// SetVisible shows or hides the layer.
	SetVisible(visible bool)

	// Clipped reports whether the layer clips to the one below.
	Clipped() bool
	// SetClipped changes the clipping flag.
	SetClipped(clipped bool)

	// Locked reports whether layer pixels are protected from edits.
	Locked() bool
	// SetLocked changes the protection flag.
	SetLocked(locked bool)

	// Coordinates returns the layer rectangle as center and dimensions.
	Coordinates() ChannelCoordinates
	// SetCoordinates moves and resizes the layer rectangle.
	SetCoordinates(coords ChannelCoordinates)

	// Mask returns the layer's raster mask, or nil.
	Mask() *Mask
	// SetMask attaches or removes the raster mask.
	SetMask(mask *Mask)

	// Clone returns a deep copy of the layer without a parent.
	Clone() Layer

	base() *layerBase
}

// layerBase carries the state shared by all layer variants.
type layerBase struct {
	name      string
	blendMode BlendMode
	opacity   uint8
	visible   bool
	clipped   bool
	locked    bool
	coords    ChannelCoordinates
	mask      *Mask

	// id is the lyid payload; zero when the file carried none.
	id uint32
	// sheetColor is the panel color index from lclr.
	sheetColor uint16
	// referenceX/referenceY carry the fxrp reference point.
	referenceX   float64
	referenceY   float64
	hasReference bool
	// extra preserves per-layer tagged blocks the engine does not model.
	extra *format.TaggedBlocks
}

func newLayerBase(name string) layerBase {
	return layerBase{
		name:      name,
		blendMode: BlendNormal,
		opacity:   255,
		visible:   true,
		extra:     &format.TaggedBlocks{},
	}
}

func (b *layerBase) base() *layerBase { return b }

func (b *layerBase) Name() string        { return b.name }
func (b *layerBase) SetName(name string) { b.name = name }

func (b *layerBase) BlendMode() BlendMode { return b.blendMode }

func (b *layerBase) SetBlendMode(mode BlendMode) error {
	if mode == BlendPassthrough {
		return ErrInvalidArgument
	}
	b.blendMode = mode
	return nil
}

func (b *layerBase) Opacity() uint8           { return b.opacity }
func (b *layerBase) SetOpacity(opacity uint8) { b.opacity = opacity }

func (b *layerBase) Visible() bool           { return b.visible }
func (b *layerBase) SetVisible(visible bool) { b.visible = visible }

func (b *layerBase) Clipped() bool           { return b.clipped }
func (b *layerBase) SetClipped(clipped bool) { b.clipped = clipped }

func (b *layerBase) Locked() bool          { return b.locked }
func (b *layerBase) SetLocked(locked bool) { b.locked = locked }

func (b *layerBase) Coordinates() ChannelCoordinates          { return b.coords }
func (b *layerBase) SetCoordinates(coords ChannelCoordinates) { b.coords = coords }

func (b *layerBase) Mask() *Mask        { return b.mask }
func (b *layerBase) SetMask(mask *Mask) { b.mask = mask }

// ID returns the layer id carried in the file, zero when absent.
func (b *layerBase) ID() uint32 { return b.id }

// SheetColor returns the layer panel color index.
func (b *layerBase) SheetColor() uint16 { return b.sheetColor }

// SetSheetColor changes the layer panel color index.
func (b *layerBase) SetSheetColor(color uint16) { b.sheetColor = color }

// ReferencePoint returns the layer reference point, when present.
func (b *layerBase) ReferencePoint() (x, y float64, ok bool) {
	return b.referenceX, b.referenceY, b.hasReference
}

// SetReferencePoint stores the layer reference point.
func (b *layerBase) SetReferencePoint(x, y float64) {
	b.referenceX = x
	b.referenceY = y
	b.hasReference = true
}

// ExtraBlocks exposes the preserved per-layer tagged blocks.
func (b *layerBase) ExtraBlocks() *format.TaggedBlocks { return b.extra }

// cloneBase deep-copies the shared state.
func (b *layerBase) cloneBase() layerBase {
	out := *b
	if b.mask != nil {
		mask := *b.mask
		out.mask = &mask
	}
	out.extra = &format.TaggedBlocks{}
	for _, block := range b.extra.Blocks {
		data := make([]byte, len(block.Data))
		copy(data, block.Data)
		out.extra.Blocks = append(out.extra.Blocks, &format.TaggedBlock{
			Signature: block.Signature,
			Key:       block.Key,
			Data:      data,
		})
	}
	return out
}
