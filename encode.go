package psd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/gopsd/psd/format"
	"github.com/gopsd/psd/internal/compression"
	"github.com/gopsd/psd/internal/fileio"
)

// SmartObjectRenderer produces the rendered channel planes of a
// smart-object layer from its source and warp. The render package
// registers the CPU implementation; encoding falls back to transparent
// planes when none is registered.
type SmartObjectRenderer func(doc *Document, layer *SmartObjectLayer, workers int) ([]*Channel, error)

var smartObjectRenderer SmartObjectRenderer

// RegisterSmartObjectRenderer installs the renderer used to materialize
// smart-object pixels at write time. Typically called from the render
// package's init.
func RegisterSmartObjectRenderer(fn SmartObjectRenderer) {
	smartObjectRenderer = fn
}

// EncodeFile writes the document to the file at path.
func EncodeFile(doc *Document, path string, opts *EncodeOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(doc, f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes the document to w. Writing runs in two passes: sections
// are assembled and sized in memory first, then streamed out so every
// forward length field is final before its body.
func Encode(doc *Document, w io.Writer, opts *EncodeOptions) error {
	opts = opts.orDefault()

	version := opts.Version
	if version == 0 {
		version = format.VersionPSD
		if doc.width > format.VersionPSD.MaxDimension() || doc.height > format.VersionPSD.MaxDimension() {
			version = format.VersionPSB
		}
	}

	channelCount := max(doc.colorMode.ColorChannels(), 1)
	if len(doc.mergedImage) > channelCount {
		channelCount = len(doc.mergedImage)
	}
	header := &format.FileHeader{
		Version:   version,
		Channels:  uint16(channelCount),
		Height:    doc.height,
		Width:     doc.width,
		Depth:     doc.depth,
		ColorMode: doc.colorMode,
	}
	if err := header.Validate(); err != nil {
		return err
	}

	enc := &encoder{doc: doc, header: header, opts: opts}

	records, err := enc.flatten()
	if err != nil {
		return err
	}
	if err := opts.Progress.check("layers", 0.4); err != nil {
		return err
	}

	section := &format.LayerAndMaskInfo{
		Info: &format.LayerInfo{
			AlphaIsMerged: doc.alphaIsMerged,
			Records:       records,
		},
		GlobalMask: doc.globalMask,
		Tagged:     enc.documentBlocks(),
	}

	imageData, err := enc.mergedImageData()
	if err != nil {
		return err
	}
	if err := opts.Progress.check("image", 0.7); err != nil {
		return err
	}

	f := fileio.NewWriter(w, 0)
	if err := header.Write(f); err != nil {
		return err
	}
	if err := doc.colorModeData().Write(f); err != nil {
		return err
	}
	if err := doc.resources.Write(f); err != nil {
		return err
	}
	if err := section.Write(f, version, doc.depth); err != nil {
		return err
	}
	if err := imageData.Write(f); err != nil {
		return err
	}
	if err := opts.Progress.check("done", 1); err != nil {
		return err
	}
	Logger().Info("document written",
		slog.String("version", version.String()),
		slog.Int("records", len(records)))
	return nil
}

// colorModeData returns the preserved color mode section, or an empty one
// for authored documents.
func (d *Document) colorModeData() *format.ColorModeData {
	if d.colorData != nil {
		return d.colorData
	}
	return &format.ColorModeData{}
}

type encoder struct {
	doc    *Document
	header *format.FileHeader
	opts   *EncodeOptions
}

// documentBlocks builds the document-scope tagged blocks: the preserved
// ones plus a rebuilt linked-layer block after garbage collection.
func (e *encoder) documentBlocks() *format.TaggedBlocks {
	out := &format.TaggedBlocks{}
	out.Blocks = append(out.Blocks, e.doc.docBlocks.Blocks...)

	e.doc.linked.GarbageCollect(e.doc.referencedHashes())

	hashes := e.doc.LinkedLayers().Hashes()
	sort.Strings(hashes)
	var entries []format.LinkedLayerEntry
	for _, hash := range hashes {
		if entry, ok := e.doc.LinkedLayers().Get(hash); ok {
			entries = append(entries, entry.toFormat())
		}
	}

	if len(entries) > 0 {
		payload, err := format.EncodeLinkedLayers(entries)
		if err == nil {
			out.Put(&format.TaggedBlock{
				Signature: format.SigResource,
				Key:       format.KeyLinkedData2,
				Data:      payload,
			})
		} else {
			Logger().Warn("linked layer store not written", slog.String("error", err.Error()))
		}
	}
	return out
}

// flatten converts the layer forest to the flat reverse-ordered record
// list: depth-first emission with a trailing bounding divider per group,
// then a reversal into file order.
func (e *encoder) flatten() ([]*format.LayerRecord, error) {
	var out []*format.LayerRecord

	var emit func(layers []Layer) error
	emit = func(layers []Layer) error {
		for _, layer := range layers {
			switch l := layer.(type) {
			case *GroupLayer:
				record, err := e.groupRecord(l)
				if err != nil {
					return err
				}
				out = append(out, record)
				if err := emit(l.Children()); err != nil {
					return err
				}
				out = append(out, e.boundingRecord())
			default:
				record, err := e.layerRecord(layer)
				if err != nil {
					return err
				}
				out = append(out, record)
			}
		}
		return nil
	}
	if err := emit(e.doc.layers); err != nil {
		return nil, err
	}

	// The tree emits topmost-first; the file stores bottom-to-top.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// baseRecord fills the wire fields shared by every layer variant.
func (e *encoder) baseRecord(layer Layer) (*format.LayerRecord, error) {
	base := layer.base()
	extents := GenerateExtents(base.coords, e.header.Width, e.header.Height)

	var flags uint8
	if !base.visible {
		flags |= format.FlagHidden
	}
	if base.locked {
		flags |= format.FlagTransparencyProtected
	}

	var clipping uint8
	if base.clipped {
		clipping = 1
	}

	record := &format.LayerRecord{
		Top:        extents.Top,
		Left:       extents.Left,
		Bottom:     extents.Bottom,
		Right:      extents.Right,
		BlendKey:   base.blendMode.Key(),
		Opacity:    base.opacity,
		Clipping:   clipping,
		Flags:      flags,
		LegacyName: base.name,
		Tagged:     &format.TaggedBlocks{},
	}
	if base.blendMode == BlendPassthrough {
		// The record itself cannot carry passthrough; the divider does.
		record.BlendKey = BlendNormal.Key()
	}

	record.Tagged.Put(&format.TaggedBlock{
		Key:  format.KeyUnicodeName,
		Data: format.EncodeUnicodeName(base.name),
	})
	if base.id != 0 {
		record.Tagged.Put(&format.TaggedBlock{
			Key:  format.KeyLayerID,
			Data: format.EncodeLayerID(base.id),
		})
	}
	if base.sheetColor != 0 {
		record.Tagged.Put(&format.TaggedBlock{
			Key:  format.KeySheetColor,
			Data: format.EncodeSheetColor(base.sheetColor),
		})
	}
	if base.locked {
		record.Tagged.Put(&format.TaggedBlock{
			Key:  format.KeyProtection,
			Data: format.EncodeProtection(1),
		})
	}
	if base.hasReference {
		record.Tagged.Put(&format.TaggedBlock{
			Key:  format.KeyReferencePoint,
			Data: format.EncodeReferencePoint(base.referenceX, base.referenceY),
		})
	}

	if err := e.attachMask(record, base.mask); err != nil {
		return nil, err
	}
	return record, nil
}

// attachMask encodes the mask adjustment data and its channel payload.
func (e *encoder) attachMask(record *format.LayerRecord, mask *Mask) error {
	if mask == nil {
		return nil
	}
	m := &format.MaskData{DefaultColor: mask.DefaultColor}
	if mask.Relative {
		m.Flags |= format.MaskFlagRelative
	}
	if mask.Disabled {
		m.Flags |= format.MaskFlagDisabled
	}
	if mask.Density != 255 || mask.Feather != 0 {
		m.Flags |= format.MaskFlagHasParameters
		if mask.Density != 255 {
			density := mask.Density
			m.UserDensity = &density
		}
		if mask.Feather != 0 {
			feather := mask.Feather
			m.UserFeather = &feather
		}
	}

	if mask.Channel != nil {
		cx, cy := mask.Channel.Center()
		coords := ChannelCoordinates{
			Width:   int32(mask.Channel.Width()),
			Height:  int32(mask.Channel.Height()),
			CenterX: cx,
			CenterY: cy,
		}
		extents := GenerateExtents(coords, e.header.Width, e.header.Height)
		m.Top, m.Left, m.Bottom, m.Right = extents.Top, extents.Left, extents.Bottom, extents.Right

		payload, err := e.encodeChannel(mask.Channel)
		if err != nil {
			return err
		}
		record.Channels = append(record.Channels, format.ChannelInfo{ID: int16(ChannelUserMask)})
		record.ChannelData = append(record.ChannelData, payload)
	}
	record.Mask = m
	return nil
}

// encodeChannel compresses a channel with its selected codec.
func (e *encoder) encodeChannel(channel *Channel) (format.ChannelPayload, error) {
	codec := channel.Compression()
	if e.opts.Compression != nil {
		codec = *e.opts.Compression
	}
	pixels, err := channel.Data(e.opts.Workers)
	if err != nil {
		return format.ChannelPayload{}, err
	}
	params := compression.Params{
		Width:   int(channel.Width()),
		Height:  int(channel.Height()),
		Depth:   int(channel.Depth()),
		PSB:     e.header.Version == format.VersionPSB,
		Workers: e.opts.Workers,
	}
	data, err := compression.Encode(compression.Codec(codec), pixels, params)
	if err != nil {
		return format.ChannelPayload{}, err
	}
	return format.ChannelPayload{Compression: uint16(codec), Data: data}, nil
}

// attachChannels encodes the pixel channels of a layer into the record.
func (e *encoder) attachChannels(record *format.LayerRecord, channels []*Channel) error {
	for _, channel := range channels {
		payload, err := e.encodeChannel(channel)
		if err != nil {
			return fmt.Errorf("layer %q channel %d: %w", record.LegacyName, channel.ID(), err)
		}
		record.Channels = append(record.Channels, format.ChannelInfo{ID: int16(channel.ID())})
		record.ChannelData = append(record.ChannelData, payload)
	}
	return nil
}

// emptyChannels declares the color and alpha planes with empty payloads,
// as carried by group and divider records.
func (e *encoder) emptyChannels(record *format.LayerRecord) {
	count := max(e.doc.colorMode.ColorChannels(), 1)
	for id := -1; id < count; id++ {
		record.Channels = append(record.Channels, format.ChannelInfo{ID: int16(id)})
		record.ChannelData = append(record.ChannelData, format.ChannelPayload{
			Compression: uint16(CompressionRaw),
		})
	}
}

// layerRecord encodes an image, adjustment or smart-object layer.
func (e *encoder) layerRecord(layer Layer) (*format.LayerRecord, error) {
	record, err := e.baseRecord(layer)
	if err != nil {
		return nil, err
	}

	switch l := layer.(type) {
	case *ImageLayer:
		if err := e.attachChannels(record, l.Channels()); err != nil {
			return nil, err
		}
	case *AdjustmentLayer:
		if err := e.attachChannels(record, l.Channels()); err != nil {
			return nil, err
		}
	case *SmartObjectLayer:
		channels := l.Channels()
		if len(channels) == 0 && smartObjectRenderer != nil {
			if channels, err = smartObjectRenderer(e.doc, l, e.opts.Workers); err != nil {
				return nil, err
			}
			l.SetChannels(channels)
		}
		if err := e.attachChannels(record, channels); err != nil {
			return nil, err
		}
		descriptor, err := format.EncodeDescriptor(l.placedDescriptor())
		if err != nil {
			return nil, err
		}
		payload := append([]byte("soLD\x00\x00\x00\x04"), descriptor...)
		record.Tagged.Put(&format.TaggedBlock{
			Key:  format.KeyPlacedLayerData,
			Data: payload,
		})
	default:
		return nil, fmt.Errorf("%w: layer type %T", ErrUnsupported, layer)
	}

	if len(record.Channels) == 0 {
		e.emptyChannels(record)
	}

	// Preserved blocks go last, matching their original trailing position.
	record.Tagged.Blocks = append(record.Tagged.Blocks, layer.base().extra.Blocks...)
	return record, nil
}

// groupRecord encodes the folder divider record opening a group.
func (e *encoder) groupRecord(group *GroupLayer) (*format.LayerRecord, error) {
	record, err := e.baseRecord(group)
	if err != nil {
		return nil, err
	}
	record.Flags |= format.FlagBit4Meaningful | format.FlagPixelDataIrrelevant

	kind := format.DividerClosedFolder
	if group.open {
		kind = format.DividerOpenFolder
	}
	divider := &format.SectionDivider{Kind: kind, BlendKey: group.blendMode.Key()}
	record.Tagged.Put(&format.TaggedBlock{
		Key:  format.KeySectionDivider,
		Data: divider.Encode(),
	})

	e.emptyChannels(record)
	record.Tagged.Blocks = append(record.Tagged.Blocks, group.extra.Blocks...)
	return record, nil
}

// boundingRecord encodes the hidden divider record closing a group.
func (e *encoder) boundingRecord() *format.LayerRecord {
	record := &format.LayerRecord{
		BlendKey:   BlendNormal.Key(),
		Opacity:    255,
		Flags:      format.FlagBit4Meaningful | format.FlagPixelDataIrrelevant,
		LegacyName: "</Layer group>",
		Tagged:     &format.TaggedBlocks{},
	}
	divider := &format.SectionDivider{Kind: format.DividerBoundingSection}
	record.Tagged.Put(&format.TaggedBlock{
		Key:  format.KeySectionDivider,
		Data: divider.Encode(),
	})
	e.emptyChannels(record)
	return record
}

// mergedImageData builds the closing section from the flattened
// composite, or from blank planes when the document carries none.
func (e *encoder) mergedImageData() (*format.ImageData, error) {
	params := compression.Params{
		Width:   int(e.header.Width),
		Height:  int(e.header.Height),
		Depth:   int(e.header.Depth),
		PSB:     e.header.Version == format.VersionPSB,
		Workers: e.opts.Workers,
	}
	elem := max(int(e.header.Depth)/8, 1)
	planeBytes := params.Width * params.Height * elem

	planes := make([][]byte, e.header.Channels)
	for i := range planes {
		if i < len(e.doc.mergedImage) {
			pixels, err := e.doc.mergedImage[i].Data(e.opts.Workers)
			if err != nil {
				return nil, err
			}
			planes[i] = pixels
			continue
		}
		planes[i] = make([]byte, planeBytes)
	}

	// Merged data is RLE with the scanline tables of every channel up
	// front, then the row data channel by channel.
	countSize := 2
	if params.PSB {
		countSize = 4
	}
	var tables []byte
	var rows []byte
	for _, plane := range planes {
		payload, err := compression.Encode(compression.RLE, plane, params)
		if err != nil {
			return nil, err
		}
		tableLen := params.Height * countSize
		tables = append(tables, payload[:tableLen]...)
		rows = append(rows, payload[tableLen:]...)
	}
	return &format.ImageData{
		Compression: uint16(CompressionRLE),
		Data:        append(tables, rows...),
	}, nil
}
