package psd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/gopsd/psd/format"
	"github.com/gopsd/psd/imageio"
	"github.com/gopsd/psd/internal/compression"
	"github.com/gopsd/psd/internal/fileio"
	"github.com/gopsd/psd/warp"
)

// Source is the input handle for decoding: sequential reads for section
// parsing plus concurrent positioned reads for bulk channel data.
type Source = fileio.Source

// DecodeFile decodes the document at path.
func DecodeFile(path string, opts *DecodeOptions) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Decode(f, uint64(info.Size()), opts)
}

// DecodeBytes decodes a document held in memory.
func DecodeBytes(data []byte, opts *DecodeOptions) (*Document, error) {
	return Decode(bytes.NewReader(data), uint64(len(data)), opts)
}

// Decode reads a document from src. Decoding errors are fatal to the
// operation: the partially constructed document is discarded.
func Decode(src Source, size uint64, opts *DecodeOptions) (*Document, error) {
	opts = opts.orDefault()
	f := fileio.NewReader(src, size)

	header, err := format.ReadFileHeader(f)
	if err != nil {
		return nil, err
	}
	if err := opts.Progress.check("header", 0.05); err != nil {
		return nil, err
	}

	colorData, err := format.ReadColorModeData(f, header.ColorMode)
	if err != nil {
		return nil, err
	}
	resources, err := format.ReadImageResources(f)
	if err != nil {
		return nil, err
	}
	if err := opts.Progress.check("resources", 0.15); err != nil {
		return nil, err
	}

	section, err := format.ReadLayerAndMaskInfo(f, header.Version)
	if err != nil {
		return nil, err
	}
	if err := opts.Progress.check("layers", 0.5); err != nil {
		return nil, err
	}

	var imageData *format.ImageData
	if !opts.SkipMergedImage {
		if imageData, err = format.ReadImageData(f); err != nil {
			return nil, err
		}
	}
	if err := opts.Progress.check("image", 0.7); err != nil {
		return nil, err
	}

	doc := &Document{
		width:       header.Width,
		height:      header.Height,
		depth:       header.Depth,
		colorMode:   header.ColorMode,
		resources:   resources,
		colorData:   colorData,
		globalMask:  section.GlobalMask,
		docBlocks:   section.Tagged,
		linked:      NewLinkedLayerStore(),
		sourceCodec: imageio.Default{},
	}
	if opts.SourceCodec != nil {
		doc.sourceCodec = opts.SourceCodec
	}

	decodeLinkedStore(doc)

	if section.Info != nil {
		doc.alphaIsMerged = section.Info.AlphaIsMerged
		builder := &treeBuilder{doc: doc, header: header, workers: opts.Workers}
		doc.layers, err = builder.build(section.Info.Records)
		if err != nil {
			return nil, err
		}
	}
	if err := opts.Progress.check("tree", 0.9); err != nil {
		return nil, err
	}

	if imageData != nil {
		doc.mergedImage, err = decodeMergedImage(imageData, header, opts.Workers)
		if err != nil {
			return nil, err
		}
	}
	if err := opts.Progress.check("done", 1); err != nil {
		return nil, err
	}
	Logger().Info("document decoded",
		slog.String("version", header.Version.String()),
		slog.Int("layers", len(doc.layers)))
	return doc, nil
}

// decodeLinkedStore lifts the linked-layer tagged blocks out of the
// document scope into the store. The blocks are rebuilt on write.
func decodeLinkedStore(doc *Document) {
	for _, key := range []string{
		format.KeyLinkedData, format.KeyLinkedDataExternal,
		format.KeyLinkedData2, format.KeyLinkedData3,
	} {
		block, ok := doc.docBlocks.Get(key)
		if !ok {
			continue
		}
		entries, err := format.ParseLinkedLayers(block.Data)
		if err != nil {
			// Parse failures downgrade to raw preservation.
			Logger().Warn("linked layer block kept as raw bytes",
				slog.String("key", key), slog.String("error", err.Error()))
			continue
		}
		for _, e := range entries {
			entry := entryFromFormat(e)
			doc.linked.mu.Lock()
			doc.linked.entries[entry.Hash] = entry
			doc.linked.mu.Unlock()
		}
		doc.docBlocks.Remove(key)
	}
}

// treeBuilder converts the flat reverse-ordered record list into the
// layer forest using the section divider markers.
type treeBuilder struct {
	doc     *Document
	header  *format.FileHeader
	workers int
}

// build walks the records topmost-first (reverse record order): a folder
// divider opens a group whose record carries the group's own metadata, a
// bounding divider closes it.
func (b *treeBuilder) build(records []*format.LayerRecord) ([]Layer, error) {
	var root []Layer
	var stack []*GroupLayer

	attach := func(l Layer) {
		if len(stack) > 0 {
			stack[len(stack)-1].Add(l)
		} else {
			root = append(root, l)
		}
	}

	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		divider := readDivider(record)

		switch {
		case divider != nil && (divider.Kind == format.DividerOpenFolder || divider.Kind == format.DividerClosedFolder):
			group, err := b.groupFromRecord(record, divider)
			if err != nil {
				return nil, err
			}
			attach(group)
			stack = append(stack, group)
		case divider != nil && divider.Kind == format.DividerBoundingSection:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unmatched section divider", ErrStructural)
			}
			stack = stack[:len(stack)-1]
		default:
			layer, err := b.layerFromRecord(record)
			if err != nil {
				return nil, err
			}
			attach(layer)
		}
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("%w: %d unterminated groups", ErrStructural, len(stack))
	}
	return root, nil
}

// readDivider extracts a section divider, tolerating parse failures.
func readDivider(record *format.LayerRecord) *format.SectionDivider {
	block, ok := record.Tagged.Get(format.KeySectionDivider)
	if !ok {
		block, ok = record.Tagged.Get(format.KeySectionDividerAlt)
	}
	if !ok {
		return nil
	}
	divider, err := format.ParseSectionDivider(block.Data)
	if err != nil {
		Logger().Warn("section divider kept as raw bytes", slog.String("error", err.Error()))
		return nil
	}
	return divider
}

// fillBase populates the shared layer state from a record and consumes
// the typed tagged blocks; whatever remains is preserved verbatim.
func (b *treeBuilder) fillBase(base *layerBase, record *format.LayerRecord) error {
	base.name = record.LegacyName
	base.opacity = record.Opacity
	base.clipped = record.Clipping != 0
	base.visible = record.Flags&format.FlagHidden == 0
	base.locked = record.Flags&format.FlagTransparencyProtected != 0
	base.extra = &format.TaggedBlocks{}

	mode, err := BlendModeFromKey(record.BlendKey)
	if err != nil {
		Logger().Warn("unknown blend mode key, using normal", slog.String("key", record.BlendKey))
		mode = BlendNormal
	}
	base.blendMode = mode

	extents := ChannelExtents{Top: record.Top, Left: record.Left, Bottom: record.Bottom, Right: record.Right}
	base.coords = GenerateCoordinates(extents, b.header.Width, b.header.Height)

	for _, block := range record.Tagged.Blocks {
		switch block.Key {
		case format.KeyUnicodeName:
			if name, err := format.ParseUnicodeName(block.Data); err == nil {
				base.name = name
			} else {
				Logger().Warn("unicode name kept as raw bytes", slog.String("error", err.Error()))
				base.extra.Blocks = append(base.extra.Blocks, block)
			}
		case format.KeyLayerID:
			if id, err := format.ParseLayerID(block.Data); err == nil {
				base.id = id
			} else {
				base.extra.Blocks = append(base.extra.Blocks, block)
			}
		case format.KeySheetColor:
			if color, err := format.ParseSheetColor(block.Data); err == nil {
				base.sheetColor = color
			} else {
				base.extra.Blocks = append(base.extra.Blocks, block)
			}
		case format.KeyProtection:
			if flags, err := format.ParseProtection(block.Data); err == nil {
				base.locked = base.locked || flags&1 != 0
			} else {
				base.extra.Blocks = append(base.extra.Blocks, block)
			}
		case format.KeyReferencePoint:
			if x, y, err := format.ParseReferencePoint(block.Data); err == nil {
				base.referenceX, base.referenceY = x, y
				base.hasReference = true
			} else {
				base.extra.Blocks = append(base.extra.Blocks, block)
			}
		case format.KeySectionDivider, format.KeySectionDividerAlt:
			// Regenerated from the tree shape on write.
		default:
			base.extra.Blocks = append(base.extra.Blocks, block)
		}
	}
	return nil
}

// decodeChannels converts the record's channel payloads into model
// channels and an optional mask. PSB selects 32-bit RLE scanline counts.
func (b *treeBuilder) decodeChannels(record *format.LayerRecord, coords ChannelCoordinates) ([]*Channel, *Mask, error) {
	width := uint32(coords.Width)
	height := uint32(coords.Height)

	var channels []*Channel
	var mask *Mask
	for i, info := range record.Channels {
		payload := record.ChannelData[i]
		id := ChannelID(info.ID)

		chWidth, chHeight := width, height
		if id.IsMask() && record.Mask != nil {
			chWidth = uint32(record.Mask.Right - record.Mask.Left)
			chHeight = uint32(record.Mask.Bottom - record.Mask.Top)
		}
		if chWidth == 0 || chHeight == 0 || len(payload.Data) == 0 {
			// Divider and group records declare their planes with empty
			// payloads.
			continue
		}

		params := compression.Params{
			Width:   int(chWidth),
			Height:  int(chHeight),
			Depth:   int(b.header.Depth),
			PSB:     b.header.Version == format.VersionPSB,
			Workers: b.workers,
		}
		pixels, err := compression.Decode(compression.Codec(payload.Compression), payload.Data, params)
		if err != nil {
			return nil, nil, fmt.Errorf("channel %d: %w", info.ID, err)
		}
		channel, err := NewChannel(id, pixels, chWidth, chHeight, b.header.Depth, b.workers)
		if err != nil {
			return nil, nil, err
		}
		channel.SetCompression(Compression(payload.Compression))

		if id == ChannelUserMask || id == ChannelRealMask {
			if mask == nil {
				mask = maskFromRecord(record, channel, b.header)
			}
			continue
		}
		channels = append(channels, channel)
	}
	if mask == nil && record.Mask != nil {
		mask = maskFromRecord(record, nil, b.header)
	}
	return channels, mask, nil
}

// maskFromRecord converts the record's mask adjustment data.
func maskFromRecord(record *format.LayerRecord, channel *Channel, header *format.FileHeader) *Mask {
	m := record.Mask
	if m == nil {
		return nil
	}
	mask := &Mask{
		Channel:      channel,
		DefaultColor: m.DefaultColor,
		Relative:     m.Flags&format.MaskFlagRelative != 0,
		Disabled:     m.Flags&format.MaskFlagDisabled != 0,
		Density:      255,
	}
	if m.UserDensity != nil {
		mask.Density = *m.UserDensity
	}
	if m.UserFeather != nil {
		mask.Feather = *m.UserFeather
	}
	if channel != nil {
		extents := ChannelExtents{Top: m.Top, Left: m.Left, Bottom: m.Bottom, Right: m.Right}
		coords := GenerateCoordinates(extents, header.Width, header.Height)
		channel.SetCenter(coords.CenterX, coords.CenterY)
	}
	return mask
}

// groupFromRecord builds a group layer from its folder divider record.
func (b *treeBuilder) groupFromRecord(record *format.LayerRecord, divider *format.SectionDivider) (*GroupLayer, error) {
	group := NewGroupLayer("")
	if err := b.fillBase(&group.layerBase, record); err != nil {
		return nil, err
	}
	group.open = divider.Kind == format.DividerOpenFolder
	if divider.BlendKey != "" {
		if mode, err := BlendModeFromKey(divider.BlendKey); err == nil {
			group.blendMode = mode
		}
	}
	_, mask, err := b.decodeChannels(record, group.coords)
	if err != nil {
		return nil, err
	}
	group.mask = mask
	return group, nil
}

// layerFromRecord builds an image, smart-object or adjustment layer.
func (b *treeBuilder) layerFromRecord(record *format.LayerRecord) (Layer, error) {
	// Smart objects are marked by their placed-layer block.
	if block, ok := record.Tagged.Get(format.KeyPlacedLayerData); ok {
		if layer, err := b.smartObjectFromRecord(record, block); err == nil {
			return layer, nil
		} else {
			Logger().Warn("placed layer kept as raw bytes", slog.String("error", err.Error()))
		}
	}

	for _, block := range record.Tagged.Blocks {
		if adjustmentKeys[block.Key] {
			layer := NewAdjustmentLayer("")
			if err := b.fillBase(&layer.layerBase, record); err != nil {
				return nil, err
			}
			channels, mask, err := b.decodeChannels(record, layer.coords)
			if err != nil {
				return nil, err
			}
			layer.channels = channels
			layer.mask = mask
			return layer, nil
		}
	}

	layer := NewImageLayer("")
	if err := b.fillBase(&layer.layerBase, record); err != nil {
		return nil, err
	}
	channels, mask, err := b.decodeChannels(record, layer.coords)
	if err != nil {
		return nil, err
	}
	layer.channels = channels
	layer.mask = mask
	return layer, nil
}

// decodeMergedImage converts the merged image section into per-plane
// channels of the canvas size.
func decodeMergedImage(data *format.ImageData, header *format.FileHeader, workers int) ([]*Channel, error) {
	planes, err := decodeMergedPlanes(data, header, workers)
	if err != nil {
		return nil, err
	}
	channels := make([]*Channel, 0, len(planes))
	for i, plane := range planes {
		id := ChannelID(i)
		if colorCount := header.ColorMode.ColorChannels(); colorCount > 0 && i >= colorCount {
			id = ChannelAlpha - ChannelID(i-colorCount)
			// First extra plane is alpha (-1); further planes descend.
		}
		channel, err := NewChannel(id, plane, header.Width, header.Height, header.Depth, workers)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

// decodeMergedPlanes splits the merged payload into per-channel pixel
// planes. RLE merged data fronts the scanline tables of every channel.
func decodeMergedPlanes(data *format.ImageData, header *format.FileHeader, workers int) ([][]byte, error) {
	channels := int(header.Channels)
	params := compression.Params{
		Width:   int(header.Width),
		Height:  int(header.Height),
		Depth:   int(header.Depth),
		PSB:     header.Version == format.VersionPSB,
		Workers: workers,
	}
	elem := max(int(header.Depth)/8, 1)
	planeBytes := params.Width * params.Height * elem

	switch compression.Codec(data.Compression) {
	case compression.Raw:
		if len(data.Data) < planeBytes*channels {
			return nil, fmt.Errorf("%w: merged image holds %d of %d bytes",
				ErrCompression, len(data.Data), planeBytes*channels)
		}
		planes := make([][]byte, channels)
		for i := range planes {
			var err error
			planes[i], err = compression.Decode(compression.Raw, data.Data[i*planeBytes:(i+1)*planeBytes], params)
			if err != nil {
				return nil, err
			}
		}
		return planes, nil

	case compression.RLE:
		countSize := 2
		if params.PSB {
			countSize = 4
		}
		tableSize := channels * params.Height * countSize
		if len(data.Data) < tableSize {
			return nil, fmt.Errorf("%w: merged rle table truncated", ErrCompression)
		}
		// Per-channel row counts, channel-major; data follows in the
		// same order.
		rowLens := make([][]int, channels)
		offset := 0
		for c := range rowLens {
			rowLens[c] = make([]int, params.Height)
			for r := range rowLens[c] {
				if params.PSB {
					rowLens[c][r] = int(beUint32(data.Data[offset:]))
				} else {
					rowLens[c][r] = int(beUint16(data.Data[offset:]))
				}
				offset += countSize
			}
		}
		planes := make([][]byte, channels)
		for c := 0; c < channels; c++ {
			total := 0
			for _, n := range rowLens[c] {
				total += n
			}
			if offset+total > len(data.Data) {
				return nil, fmt.Errorf("%w: merged rle data truncated", ErrCompression)
			}
			// Rebuild a single-channel RLE payload: table then rows.
			payload := make([]byte, 0, params.Height*countSize+total)
			for _, n := range rowLens[c] {
				if params.PSB {
					payload = appendBeUint32(payload, uint32(n))
				} else {
					payload = appendBeUint16(payload, uint16(n))
				}
			}
			payload = append(payload, data.Data[offset:offset+total]...)
			offset += total

			plane, err := compression.Decode(compression.RLE, payload, params)
			if err != nil {
				return nil, err
			}
			planes[c] = plane
		}
		return planes, nil

	default:
		return nil, fmt.Errorf("%w: merged image compression %d", ErrUnsupported, data.Compression)
	}
}

func beUint16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func appendBeUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

func appendBeUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// smartObjectFromRecord rebuilds a smart-object layer from its placed
// layer block: the soLD identifier, a version and the placement
// descriptor carrying the content hash, warp and source dimensions.
func (b *treeBuilder) smartObjectFromRecord(record *format.LayerRecord, block *format.TaggedBlock) (*SmartObjectLayer, error) {
	if len(block.Data) < 8 || string(block.Data[:4]) != "soLD" {
		return nil, fmt.Errorf("%w: placed layer identifier", ErrInvalidSignature)
	}
	descriptor, err := format.DecodeDescriptor(block.Data[8:])
	if err != nil {
		return nil, err
	}

	layer := &SmartObjectLayer{layerBase: newLayerBase("")}
	if err := b.fillBase(&layer.layerBase, record); err != nil {
		return nil, err
	}
	layer.extra.Remove(format.KeyPlacedLayerData)
	layer.extra.Remove(format.KeyPlacedLayer)

	hash, ok := descriptor.Get("Idnt")
	if s, isString := hash.(string); ok && isString {
		layer.hash = s
	} else {
		return nil, fmt.Errorf("%w: placed layer has no source identifier", ErrStructural)
	}
	if width, ok := descriptor.GetInt("origWidth"); ok {
		layer.originalWidth = uint32(width)
	}
	if height, ok := descriptor.GetInt("origHeight"); ok {
		layer.originalHeight = uint32(height)
	}
	placed, ok := descriptor.GetDescriptor("placed")
	if !ok {
		return nil, fmt.Errorf("%w: placed layer has no warp descriptor", ErrStructural)
	}
	if layer.warp, err = warp.FromDescriptor(placed); err != nil {
		return nil, err
	}

	channels, mask, err := b.decodeChannels(record, layer.coords)
	if err != nil {
		return nil, err
	}
	layer.channels = channels
	layer.mask = mask
	return layer, nil
}
