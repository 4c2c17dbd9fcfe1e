package psd

// ChannelExtents is a rectangle in canvas coordinates as stored in layer
// records: (top, left, bottom, right) inclusive-exclusive integers.
type ChannelExtents struct {
	Top    int32
	Left   int32
	Bottom int32
	Right  int32
}

// Width returns the horizontal pixel extent.
func (e ChannelExtents) Width() int32 {
	return e.Right - e.Left
}

// Height returns the vertical pixel extent.
func (e ChannelExtents) Height() int32 {
	return e.Bottom - e.Top
}

// ChannelCoordinates is the library-side representation of a layer
// rectangle: a floating-point center relative to the document center plus
// integer dimensions, supporting sub-pixel layer transforms.
type ChannelCoordinates struct {
	Width   int32
	Height  int32
	CenterX float32
	CenterY float32
}

// GenerateCoordinates converts file extents to center coordinates. The
// document center is at half the canvas dimensions; odd sizes land on
// half-pixel centers, which is why the center is fractional.
func GenerateCoordinates(extents ChannelExtents, docWidth, docHeight uint32) ChannelCoordinates {
	coords := ChannelCoordinates{
		Width:  extents.Width(),
		Height: extents.Height(),
	}
	documentCenterX := float32(docWidth) / 2
	documentCenterY := float32(docHeight) / 2

	layerCenterX := float32(extents.Left) + float32(coords.Width)/2
	layerCenterY := float32(extents.Top) + float32(coords.Height)/2

	coords.CenterX = layerCenterX - documentCenterX
	coords.CenterY = layerCenterY - documentCenterY
	return coords
}

// GenerateExtents converts center coordinates back to file extents. The
// conversion truncates half-pixel centers the way the extents were
// produced, so GenerateExtents(GenerateCoordinates(e)) == e for any e.
func GenerateExtents(coords ChannelCoordinates, docWidth, docHeight uint32) ChannelExtents {
	translatedCenterX := float32(docWidth)/2 + coords.CenterX
	translatedCenterY := float32(docHeight)/2 + coords.CenterY

	return ChannelExtents{
		Top:    int32(translatedCenterY - float32(coords.Height)/2),
		Left:   int32(translatedCenterX - float32(coords.Width)/2),
		Bottom: int32(translatedCenterY + float32(coords.Height)/2),
		Right:  int32(translatedCenterX + float32(coords.Width)/2),
	}
}
