package psd

// Mask is an optional raster mask on a layer. It owns its own channel
// with offsets and dimensions independent of the layer; the default color
// defines the pixel value outside the mask's bounding box.
type Mask struct {
	// Channel holds the mask pixels under ChannelUserMask.
	Channel *Channel

	// DefaultColor is 0 or 255 and fills the area outside the mask box.
	DefaultColor uint8

	// Relative marks the mask position as relative to the layer.
	Relative bool

	// Disabled turns the mask off without discarding it.
	Disabled bool

	// Density is the mask opacity applied on top of the pixels, 0-255.
	// 255 (the default) leaves the pixels untouched.
	Density uint8

	// Feather is the mask feather radius in pixels.
	Feather float64
}

// NewMask builds a mask around an existing mask channel.
func NewMask(channel *Channel) *Mask {
	return &Mask{
		Channel:      channel,
		DefaultColor: 0,
		Density:      255,
	}
}
