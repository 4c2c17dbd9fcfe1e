package psd

import "fmt"

// ImageLayer is a raster layer owning one channel per plane: the color
// channels of the document color mode, an optional alpha and the mask
// channel when a mask is attached.
type ImageLayer struct {
	layerBase
	channels []*Channel
}

// NewImageLayer creates an empty image layer.
func NewImageLayer(name string) *ImageLayer {
	return &ImageLayer{layerBase: newLayerBase(name)}
}

// Channels returns the layer's channels in declaration order. Mask
// channels live on the mask, not in this list.
func (l *ImageLayer) Channels() []*Channel {
	return l.channels
}

// Channel returns the channel with the given id.
func (l *ImageLayer) Channel(id ChannelID) (*Channel, bool) {
	for _, c := range l.channels {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// SetChannel attaches or replaces a channel. All non-mask channels of a
// layer must share dimensions.
func (l *ImageLayer) SetChannel(channel *Channel) error {
	if !channel.ID().IsMask() {
		for _, existing := range l.channels {
			if existing.ID().IsMask() {
				continue
			}
			if existing.Width() != channel.Width() || existing.Height() != channel.Height() {
				return fmt.Errorf("%w: channel %d is %dx%d but the layer's channels are %dx%d",
					ErrInvalidArgument, channel.ID(), channel.Width(), channel.Height(),
					existing.Width(), existing.Height())
			}
			break
		}
	}
	for i, existing := range l.channels {
		if existing.ID() == channel.ID() {
			l.channels[i] = channel
			return nil
		}
	}
	l.channels = append(l.channels, channel)
	return nil
}

// RemoveChannel detaches the channel with the given id.
func (l *ImageLayer) RemoveChannel(id ChannelID) {
	out := l.channels[:0]
	for _, c := range l.channels {
		if c.ID() != id {
			out = append(out, c)
		}
	}
	l.channels = out
}

// ChannelData decompresses a channel into a fresh buffer, leaving the
// compressed store in place.
func (l *ImageLayer) ChannelData(id ChannelID, workers int) ([]byte, error) {
	c, ok := l.Channel(id)
	if !ok {
		return nil, fmt.Errorf("%w: layer %q has no channel %d", ErrInvalidArgument, l.name, id)
	}
	return c.Data(workers)
}

// ExtractChannel moves a channel's pixel data out, leaving the channel
// empty. A second extract fails with ErrAlreadyExtracted.
func (l *ImageLayer) ExtractChannel(id ChannelID, workers int) ([]byte, error) {
	c, ok := l.Channel(id)
	if !ok {
		return nil, fmt.Errorf("%w: layer %q has no channel %d", ErrInvalidArgument, l.name, id)
	}
	return c.Extract(workers)
}

// Clone returns a deep copy of the layer. Compressed blocks are shared
// read-only between the copies; extraction state is per-copy.
func (l *ImageLayer) Clone() Layer {
	out := &ImageLayer{layerBase: l.cloneBase()}
	for _, c := range l.channels {
		out.channels = append(out.channels, c.Clone())
	}
	if out.mask != nil && out.mask.Channel != nil {
		out.mask.Channel = out.mask.Channel.Clone()
	}
	return out
}
