package render

import (
	"fmt"

	"github.com/gopsd/psd"
	"github.com/gopsd/psd/internal/parallel"
)

// region is a rectangular compositing target: normalized color planes
// and coverage over a rectangle of the canvas, origin in canvas space.
type region[P number] struct {
	x0, y0        int
	width, height int
	color         [][]P
	alpha         []P
}

func newRegion[P number](channels, x0, y0, width, height int) *region[P] {
	r := &region[P]{
		x0:     x0,
		y0:     y0,
		width:  width,
		height: height,
		color:  make([][]P, channels),
		alpha:  make([]P, width*height),
	}
	for i := range r.color {
		r.color[i] = make([]P, width*height)
	}
	return r
}

// rect is an integer rectangle in canvas space, inclusive-exclusive.
type rect struct {
	top, left, bottom, right int
}

func (r rect) empty() bool {
	return r.right <= r.left || r.bottom <= r.top
}

func intersectRect(a, b rect) rect {
	out := rect{
		top:    max(a.top, b.top),
		left:   max(a.left, b.left),
		bottom: min(a.bottom, b.bottom),
		right:  min(a.right, b.right),
	}
	if out.empty() {
		return rect{}
	}
	return out
}

func (t *region[P]) rect() rect {
	return rect{top: t.y0, left: t.x0, bottom: t.y0 + t.height, right: t.x0 + t.width}
}

// compositor walks the tree at one working precision.
type compositor[P number] struct {
	doc        *psd.Document
	opts       *Options
	colorCount int
	depth      uint16
	isRGB      bool
}

func composite[P number](doc *psd.Document, opts *Options) (*Canvas, error) {
	if doc.Depth() == 1 {
		return nil, fmt.Errorf("%w: compositing 1-bit documents", psd.ErrUnsupported)
	}
	colorCount, err := doc.ColorChannels()
	if err != nil {
		return nil, err
	}

	c := &compositor[P]{
		doc:        doc,
		opts:       opts,
		colorCount: colorCount,
		depth:      doc.Depth(),
		isRGB:      doc.ColorMode() == psd.ColorModeRGB,
	}

	target := newRegion[P](colorCount, 0, 0, int(doc.Width()), int(doc.Height()))
	if err := c.compositeLayers(target, doc.Layers(), 1); err != nil {
		return nil, err
	}

	out := NewCanvas(colorCount, target.width, target.height)
	for ch := range target.color {
		for i, v := range target.color[ch] {
			out.Color[ch][i] = float32(v)
		}
	}
	for i, v := range target.alpha {
		out.Alpha[i] = float32(v)
	}
	return out, nil
}

// compositeLayers blends layers onto the target bottom-to-top.
// opacityScale folds the opacity of enclosing passthrough groups onto
// every child.
func (c *compositor[P]) compositeLayers(target *region[P], layers []psd.Layer, opacityScale P) error {
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		if !layer.Visible() {
			continue
		}
		if err := c.compositeLayer(target, layer, opacityScale); err != nil {
			return err
		}
	}
	return nil
}

func (c *compositor[P]) compositeLayer(target *region[P], layer psd.Layer, opacityScale P) error {
	switch l := layer.(type) {
	case *psd.GroupLayer:
		return c.compositeGroup(target, l, opacityScale)
	case *psd.ImageLayer:
		return c.compositeImage(target, layer, channelLookup(l.Channel), opacityScale)
	case *psd.SmartObjectLayer:
		if len(l.Channels()) == 0 {
			channels, err := renderSmartObject(c.doc, l, c.opts.Workers, c.opts.Filter)
			if err != nil {
				return err
			}
			l.SetChannels(channels)
		}
		return c.compositeImage(target, layer, channelLookup(l.Channel), opacityScale)
	case *psd.AdjustmentLayer:
		// Preserved but not evaluated.
		return nil
	default:
		return fmt.Errorf("%w: compositing layer type %T", psd.ErrUnsupported, layer)
	}
}

// channelLookup adapts a concrete layer's channel accessor.
func channelLookup(fn func(psd.ChannelID) (*psd.Channel, bool)) func(psd.ChannelID) *psd.Channel {
	return func(id psd.ChannelID) *psd.Channel {
		if ch, ok := fn(id); ok {
			return ch
		}
		return nil
	}
}

// compositeGroup composites a group: passthrough groups inline their
// children into the parent context, every other mode renders the
// children into a private region first and blends it like a layer.
func (c *compositor[P]) compositeGroup(target *region[P], group *psd.GroupLayer, opacityScale P) error {
	if group.BlendMode() == BlendPassthrough {
		scale := opacityScale * P(group.Opacity()) / 255
		return c.compositeLayers(target, group.Children(), scale)
	}

	content := c.contentRect(group.Children())
	bounds := intersectRect(content, target.rect())
	if bounds.empty() {
		return nil
	}

	private := newRegion[P](c.colorCount, bounds.left, bounds.top,
		bounds.right-bounds.left, bounds.bottom-bounds.top)
	if err := c.compositeLayers(private, group.Children(), 1); err != nil {
		return err
	}

	return c.blendRegion(target, private, group, opacityScale)
}

// contentRect unions the extents of a layer list.
func (c *compositor[P]) contentRect(layers []psd.Layer) rect {
	var out rect
	first := true
	for _, layer := range layers {
		var r rect
		if group, ok := layer.(*psd.GroupLayer); ok {
			r = c.contentRect(group.Children())
		} else {
			r = c.layerRect(layer)
		}
		if r.empty() {
			continue
		}
		if first {
			out = r
			first = false
			continue
		}
		out.top = min(out.top, r.top)
		out.left = min(out.left, r.left)
		out.bottom = max(out.bottom, r.bottom)
		out.right = max(out.right, r.right)
	}
	return out
}

// layerRect converts layer coordinates to a canvas-space rectangle.
func (c *compositor[P]) layerRect(layer psd.Layer) rect {
	extents := psd.GenerateExtents(layer.Coordinates(), c.doc.Width(), c.doc.Height())
	return rect{
		top:    int(extents.Top),
		left:   int(extents.Left),
		bottom: int(extents.Bottom),
		right:  int(extents.Right),
	}
}

// channelPlane decodes and normalizes one channel to [0, 1].
func (c *compositor[P]) channelPlane(ch *psd.Channel) ([]P, error) {
	raw, err := ch.Data(c.opts.Workers)
	if err != nil {
		return nil, err
	}
	return normalizePlane[P](raw, c.depth), nil
}

// effectiveAlpha materializes the layer's effective coverage over the
// layer rectangle: alpha channel times mask times opacity.
func (c *compositor[P]) effectiveAlpha(layer psd.Layer, channel func(psd.ChannelID) *psd.Channel, layerRect rect, opacityScale P) ([]P, error) {
	w := layerRect.right - layerRect.left
	h := layerRect.bottom - layerRect.top
	alpha := make([]P, w*h)

	if ch := channel(psd.ChannelAlpha); ch != nil {
		plane, err := c.channelPlane(ch)
		if err != nil {
			return nil, err
		}
		copy(alpha, plane)
	} else {
		for i := range alpha {
			alpha[i] = 1
		}
	}

	opacity := P(layer.Opacity()) / 255 * opacityScale

	mask := layer.Mask()
	if mask != nil && !mask.Disabled && mask.Channel != nil {
		maskPlane, err := c.channelPlane(mask.Channel)
		if err != nil {
			return nil, err
		}
		cx, cy := mask.Channel.Center()
		maskExtents := psd.GenerateExtents(psd.ChannelCoordinates{
			Width:   int32(mask.Channel.Width()),
			Height:  int32(mask.Channel.Height()),
			CenterX: cx,
			CenterY: cy,
		}, c.doc.Width(), c.doc.Height())
		maskRect := rect{
			top: int(maskExtents.Top), left: int(maskExtents.Left),
			bottom: int(maskExtents.Bottom), right: int(maskExtents.Right),
		}
		defaultValue := P(mask.DefaultColor) / 255
		density := P(mask.Density) / 255

		for y := 0; y < h; y++ {
			canvasY := layerRect.top + y
			for x := 0; x < w; x++ {
				canvasX := layerRect.left + x
				value := defaultValue
				if canvasY >= maskRect.top && canvasY < maskRect.bottom &&
					canvasX >= maskRect.left && canvasX < maskRect.right {
					value = maskPlane[(canvasY-maskRect.top)*(maskRect.right-maskRect.left)+(canvasX-maskRect.left)]
				}
				// Density lifts the mask towards full coverage.
				value = value*density + (1 - density)
				alpha[y*w+x] *= value
			}
		}
	}

	for i := range alpha {
		alpha[i] *= opacity
	}
	return alpha, nil
}

// compositeImage blends a pixel layer onto the target region.
func (c *compositor[P]) compositeImage(target *region[P], layer psd.Layer, channel func(psd.ChannelID) *psd.Channel, opacityScale P) error {
	layerRect := c.layerRect(layer)
	bounds := intersectRect(layerRect, target.rect())
	if bounds.empty() {
		return nil
	}

	alpha, err := c.effectiveAlpha(layer, channel, layerRect, opacityScale)
	if err != nil {
		return err
	}

	mode := layer.BlendMode()
	if triple := nonSeparableKernel[P](mode); triple != nil {
		if !c.isRGB {
			return fmt.Errorf("%w: blend mode %s requires an RGB working space", psd.ErrUnsupported, mode)
		}
		if err := c.blendTriple(target, channel, layerRect, bounds, alpha, triple); err != nil {
			return err
		}
	} else {
		fn := separableKernel[P](mode)
		if fn == nil {
			return fmt.Errorf("%w: blend mode %s", psd.ErrUnsupported, mode)
		}
		// Channels blend independently over disjoint planes, so they
		// run as one parallel batch of rows per channel.
		for id := 0; id < c.colorCount; id++ {
			ch := channel(psd.ChannelID(id))
			if ch == nil {
				continue
			}
			plane, err := c.channelPlane(ch)
			if err != nil {
				return err
			}
			c.blendPlane(target.color[id], target, plane, layerRect, bounds, alpha, fn)
		}
	}

	// Coverage updates only after every color channel has blended.
	c.updateAlpha(target, bounds, layerRect, alpha)
	return nil
}

// blendPlane applies a separable kernel across the intersection in
// parallel rows.
func (c *compositor[P]) blendPlane(dst []P, target *region[P], plane []P, layerRect, bounds rect, alpha []P, fn kernel[P]) {
	layerW := layerRect.right - layerRect.left
	rows := bounds.bottom - bounds.top
	parallel.ForEach(rows, c.opts.Workers, func(row int) {
		canvasY := bounds.top + row
		layerY := canvasY - layerRect.top
		for canvasX := bounds.left; canvasX < bounds.right; canvasX++ {
			layerX := canvasX - layerRect.left
			di := (canvasY-target.y0)*target.width + (canvasX - target.x0)
			li := layerY*layerW + layerX
			dst[di] = clamp01(compositePixel(dst[di], plane[li], alpha[li], fn))
		}
	})
}

// blendTriple applies a non-separable kernel over the full color triple.
func (c *compositor[P]) blendTriple(target *region[P], channel func(psd.ChannelID) *psd.Channel, layerRect, bounds rect, alpha []P, fn tripleKernel[P]) error {
	planes := make([][]P, 3)
	for id := 0; id < 3; id++ {
		ch := channel(psd.ChannelID(id))
		if ch == nil {
			return fmt.Errorf("%w: layer misses color channel %d", psd.ErrStructural, id)
		}
		plane, err := c.channelPlane(ch)
		if err != nil {
			return err
		}
		planes[id] = plane
	}

	layerW := layerRect.right - layerRect.left
	rows := bounds.bottom - bounds.top
	parallel.ForEach(rows, c.opts.Workers, func(row int) {
		canvasY := bounds.top + row
		layerY := canvasY - layerRect.top
		for canvasX := bounds.left; canvasX < bounds.right; canvasX++ {
			layerX := canvasX - layerRect.left
			di := (canvasY-target.y0)*target.width + (canvasX - target.x0)
			li := layerY*layerW + layerX

			a := alpha[li]
			if a <= 0 {
				continue
			}
			r, g, b := fn(
				target.color[0][di], target.color[1][di], target.color[2][di],
				planes[0][li], planes[1][li], planes[2][li],
			)
			target.color[0][di] = clamp01(target.color[0][di]*(1-a) + r*a)
			target.color[1][di] = clamp01(target.color[1][di]*(1-a) + g*a)
			target.color[2][di] = clamp01(target.color[2][di]*(1-a) + b*a)
		}
	})
	return nil
}

// updateAlpha folds the layer coverage into the target with the
// Porter-Duff over operator.
func (c *compositor[P]) updateAlpha(target *region[P], bounds, layerRect rect, alpha []P) {
	layerW := layerRect.right - layerRect.left
	rows := bounds.bottom - bounds.top
	parallel.ForEach(rows, c.opts.Workers, func(row int) {
		canvasY := bounds.top + row
		layerY := canvasY - layerRect.top
		for canvasX := bounds.left; canvasX < bounds.right; canvasX++ {
			layerX := canvasX - layerRect.left
			di := (canvasY-target.y0)*target.width + (canvasX - target.x0)
			target.alpha[di] = alphaOver(target.alpha[di], alpha[layerY*layerW+layerX])
		}
	})
}

// blendRegion blends a finished group region onto its parent like a
// single layer, honoring the group's mask, opacity and blend mode.
func (c *compositor[P]) blendRegion(target *region[P], private *region[P], group *psd.GroupLayer, opacityScale P) error {
	groupRect := private.rect()
	bounds := intersectRect(groupRect, target.rect())
	if bounds.empty() {
		return nil
	}

	// Fold mask and opacity onto the accumulated group coverage.
	alpha := make([]P, len(private.alpha))
	copy(alpha, private.alpha)

	opacity := P(group.Opacity()) / 255 * opacityScale
	mask := group.Mask()
	if mask != nil && !mask.Disabled && mask.Channel != nil {
		maskPlane, err := c.channelPlane(mask.Channel)
		if err != nil {
			return err
		}
		cx, cy := mask.Channel.Center()
		maskExtents := psd.GenerateExtents(psd.ChannelCoordinates{
			Width:   int32(mask.Channel.Width()),
			Height:  int32(mask.Channel.Height()),
			CenterX: cx,
			CenterY: cy,
		}, c.doc.Width(), c.doc.Height())
		maskRect := rect{
			top: int(maskExtents.Top), left: int(maskExtents.Left),
			bottom: int(maskExtents.Bottom), right: int(maskExtents.Right),
		}
		defaultValue := P(mask.DefaultColor) / 255
		density := P(mask.Density) / 255

		for y := 0; y < private.height; y++ {
			canvasY := private.y0 + y
			for x := 0; x < private.width; x++ {
				canvasX := private.x0 + x
				value := defaultValue
				if canvasY >= maskRect.top && canvasY < maskRect.bottom &&
					canvasX >= maskRect.left && canvasX < maskRect.right {
					value = maskPlane[(canvasY-maskRect.top)*(maskRect.right-maskRect.left)+(canvasX-maskRect.left)]
				}
				value = value*density + (1 - density)
				alpha[y*private.width+x] *= value
			}
		}
	}
	for i := range alpha {
		alpha[i] *= opacity
	}

	mode := group.BlendMode()
	fn := separableKernel[P](mode)
	triple := nonSeparableKernel[P](mode)
	if triple != nil && !c.isRGB {
		return fmt.Errorf("%w: blend mode %s requires an RGB working space", psd.ErrUnsupported, mode)
	}
	if triple == nil && fn == nil {
		return fmt.Errorf("%w: blend mode %s", psd.ErrUnsupported, mode)
	}

	rows := bounds.bottom - bounds.top
	parallel.ForEach(rows, c.opts.Workers, func(row int) {
		canvasY := bounds.top + row
		groupY := canvasY - private.y0
		for canvasX := bounds.left; canvasX < bounds.right; canvasX++ {
			groupX := canvasX - private.x0
			di := (canvasY-target.y0)*target.width + (canvasX - target.x0)
			gi := groupY*private.width + groupX

			a := alpha[gi]
			if a <= 0 {
				continue
			}
			if triple != nil {
				r, g, b := triple(
					target.color[0][di], target.color[1][di], target.color[2][di],
					private.color[0][gi], private.color[1][gi], private.color[2][gi],
				)
				target.color[0][di] = clamp01(target.color[0][di]*(1-a) + r*a)
				target.color[1][di] = clamp01(target.color[1][di]*(1-a) + g*a)
				target.color[2][di] = clamp01(target.color[2][di]*(1-a) + b*a)
			} else {
				for ch := range target.color {
					target.color[ch][di] = clamp01(compositePixel(target.color[ch][di], private.color[ch][gi], a, fn))
				}
			}
			target.alpha[di] = alphaOver(target.alpha[di], a)
		}
	})
	return nil
}
