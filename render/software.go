package render

import (
	"fmt"

	"github.com/gopsd/psd"
	"github.com/gopsd/psd/geometry"
	"github.com/gopsd/psd/imageio"
	"github.com/gopsd/psd/internal/parallel"
)

func init() {
	RegisterRenderer("cpu", func() Renderer { return &Software{} })
	psd.RegisterSmartObjectRenderer(func(doc *psd.Document, layer *psd.SmartObjectLayer, workers int) ([]*psd.Channel, error) {
		return renderSmartObject(doc, layer, workers, FilterBilinear)
	})
}

// Software is the CPU renderer backend.
type Software struct {
	workers int
}

var _ Renderer = (*Software)(nil)

// Name returns "cpu".
func (s *Software) Name() string { return "cpu" }

// Init prepares the backend. The CPU backend has no resources to set up.
func (s *Software) Init() error { return nil }

// Close releases backend resources.
func (s *Software) Close() {}

// RenderQuadMesh resamples src through the warp mesh into dst. Every dst
// pixel maps to a point of the mesh bounding box; the containing face's
// interpolated UV selects the source sample. Pixels outside the mesh
// stay transparent.
func (s *Software) RenderQuadMesh(dst, src *imageio.Image, mesh *geometry.QuadMesh, filter Filter) error {
	if dst.Channels != 4 {
		return fmt.Errorf("%w: quad mesh target needs 4 channels, got %d", psd.ErrInvalidArgument, dst.Channels)
	}
	bbox := mesh.BBox()
	scaleX := bbox.Width() / float64(dst.Width)
	scaleY := bbox.Height() / float64(dst.Height)

	parallel.ForEach(dst.Height, s.workers, func(y int) {
		py := bbox.Minimum.Y + (float64(y)+0.5)*scaleY
		for x := 0; x < dst.Width; x++ {
			px := bbox.Minimum.X + (float64(x)+0.5)*scaleX
			uv, ok := mesh.UVCoordinate(geometry.Point{X: px, Y: py})
			if !ok {
				continue
			}
			sample := Sample(src, uv.X, uv.Y, filter)
			base := (y*dst.Width + x) * 4
			for c := 0; c < 4; c++ {
				dst.Pixels[base+c] = byte(clamp01(sample[c]) * 255)
			}
		}
	})
	return nil
}

// renderSmartObject materializes a smart-object layer's channel planes:
// the source image is pulled from the linked-layer store, pushed through
// the warp mesh and quantized to the document depth.
func renderSmartObject(doc *psd.Document, layer *psd.SmartObjectLayer, workers int, filter Filter) ([]*psd.Channel, error) {
	colorCount, err := doc.ColorChannels()
	if err != nil {
		return nil, err
	}
	src, err := layer.SourceImage(doc)
	if err != nil {
		return nil, err
	}

	coords := layer.Coordinates()
	width := int(coords.Width)
	height := int(coords.Height)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: smart object %q has no extent", psd.ErrInvalidArgument, layer.Name())
	}

	mesh, err := layer.Warp().Mesh(defaultDivisions(layer.Warp().GridWidth()), defaultDivisions(layer.Warp().GridHeight()))
	if err != nil {
		return nil, err
	}

	backend := DefaultRenderer()
	if backend == nil {
		return nil, fmt.Errorf("%w: no renderer backend registered", psd.ErrUnsupported)
	}
	if err := backend.Init(); err != nil {
		return nil, err
	}
	defer backend.Close()

	out := &imageio.Image{
		Pixels:   make([]byte, width*height*4),
		Width:    width,
		Height:   height,
		Channels: 4,
	}
	if err := backend.RenderQuadMesh(out, src, mesh, filter); err != nil {
		return nil, err
	}

	// Split the interleaved render into per-plane channels at the
	// document depth.
	channels := make([]*psd.Channel, 0, colorCount+1)
	for id := 0; id < colorCount; id++ {
		srcIndex := id
		if colorCount == 1 {
			srcIndex = 0
		}
		plane := make([]float32, width*height)
		for i := range plane {
			plane[i] = float32(out.Pixels[i*4+srcIndex]) / 255
		}
		channel, err := psd.NewChannel(psd.ChannelID(id), quantizePlane(plane, doc.Depth()),
			uint32(width), uint32(height), doc.Depth(), workers)
		if err != nil {
			return nil, err
		}
		channel.SetCenter(coords.CenterX, coords.CenterY)
		channels = append(channels, channel)
	}

	alpha := make([]float32, width*height)
	for i := range alpha {
		alpha[i] = float32(out.Pixels[i*4+3]) / 255
	}
	alphaChannel, err := psd.NewChannel(psd.ChannelAlpha, quantizePlane(alpha, doc.Depth()),
		uint32(width), uint32(height), doc.Depth(), workers)
	if err != nil {
		return nil, err
	}
	alphaChannel.SetCenter(coords.CenterX, coords.CenterY)
	return append(channels, alphaChannel), nil
}

// defaultDivisions matches the warp engine's sampling density.
func defaultDivisions(gridDim int) int {
	patches := 1 + (gridDim-4)/3
	if n := patches*8 + 1; n > 9 {
		return n
	}
	return 9
}
