// Package render turns a layered document back into pixels: a CPU
// compositor walking the layer tree bottom-to-top with separable and HSL
// blend kernels, and the pluggable renderer backend used to resample
// smart-object sources through their warp meshes.
package render

import (
	"github.com/gopsd/psd"
)

// BlendMode aliases the document blend mode for the kernel tables.
type BlendMode = psd.BlendMode

// Blend modes, re-exported for kernel selection.
const (
	BlendNormal       = psd.BlendNormal
	BlendPassthrough  = psd.BlendPassthrough
	BlendDissolve     = psd.BlendDissolve
	BlendDarken       = psd.BlendDarken
	BlendMultiply     = psd.BlendMultiply
	BlendColorBurn    = psd.BlendColorBurn
	BlendLinearBurn   = psd.BlendLinearBurn
	BlendDarkerColor  = psd.BlendDarkerColor
	BlendLighten      = psd.BlendLighten
	BlendScreen       = psd.BlendScreen
	BlendColorDodge   = psd.BlendColorDodge
	BlendLinearDodge  = psd.BlendLinearDodge
	BlendLighterColor = psd.BlendLighterColor
	BlendOverlay      = psd.BlendOverlay
	BlendSoftLight    = psd.BlendSoftLight
	BlendHardLight    = psd.BlendHardLight
	BlendVividLight   = psd.BlendVividLight
	BlendLinearLight  = psd.BlendLinearLight
	BlendPinLight     = psd.BlendPinLight
	BlendHardMix      = psd.BlendHardMix
	BlendDifference   = psd.BlendDifference
	BlendExclusion    = psd.BlendExclusion
	BlendSubtract     = psd.BlendSubtract
	BlendDivide       = psd.BlendDivide
	BlendHue          = psd.BlendHue
	BlendSaturation   = psd.BlendSaturation
	BlendColor        = psd.BlendColor
	BlendLuminosity   = psd.BlendLuminosity
)

// Precision selects the working float width of the compositor.
type Precision int

const (
	// Precision32 blends in float32, the default.
	Precision32 Precision = iota
	// Precision64 blends in float64.
	Precision64
)

// Options configures compositing. The zero value is valid.
type Options struct {
	// Workers bounds row parallelism; zero means GOMAXPROCS.
	Workers int

	// Precision is the working float width.
	Precision Precision

	// Filter selects the smart-object resampling quality.
	Filter Filter
}

func (o *Options) orDefault() *Options {
	if o == nil {
		return &Options{}
	}
	return o
}

// Canvas is the flattened composite: one normalized plane per color
// channel plus coverage. Planes are canvas-sized in scanline order.
type Canvas struct {
	Width  int
	Height int
	Color  [][]float32
	Alpha  []float32
}

// NewCanvas creates a transparent black canvas with the given number of
// color channels.
func NewCanvas(channels, width, height int) *Canvas {
	c := &Canvas{
		Width:  width,
		Height: height,
		Color:  make([][]float32, channels),
		Alpha:  make([]float32, width*height),
	}
	for i := range c.Color {
		c.Color[i] = make([]float32, width*height)
	}
	return c
}

// Composite flattens the document onto a fresh canvas. The canvas starts
// transparent black, has no mask and unit opacity. Requires a color mode
// with fixed channel indexing (RGB, CMYK or Grayscale) and a bit depth
// above 1.
func Composite(doc *psd.Document, opts *Options) (*Canvas, error) {
	opts = opts.orDefault()
	if opts.Precision == Precision64 {
		return composite[float64](doc, opts)
	}
	return composite[float32](doc, opts)
}
