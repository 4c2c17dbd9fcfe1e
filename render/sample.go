package render

import (
	"math"

	"github.com/gopsd/psd/imageio"
)

// Filter selects how a warped source is sampled at a UV coordinate.
type Filter int

const (
	// FilterNearest selects the closest pixel. Fast but blocky.
	FilterNearest Filter = iota
	// FilterBilinear interpolates the four neighboring pixels.
	FilterBilinear
	// FilterBicubic interpolates a 4x4 neighborhood with Catmull-Rom
	// weights. Highest quality, slowest.
	FilterBicubic
)

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterBilinear:
		return "Bilinear"
	case FilterBicubic:
		return "Bicubic"
	default:
		return "Unknown"
	}
}

// Sample reads the source at normalized (u, v) with the given filter.
// Coordinates clamp to the edge; the result is one normalized value per
// source channel.
func Sample(img *imageio.Image, u, v float64, filter Filter) [4]float64 {
	switch filter {
	case FilterBilinear:
		return sampleBilinear(img, u, v)
	case FilterBicubic:
		return sampleBicubic(img, u, v)
	default:
		return sampleNearest(img, u, v)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// texel returns the normalized channel values at integer coordinates.
func texel(img *imageio.Image, x, y int) [4]float64 {
	x = clampInt(x, 0, img.Width-1)
	y = clampInt(y, 0, img.Height-1)
	base := (y*img.Width + x) * img.Channels

	var out [4]float64
	for c := 0; c < img.Channels && c < 4; c++ {
		out[c] = float64(img.Pixels[base+c]) / 255
	}
	if img.Channels < 4 {
		out[3] = 1
		if img.Channels == 1 {
			out[1], out[2] = out[0], out[0]
		}
	}
	return out
}

func sampleNearest(img *imageio.Image, u, v float64) [4]float64 {
	x := int(math.Floor(u * float64(img.Width)))
	y := int(math.Floor(v * float64(img.Height)))
	return texel(img, x, y)
}

func sampleBilinear(img *imageio.Image, u, v float64) [4]float64 {
	fx := u*float64(img.Width) - 0.5
	fy := v*float64(img.Height) - 0.5
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	p00 := texel(img, x0, y0)
	p10 := texel(img, x0+1, y0)
	p01 := texel(img, x0, y0+1)
	p11 := texel(img, x0+1, y0+1)

	var out [4]float64
	for c := range out {
		top := p00[c] + (p10[c]-p00[c])*tx
		bottom := p01[c] + (p11[c]-p01[c])*tx
		out[c] = top + (bottom-top)*ty
	}
	return out
}

// catmullRom evaluates the Catmull-Rom spline at t for four samples.
func catmullRom(p0, p1, p2, p3, t float64) float64 {
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t*t +
		(-p0+3*p1-3*p2+p3)*t*t*t)
}

func sampleBicubic(img *imageio.Image, u, v float64) [4]float64 {
	fx := u*float64(img.Width) - 0.5
	fy := v*float64(img.Height) - 0.5
	x := int(math.Floor(fx))
	y := int(math.Floor(fy))
	tx := fx - float64(x)
	ty := fy - float64(y)

	var out [4]float64
	for c := 0; c < 4; c++ {
		var rows [4]float64
		for j := 0; j < 4; j++ {
			p0 := texel(img, x-1, y-1+j)[c]
			p1 := texel(img, x, y-1+j)[c]
			p2 := texel(img, x+1, y-1+j)[c]
			p3 := texel(img, x+2, y-1+j)[c]
			rows[j] = catmullRom(p0, p1, p2, p3, tx)
		}
		out[c] = math.Max(0, math.Min(1, catmullRom(rows[0], rows[1], rows[2], rows[3], ty)))
	}
	return out
}
