package render

// Non-separable blend modes operate on the full color triple in RGB
// working space, following the standard Photoshop definitions built from
// the Lum/Sat/SetLum/SetSat primitives.

// lum returns the luminance of a color.
func lum[P number](r, g, b P) P {
	return 0.3*r + 0.59*g + 0.11*b
}

// sat returns the saturation (max minus min component).
func sat[P number](r, g, b P) P {
	return maxP(r, maxP(g, b)) - minP(r, minP(g, b))
}

// clipColor scales out-of-range components towards the luminance so the
// triple lands back in [0, 1] without shifting its luminance.
func clipColor[P number](r, g, b P) (P, P, P) {
	l := lum(r, g, b)
	n := minP(r, minP(g, b))
	x := maxP(r, maxP(g, b))

	if n < 0 {
		r = l + (r-l)*l/(l-n)
		g = l + (g-l)*l/(l-n)
		b = l + (b-l)*l/(l-n)
	}
	if x > 1 {
		r = l + (r-l)*(1-l)/(x-l)
		g = l + (g-l)*(1-l)/(x-l)
		b = l + (b-l)*(1-l)/(x-l)
	}
	return r, g, b
}

// setLum shifts the triple to the target luminance and clips.
func setLum[P number](r, g, b, l P) (P, P, P) {
	d := l - lum(r, g, b)
	return clipColor(r+d, g+d, b+d)
}

// setSat rescales the triple to the target saturation, preserving the
// ordering of its components.
func setSat[P number](r, g, b, s P) (P, P, P) {
	cmin := minP(r, minP(g, b))
	cmax := maxP(r, maxP(g, b))

	scale := func(v P) P {
		if cmax > cmin {
			return (v - cmin) * s / (cmax - cmin)
		}
		return 0
	}
	return scale(r), scale(g), scale(b)
}

// tripleKernel blends a full color triple; c is the canvas color, l the
// layer color.
type tripleKernel[P number] func(cr, cg, cb, lr, lg, lb P) (P, P, P)

// nonSeparableKernel returns the triple blend function for the HSL family
// and the darker/lighter color modes, or nil for separable modes.
func nonSeparableKernel[P number](mode BlendMode) tripleKernel[P] {
	switch mode {
	case BlendHue:
		return func(cr, cg, cb, lr, lg, lb P) (P, P, P) {
			r, g, b := setSat(lr, lg, lb, sat(cr, cg, cb))
			return setLum(r, g, b, lum(cr, cg, cb))
		}
	case BlendSaturation:
		return func(cr, cg, cb, lr, lg, lb P) (P, P, P) {
			r, g, b := setSat(cr, cg, cb, sat(lr, lg, lb))
			return setLum(r, g, b, lum(cr, cg, cb))
		}
	case BlendColor:
		return func(cr, cg, cb, lr, lg, lb P) (P, P, P) {
			return setLum(lr, lg, lb, lum(cr, cg, cb))
		}
	case BlendLuminosity:
		return func(cr, cg, cb, lr, lg, lb P) (P, P, P) {
			return setLum(cr, cg, cb, lum(lr, lg, lb))
		}
	case BlendDarkerColor:
		return func(cr, cg, cb, lr, lg, lb P) (P, P, P) {
			if lum(lr, lg, lb) < lum(cr, cg, cb) {
				return lr, lg, lb
			}
			return cr, cg, cb
		}
	case BlendLighterColor:
		return func(cr, cg, cb, lr, lg, lb P) (P, P, P) {
			if lum(lr, lg, lb) > lum(cr, cg, cb) {
				return lr, lg, lb
			}
			return cr, cg, cb
		}
	default:
		return nil
	}
}
