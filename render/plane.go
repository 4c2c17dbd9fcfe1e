package render

import (
	"encoding/binary"
	"math"
)

// normalizePlane converts native-endian channel bytes to normalized
// working precision values. 8- and 16-bit values scale to [0, 1];
// 32-bit channels already hold floats.
func normalizePlane[P number](raw []byte, depth uint16) []P {
	switch depth {
	case 8:
		out := make([]P, len(raw))
		for i, v := range raw {
			out[i] = P(v) / 255
		}
		return out
	case 16:
		out := make([]P, len(raw)/2)
		for i := range out {
			out[i] = P(binary.NativeEndian.Uint16(raw[i*2:])) / 65535
		}
		return out
	default:
		out := make([]P, len(raw)/4)
		for i := range out {
			out[i] = P(math.Float32frombits(binary.NativeEndian.Uint32(raw[i*4:])))
		}
		return out
	}
}

// quantizePlane converts normalized working precision values back to
// native-endian channel bytes, rounding and clamping integer depths.
func quantizePlane[P number](plane []P, depth uint16) []byte {
	switch depth {
	case 8:
		out := make([]byte, len(plane))
		for i, v := range plane {
			out[i] = byte(math.Round(float64(clamp01(v)) * 255))
		}
		return out
	case 16:
		out := make([]byte, len(plane)*2)
		for i, v := range plane {
			binary.NativeEndian.PutUint16(out[i*2:], uint16(math.Round(float64(clamp01(v))*65535)))
		}
		return out
	default:
		out := make([]byte, len(plane)*4)
		for i, v := range plane {
			binary.NativeEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
		}
		return out
	}
}

// ChannelBytes quantizes one canvas plane back to channel bytes at the
// given depth.
func (c *Canvas) ChannelBytes(channel int, depth uint16) []byte {
	return quantizePlane(c.Color[channel], depth)
}

// AlphaBytes quantizes the coverage plane back to channel bytes.
func (c *Canvas) AlphaBytes(depth uint16) []byte {
	return quantizePlane(c.Alpha, depth)
}
