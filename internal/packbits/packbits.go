// Package packbits implements the Apple PackBits run-length encoding used
// by the RLE channel compression code, one scanline at a time.
package packbits

import (
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
)

// Decode decompresses src into dst and returns the number of bytes
// produced. Decoding stops once dst is full; input that ends before dst
// is full or mid-run is an error.
//
// Header byte h: 0..127 copies h+1 literal bytes, -127..-1 repeats the
// next byte 1-h times, -128 is a no-op.
func Decode(src, dst []byte) (int, error) {
	out := 0
	i := 0
	for i < len(src) {
		h := int8(src[i])
		i++
		switch {
		case h >= 0:
			n := int(h) + 1
			if i+n > len(src) {
				return 0, fmt.Errorf("%w: packbits literal run of %d bytes truncated", errdefs.ErrCompression, n)
			}
			if out+n > len(dst) {
				return 0, fmt.Errorf("%w: packbits output overrun", errdefs.ErrCompression)
			}
			copy(dst[out:], src[i:i+n])
			i += n
			out += n
		case h == -128:
			// no-op
		default:
			n := 1 - int(h)
			if i >= len(src) {
				return 0, fmt.Errorf("%w: packbits repeat run truncated", errdefs.ErrCompression)
			}
			if out+n > len(dst) {
				return 0, fmt.Errorf("%w: packbits output overrun", errdefs.ErrCompression)
			}
			b := src[i]
			i++
			for j := 0; j < n; j++ {
				dst[out+j] = b
			}
			out += n
		}
		if out == len(dst) {
			break
		}
	}
	if out != len(dst) {
		return out, fmt.Errorf("%w: packbits produced %d of %d bytes", errdefs.ErrCompression, out, len(dst))
	}
	return out, nil
}

// Encode compresses src and appends the result to dst, returning the
// extended slice. Runs of three or more identical bytes become repeat
// chunks; everything else is emitted as literal chunks of at most 128
// bytes, so oversized literal runs split safely across chunks.
func Encode(dst, src []byte) []byte {
	const maxRun = 128

	i := 0
	for i < len(src) {
		// Measure the run of identical bytes starting here.
		run := 1
		for i+run < len(src) && run < maxRun && src[i+run] == src[i] {
			run++
		}
		if run >= 3 {
			dst = append(dst, byte(int8(1-run)), src[i])
			i += run
			continue
		}

		// Collect literals until the next run of >= 3 or the chunk limit.
		start := i
		i += run
		for i < len(src) && i-start < maxRun {
			run = 1
			for i+run < len(src) && run < 3 && src[i+run] == src[i] {
				run++
			}
			if run >= 3 {
				break
			}
			i += run
			if i-start > maxRun {
				i = start + maxRun
			}
		}
		n := i - start
		dst = append(dst, byte(n-1))
		dst = append(dst, src[start:start+n]...)
	}
	return dst
}
