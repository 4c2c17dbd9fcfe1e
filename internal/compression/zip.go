package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
	"github.com/gopsd/psd/internal/parallel"
)

// inflate decompresses a zlib stream expecting exactly want bytes.
func inflate(src []byte, want int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib stream header: %v", errdefs.ErrCompression, err)
	}
	defer r.Close()

	out := make([]byte, want)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: zlib stream ended early: %v", errdefs.ErrCompression, err)
	}
	return out, nil
}

// deflate compresses data as a single zlib stream.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: zlib write: %v", errdefs.ErrCompression, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: zlib close: %v", errdefs.ErrCompression, err)
	}
	return buf.Bytes(), nil
}

func decodeZip(src []byte, p Params) ([]byte, error) {
	out, err := inflate(src, p.pixelBytes())
	if err != nil {
		return nil, err
	}
	fileio.NativeToBigEndian(out, p.elemSize(), p.Workers)
	return out, nil
}

func encodeZip(pixels []byte, p Params) ([]byte, error) {
	be := make([]byte, len(pixels))
	copy(be, pixels)
	fileio.NativeToBigEndian(be, p.elemSize(), p.Workers)
	return deflate(be)
}

// decodeZipPrediction inflates, undoes the per-scanline prediction and
// swaps back to native order. 8- and 16-bit payloads carry per-element
// deltas; 32-bit payloads carry byte deltas over a byte-interleaved
// scanline.
func decodeZipPrediction(src []byte, p Params) ([]byte, error) {
	out, err := inflate(src, p.pixelBytes())
	if err != nil {
		return nil, err
	}

	rowBytes := p.Width * p.elemSize()
	switch p.Depth {
	case 8:
		parallel.ForEach(p.Height, p.Workers, func(row int) {
			undelta8(out[row*rowBytes : (row+1)*rowBytes])
		})
	case 16:
		fileio.NativeToBigEndian(out, 2, p.Workers)
		parallel.ForEach(p.Height, p.Workers, func(row int) {
			undelta16(out[row*rowBytes : (row+1)*rowBytes])
		})
	case 32:
		parallel.ForEach(p.Height, p.Workers, func(row int) {
			line := out[row*rowBytes : (row+1)*rowBytes]
			undelta8(line)
			deinterleave(line, p.Width)
		})
		fileio.NativeToBigEndian(out, 4, p.Workers)
	}
	return out, nil
}

// encodeZipPrediction applies the per-scanline prediction and deflates.
func encodeZipPrediction(pixels []byte, p Params) ([]byte, error) {
	work := make([]byte, len(pixels))
	copy(work, pixels)

	rowBytes := p.Width * p.elemSize()
	switch p.Depth {
	case 8:
		parallel.ForEach(p.Height, p.Workers, func(row int) {
			delta8(work[row*rowBytes : (row+1)*rowBytes])
		})
	case 16:
		parallel.ForEach(p.Height, p.Workers, func(row int) {
			delta16(work[row*rowBytes : (row+1)*rowBytes])
		})
		fileio.NativeToBigEndian(work, 2, p.Workers)
	case 32:
		// Interleaving the big-endian bytes groups the slowly varying
		// exponent bits into long deltas deflate can fold away.
		fileio.NativeToBigEndian(work, 4, p.Workers)
		parallel.ForEach(p.Height, p.Workers, func(row int) {
			line := work[row*rowBytes : (row+1)*rowBytes]
			interleave(line, p.Width)
			delta8(line)
		})
	}
	return deflate(work)
}

// delta8 replaces each byte with its difference to the previous one.
func delta8(line []byte) {
	for i := len(line) - 1; i > 0; i-- {
		line[i] -= line[i-1]
	}
}

func undelta8(line []byte) {
	for i := 1; i < len(line); i++ {
		line[i] += line[i-1]
	}
}

// delta16 replaces each native-endian 16-bit element with its difference
// to the previous element; the first element stays.
func delta16(line []byte) {
	for i := len(line) - 2; i >= 2; i -= 2 {
		prev := binary.NativeEndian.Uint16(line[i-2:])
		cur := binary.NativeEndian.Uint16(line[i:])
		binary.NativeEndian.PutUint16(line[i:], cur-prev)
	}
}

func undelta16(line []byte) {
	for i := 2; i+2 <= len(line); i += 2 {
		prev := binary.NativeEndian.Uint16(line[i-2:])
		cur := binary.NativeEndian.Uint16(line[i:])
		binary.NativeEndian.PutUint16(line[i:], cur+prev)
	}
}

// interleave rearranges a scanline of 4-byte elements into byte planes:
// b0b0b0... b1b1b1... b2b2b2... b3b3b3...
func interleave(line []byte, width int) {
	tmp := make([]byte, len(line))
	for i := 0; i < width; i++ {
		tmp[i] = line[i*4]
		tmp[width+i] = line[i*4+1]
		tmp[2*width+i] = line[i*4+2]
		tmp[3*width+i] = line[i*4+3]
	}
	copy(line, tmp)
}

// deinterleave restores a byte-plane scanline to element order.
func deinterleave(line []byte, width int) {
	tmp := make([]byte, len(line))
	for i := 0; i < width; i++ {
		tmp[i*4] = line[i]
		tmp[i*4+1] = line[width+i]
		tmp[i*4+2] = line[2*width+i]
		tmp[i*4+3] = line[3*width+i]
	}
	copy(line, tmp)
}
