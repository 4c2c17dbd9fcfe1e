package fileio

import (
	"encoding/binary"
	"math/bits"

	"github.com/gopsd/psd/internal/parallel"
)

// swapBlockSize is the per-task block size for the parallel byte swap,
// sized to stay within L2 on common cores.
const swapBlockSize = 256 * 1024

// ByteSwap reverses the byte order of every element in data in place.
// elemSize is the element width in bytes (1, 2 or 4); a width of 1 is a
// no-op. Large inputs are processed in cache-sized blocks in parallel,
// each block swapped with a wide 8-byte inner loop and a scalar tail.
func ByteSwap(data []byte, elemSize, workers int) {
	if elemSize <= 1 || len(data) < elemSize {
		return
	}

	blockElems := swapBlockSize / elemSize
	blocks := (len(data)/elemSize + blockElems - 1) / blockElems

	if blocks <= 1 {
		swapBlock(data, elemSize)
		return
	}

	parallel.ForEach(blocks, workers, func(b int) {
		start := b * blockElems * elemSize
		end := start + blockElems*elemSize
		if end > len(data) {
			end = len(data)
		}
		swapBlock(data[start:end], elemSize)
	})
}

// swapBlock swaps one contiguous block. The 16-bit path runs four
// elements per iteration through a 64-bit lane rotate; the 32-bit path
// runs two. Tails fall back to scalar swaps.
func swapBlock(data []byte, elemSize int) {
	switch elemSize {
	case 2:
		i := 0
		for ; i+8 <= len(data); i += 8 {
			v := binary.LittleEndian.Uint64(data[i:])
			v = (v&0x00ff00ff00ff00ff)<<8 | (v&0xff00ff00ff00ff00)>>8
			binary.LittleEndian.PutUint64(data[i:], v)
		}
		for ; i+2 <= len(data); i += 2 {
			data[i], data[i+1] = data[i+1], data[i]
		}
	case 4:
		i := 0
		for ; i+8 <= len(data); i += 8 {
			v := binary.LittleEndian.Uint64(data[i:])
			lo := bits.ReverseBytes32(uint32(v))
			hi := bits.ReverseBytes32(uint32(v >> 32))
			binary.LittleEndian.PutUint64(data[i:], uint64(hi)<<32|uint64(lo))
		}
		for ; i+4 <= len(data); i += 4 {
			data[i], data[i+3] = data[i+3], data[i]
			data[i+1], data[i+2] = data[i+2], data[i+1]
		}
	}
}

// NativeToBigEndian swaps data to big-endian in place when the host is
// little-endian; on big-endian hosts it is a no-op. The transform is an
// involution, so the same call converts back after decompression.
func NativeToBigEndian(data []byte, elemSize, workers int) {
	if hostBigEndian {
		return
	}
	ByteSwap(data, elemSize, workers)
}

// hostBigEndian reports the byte order of the host.
var hostBigEndian = func() bool {
	var probe [2]byte
	binary.NativeEndian.PutUint16(probe[:], 0x0102)
	return probe[0] == 0x01
}()
