package compression

import (
	"encoding/binary"
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
	"github.com/gopsd/psd/internal/packbits"
	"github.com/gopsd/psd/internal/parallel"
)

// rleCountSize returns the width of one scanline count table entry.
func rleCountSize(psb bool) int {
	if psb {
		return 4
	}
	return 2
}

// decodeRLE decompresses a PackBits payload: a scanline length table
// followed by the per-scanline runs. Scanlines decode independently, so
// they run in parallel once the table's prefix offsets are known.
func decodeRLE(src []byte, p Params) ([]byte, error) {
	countSize := rleCountSize(p.PSB)
	tableSize := p.Height * countSize
	if len(src) < tableSize {
		return nil, fmt.Errorf("%w: rle payload of %d bytes is smaller than its %d byte scanline table",
			errdefs.ErrCompression, len(src), tableSize)
	}

	offsets := make([]int, p.Height+1)
	offsets[0] = tableSize
	for row := 0; row < p.Height; row++ {
		var count int
		if p.PSB {
			count = int(binary.BigEndian.Uint32(src[row*countSize:]))
		} else {
			count = int(binary.BigEndian.Uint16(src[row*countSize:]))
		}
		offsets[row+1] = offsets[row] + count
	}
	if offsets[p.Height] > len(src) {
		return nil, fmt.Errorf("%w: rle scanline table runs %d bytes past the payload",
			errdefs.ErrCompression, offsets[p.Height]-len(src))
	}

	rowBytes := p.Width * p.elemSize()
	out := make([]byte, p.pixelBytes())
	err := parallel.ForEachErr(p.Height, p.Workers, func(row int) error {
		_, err := packbits.Decode(src[offsets[row]:offsets[row+1]], out[row*rowBytes:(row+1)*rowBytes])
		return err
	})
	if err != nil {
		return nil, err
	}

	fileio.NativeToBigEndian(out, p.elemSize(), p.Workers)
	return out, nil
}

// encodeRLE compresses pixel data scanline by scanline and prepends the
// scanline length table.
func encodeRLE(pixels []byte, p Params) ([]byte, error) {
	be := make([]byte, len(pixels))
	copy(be, pixels)
	fileio.NativeToBigEndian(be, p.elemSize(), p.Workers)

	rowBytes := p.Width * p.elemSize()
	rows := make([][]byte, p.Height)
	parallel.ForEach(p.Height, p.Workers, func(row int) {
		rows[row] = packbits.Encode(nil, be[row*rowBytes:(row+1)*rowBytes])
	})

	countSize := rleCountSize(p.PSB)
	total := p.Height * countSize
	for _, r := range rows {
		total += len(r)
	}
	out := make([]byte, p.Height*countSize, total)
	for row, r := range rows {
		if p.PSB {
			binary.BigEndian.PutUint32(out[row*countSize:], uint32(len(r)))
		} else {
			if len(r) > 0xffff {
				return nil, fmt.Errorf("%w: rle scanline of %d bytes exceeds the 16-bit count field",
					errdefs.ErrCompression, len(r))
			}
			binary.BigEndian.PutUint16(out[row*countSize:], uint16(len(r)))
		}
		out = append(out, r...)
	}
	return out, nil
}
