// Package chunk implements the in-memory super-compressed channel store:
// a sequence of fixed-size uncompressed blocks held lz4-compressed, with
// random access per chunk so decoding one chunk never touches another.
//
// The store exists because a document may carry dozens of full-resolution
// layers; a 300000x300000 16-bit channel is 180 GB uncompressed, so
// channels must never sit decompressed at rest.
package chunk

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/parallel"
)

// DefaultBlockSize is the target uncompressed size of one block.
const DefaultBlockSize = 1 << 20

// block is one compressed chunk. Incompressible chunks are stored raw so
// GetChunk can always reproduce exactly originalLen bytes.
type block struct {
	data        []byte
	originalLen int
	raw         bool
}

// Store is a super-chunk of compressed blocks. It is conceptually
// immutable after construction: any number of readers may call GetChunk
// and Decode concurrently. Extract consumes the store and requires
// exclusive access.
type Store struct {
	blocks       []block
	blockSize    int
	originalSize int
	extracted    bool
}

// New compresses data into a store with the given uncompressed block
// size. A blockSize of zero selects DefaultBlockSize. The input slice is
// not retained.
func New(data []byte, blockSize, workers int) (*Store, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	s := &Store{
		blockSize:    blockSize,
		originalSize: len(data),
	}
	numBlocks := (len(data) + blockSize - 1) / blockSize
	if numBlocks == 0 {
		return s, nil
	}
	s.blocks = make([]block, numBlocks)

	err := parallel.ForEachErr(numBlocks, workers, func(i int) error {
		start := i * blockSize
		end := min(start+blockSize, len(data))
		src := data[start:end]

		// Compressor state is not safe to share; one per task.
		var c lz4.Compressor
		dst := make([]byte, lz4.CompressBlockBound(len(src)))
		n, err := c.CompressBlock(src, dst)
		if err != nil {
			return fmt.Errorf("%w: lz4 block %d: %v", errdefs.ErrCompression, i, err)
		}
		if n == 0 || n >= len(src) {
			// Incompressible; keep the raw bytes.
			raw := make([]byte, len(src))
			copy(raw, src)
			s.blocks[i] = block{data: raw, originalLen: len(src), raw: true}
			return nil
		}
		s.blocks[i] = block{data: dst[:n:n], originalLen: len(src)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OriginalSize returns the uncompressed size in bytes. O(1).
func (s *Store) OriginalSize() int {
	return s.originalSize
}

// CompressedSize returns the bytes currently held by the store.
func (s *Store) CompressedSize() int {
	total := 0
	for _, b := range s.blocks {
		total += len(b.data)
	}
	return total
}

// NumChunks returns the number of blocks. O(1).
func (s *Store) NumChunks() int {
	return len(s.blocks)
}

// ChunkSize returns the uncompressed size of the chunk at index i.
func (s *Store) ChunkSize(i int) (int, error) {
	if s.extracted {
		return 0, errdefs.ErrAlreadyExtracted
	}
	if i < 0 || i >= len(s.blocks) {
		return 0, fmt.Errorf("%w: chunk index %d out of range [0, %d)",
			errdefs.ErrInvalidArgument, i, len(s.blocks))
	}
	return s.blocks[i].originalLen, nil
}

// GetChunk decompresses the chunk at index i into dst. dst must be
// exactly the chunk's uncompressed size.
func (s *Store) GetChunk(dst []byte, i int) error {
	size, err := s.ChunkSize(i)
	if err != nil {
		return err
	}
	if len(dst) != size {
		return fmt.Errorf("%w: chunk %d holds %d bytes, destination holds %d",
			errdefs.ErrInvalidArgument, i, size, len(dst))
	}
	b := s.blocks[i]
	if b.raw {
		copy(dst, b.data)
		return nil
	}
	n, err := lz4.UncompressBlock(b.data, dst)
	if err != nil {
		return fmt.Errorf("%w: lz4 chunk %d: %v", errdefs.ErrCompression, i, err)
	}
	if n != size {
		return fmt.Errorf("%w: lz4 chunk %d produced %d of %d bytes",
			errdefs.ErrCompression, i, n, size)
	}
	return nil
}

// Decode decompresses the whole store into a fresh buffer. The store is
// left intact, so Decode may be called any number of times.
func (s *Store) Decode(workers int) ([]byte, error) {
	if s.extracted {
		return nil, errdefs.ErrAlreadyExtracted
	}
	out := make([]byte, s.originalSize)
	err := parallel.ForEachErr(len(s.blocks), workers, func(i int) error {
		start := i * s.blockSize
		return s.GetChunk(out[start:start+s.blocks[i].originalLen], i)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Extract decompresses the store and transfers ownership of the result,
// leaving the store empty. A second Extract fails with
// ErrAlreadyExtracted. Requires exclusive access.
func (s *Store) Extract(workers int) ([]byte, error) {
	if s.extracted {
		return nil, errdefs.ErrAlreadyExtracted
	}
	out, err := s.Decode(workers)
	if err != nil {
		return nil, err
	}
	s.blocks = nil
	s.originalSize = 0
	s.extracted = true
	return out, nil
}

// Extracted reports whether the store's buffer has been moved out.
func (s *Store) Extracted() bool {
	return s.extracted
}

// Clone returns an independent handle over the same compressed blocks.
// Block data is immutable and shared; the clone tracks its own extraction
// state.
func (s *Store) Clone() *Store {
	out := &Store{
		blockSize:    s.blockSize,
		originalSize: s.originalSize,
		extracted:    s.extracted,
	}
	out.blocks = append(out.blocks, s.blocks...)
	return out
}
