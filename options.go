package psd

import (
	"github.com/gopsd/psd/imageio"
)

// Progress receives completion callbacks during long operations. stage
// names the section being processed and fraction grows towards 1.
// Returning true requests cancellation; the operation stops with
// ErrCancelled at the next section or chunk boundary, never mid-chunk.
type Progress func(stage string, fraction float64) (cancel bool)

// check runs the callback and converts a cancel request into an error.
func (p Progress) check(stage string, fraction float64) error {
	if p == nil {
		return nil
	}
	if p(stage, fraction) {
		return ErrCancelled
	}
	return nil
}

// DecodeOptions configures document decoding. The zero value is valid.
type DecodeOptions struct {
	// Workers bounds parallelism during decompression; zero means
	// GOMAXPROCS.
	Workers int

	// Progress is invoked between sections and layers.
	Progress Progress

	// SourceCodec decodes smart-object source files. Nil selects the
	// built-in codec.
	SourceCodec imageio.Codec

	// SkipMergedImage leaves the flattened composite unparsed for
	// callers that only need the layer tree.
	SkipMergedImage bool
}

func (o *DecodeOptions) orDefault() *DecodeOptions {
	if o == nil {
		return &DecodeOptions{}
	}
	return o
}

// EncodeOptions configures document writing. The zero value writes a PSD
// (or PSB when the canvas exceeds PSD limits) with per-channel codecs.
type EncodeOptions struct {
	// Version forces the container version. Zero selects PSD unless the
	// dimensions require PSB.
	Version Version

	// Workers bounds parallelism during compression; zero means
	// GOMAXPROCS.
	Workers int

	// Progress is invoked between sections and layers.
	Progress Progress

	// Compression overrides every channel's write codec when non-nil.
	Compression *Compression
}

func (o *EncodeOptions) orDefault() *EncodeOptions {
	if o == nil {
		return &EncodeOptions{}
	}
	return o
}
