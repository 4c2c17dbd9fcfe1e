package psd

import "github.com/gopsd/psd/internal/errdefs"

// Error kinds surfaced by the engine. Callers match with errors.Is; most
// returned errors wrap one of these sentinels with positional context.
var (
	// ErrIoOverflow is returned when a read runs past the recorded size of
	// a section or a write exceeds its planned size.
	ErrIoOverflow = errdefs.ErrIoOverflow

	// ErrInvalidSignature is returned when a 4-byte magic does not match.
	ErrInvalidSignature = errdefs.ErrInvalidSignature

	// ErrInvalidArgument is returned on API misuse, such as a channel count
	// that does not fit the color mode or a chunk size mismatch.
	ErrInvalidArgument = errdefs.ErrInvalidArgument

	// ErrStructural is returned for malformed document structure: unmatched
	// section dividers, channel length mismatches, oversize Pascal strings.
	ErrStructural = errdefs.ErrStructural

	// ErrUnsupported is returned for valid files the engine cannot process,
	// such as compositing 1-bit layers.
	ErrUnsupported = errdefs.ErrUnsupported

	// ErrAlreadyExtracted is returned when a channel's compressed buffer is
	// moved out a second time.
	ErrAlreadyExtracted = errdefs.ErrAlreadyExtracted

	// ErrCompression is returned when a codec produces less data than the
	// channel dimensions require, or refuses its input.
	ErrCompression = errdefs.ErrCompression

	// ErrCancelled is returned when the progress callback requested
	// cancellation. The operation stops at the next section boundary.
	ErrCancelled = errdefs.ErrCancelled
)
