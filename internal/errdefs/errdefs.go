// Package errdefs holds the sentinel errors shared by every layer of the
// engine. The root psd package re-exports them under their public names;
// defining them here lets the format and internal packages raise the same
// identities without importing the root package.
package errdefs

import "errors"

var (
	ErrIoOverflow       = errors.New("psd: io overflow")
	ErrInvalidSignature = errors.New("psd: invalid signature")
	ErrInvalidArgument  = errors.New("psd: invalid argument")
	ErrStructural       = errors.New("psd: structural error")
	ErrUnsupported      = errors.New("psd: unsupported")
	ErrAlreadyExtracted = errors.New("psd: channel already extracted")
	ErrCompression      = errors.New("psd: compression error")
	ErrCancelled        = errors.New("psd: cancelled")
)
