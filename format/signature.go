package format

import (
	"fmt"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// Signature is a 4-byte ASCII magic tag.
type Signature [4]byte

// Well-known signatures.
var (
	// SigFile marks the file header.
	SigFile = Signature{'8', 'B', 'P', 'S'}
	// SigResource marks image resource blocks and most tagged blocks.
	SigResource = Signature{'8', 'B', 'I', 'M'}
	// SigTagged64 is the alternate tagged block signature.
	SigTagged64 = Signature{'8', 'B', '6', '4'}
)

// Sig builds a signature from a 4-character string.
func Sig(s string) Signature {
	var out Signature
	copy(out[:], s)
	return out
}

// String returns the signature as text.
func (s Signature) String() string {
	return string(s[:])
}

// ReadSignature reads a 4-byte signature from the file cursor.
func ReadSignature(f *fileio.File) (Signature, error) {
	var s Signature
	if err := f.Read(s[:]); err != nil {
		return Signature{}, err
	}
	return s, nil
}

// WriteSignature writes a 4-byte signature at the file cursor.
func WriteSignature(f *fileio.File, s Signature) error {
	return f.Write(s[:])
}

// ExpectSignature reads a signature and fails with ErrInvalidSignature
// unless it matches one of the allowed values.
func ExpectSignature(f *fileio.File, allowed ...Signature) (Signature, error) {
	s, err := ReadSignature(f)
	if err != nil {
		return Signature{}, err
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return Signature{}, fmt.Errorf("%w: got %q at offset %d", errdefs.ErrInvalidSignature, s.String(), f.Offset()-4)
}
