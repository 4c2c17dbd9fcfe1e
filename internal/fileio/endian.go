package fileio

import (
	"encoding/binary"
	"unsafe"
)

// Scalar is the set of fixed-width integer types the format encodes
// big-endian.
type Scalar interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

// ReadScalar reads one big-endian value of type T from the file cursor.
func ReadScalar[T Scalar](f *File) (T, error) {
	var zero T
	buf := make([]byte, scalarSize(zero))
	if err := f.Read(buf); err != nil {
		return zero, err
	}
	return decodeScalar[T](buf), nil
}

// WriteScalar writes one big-endian value of type T at the file cursor.
func WriteScalar[T Scalar](f *File, value T) error {
	buf := make([]byte, scalarSize(value))
	encodeScalar(buf, value)
	return f.Write(buf)
}

// ReadBytes reads exactly n bytes from the file cursor.
func ReadBytes(f *File, n uint64) ([]byte, error) {
	buf := make([]byte, n)
	if err := f.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func scalarSize[T Scalar](value T) int {
	return int(unsafe.Sizeof(value))
}

func decodeScalar[T Scalar](buf []byte) T {
	switch len(buf) {
	case 1:
		return T(buf[0])
	case 2:
		return T(binary.BigEndian.Uint16(buf))
	case 4:
		return T(binary.BigEndian.Uint32(buf))
	default:
		return T(binary.BigEndian.Uint64(buf))
	}
}

func encodeScalar[T Scalar](buf []byte, value T) {
	switch len(buf) {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(value))
	default:
		binary.BigEndian.PutUint64(buf, uint64(value))
	}
}

// RoundUpToMultiple rounds value up to the next multiple of m.
func RoundUpToMultiple(value, m uint64) uint64 {
	if m == 0 {
		return value
	}
	rem := value % m
	if rem == 0 {
		return value
	}
	return value + m - rem
}
