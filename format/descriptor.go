package format

import (
	"bytes"
	"fmt"

	"github.com/gopsd/psd/internal/encoding"
	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

// DescriptorVersion is the descriptor format version written by modern
// Photoshop releases.
const DescriptorVersion uint32 = 16

// UnitFloat is the 'UntF' descriptor value: a unit tag and a double.
type UnitFloat struct {
	Unit  string
	Value float64
}

// Enum is the 'enum' descriptor value.
type Enum struct {
	Type  string
	Value string
}

// DescriptorList is the 'VlLs' descriptor value.
type DescriptorList []any

// DescriptorItem is one keyed value inside a descriptor.
type DescriptorItem struct {
	Key   string
	Value any
}

// Descriptor is the typed key-value structure Photoshop serializes into
// tagged blocks ('Objc'). Values are one of: float64, int32, bool,
// string, UnitFloat, Enum, DescriptorList or *Descriptor.
type Descriptor struct {
	Name    string
	ClassID string
	Items   []DescriptorItem
}

// Get returns the value stored under key.
func (d *Descriptor) Get(key string) (any, bool) {
	for _, item := range d.Items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return nil, false
}

// GetDescriptor returns a nested descriptor stored under key.
func (d *Descriptor) GetDescriptor(key string) (*Descriptor, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	nested, ok := v.(*Descriptor)
	return nested, ok
}

// GetFloat returns a numeric value stored under key, unwrapping UnitFloat.
func (d *Descriptor) GetFloat(key string) (float64, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case UnitFloat:
		return n.Value, true
	}
	return 0, false
}

// GetInt returns an integer value stored under key.
func (d *Descriptor) GetInt(key string) (int32, bool) {
	v, ok := d.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int32)
	return n, ok
}

// GetList returns a list value stored under key.
func (d *Descriptor) GetList(key string) (DescriptorList, bool) {
	v, ok := d.Get(key)
	if !ok {
		return nil, false
	}
	l, ok := v.(DescriptorList)
	return l, ok
}

// Put appends or replaces the value under key.
func (d *Descriptor) Put(key string, value any) {
	for i := range d.Items {
		if d.Items[i].Key == key {
			d.Items[i].Value = value
			return
		}
	}
	d.Items = append(d.Items, DescriptorItem{Key: key, Value: value})
}

// readDescriptorKey reads a length-prefixed ASCII key; a zero length
// means exactly four bytes.
func readDescriptorKey(f *fileio.File) (string, error) {
	length, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return "", err
	}
	if length == 0 {
		length = 4
	}
	raw, err := fileio.ReadBytes(f, uint64(length))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func writeDescriptorKey(f *fileio.File, key string) error {
	if len(key) == 4 {
		if err := fileio.WriteScalar(f, uint32(0)); err != nil {
			return err
		}
	} else {
		if err := fileio.WriteScalar(f, uint32(len(key))); err != nil {
			return err
		}
	}
	return f.Write([]byte(key))
}

// ReadDescriptor reads a descriptor (name, class id, items).
func ReadDescriptor(f *fileio.File) (*Descriptor, error) {
	d := &Descriptor{}
	var err error
	if d.Name, err = encoding.ReadUnicodeString(f); err != nil {
		return nil, err
	}
	if d.ClassID, err = readDescriptorKey(f); err != nil {
		return nil, err
	}
	count, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		key, err := readDescriptorKey(f)
		if err != nil {
			return nil, err
		}
		value, err := readDescriptorValue(f)
		if err != nil {
			return nil, fmt.Errorf("descriptor item %q: %w", key, err)
		}
		d.Items = append(d.Items, DescriptorItem{Key: key, Value: value})
	}
	return d, nil
}

func readDescriptorValue(f *fileio.File) (any, error) {
	osType, err := ReadSignature(f)
	if err != nil {
		return nil, err
	}
	switch osType.String() {
	case "Objc", "GlbO":
		return ReadDescriptor(f)
	case "VlLs":
		count, err := fileio.ReadScalar[uint32](f)
		if err != nil {
			return nil, err
		}
		list := make(DescriptorList, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := readDescriptorValue(f)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case "doub":
		return readFloat64(f)
	case "UntF":
		unit, err := ReadSignature(f)
		if err != nil {
			return nil, err
		}
		v, err := readFloat64(f)
		if err != nil {
			return nil, err
		}
		return UnitFloat{Unit: unit.String(), Value: v}, nil
	case "long":
		return fileio.ReadScalar[int32](f)
	case "bool":
		b, err := fileio.ReadScalar[uint8](f)
		return b != 0, err
	case "TEXT":
		return encoding.ReadUnicodeString(f)
	case "enum":
		typ, err := readDescriptorKey(f)
		if err != nil {
			return nil, err
		}
		val, err := readDescriptorKey(f)
		if err != nil {
			return nil, err
		}
		return Enum{Type: typ, Value: val}, nil
	default:
		return nil, fmt.Errorf("%w: descriptor OSType %q", errdefs.ErrUnsupported, osType.String())
	}
}

// Write writes the descriptor.
func (d *Descriptor) Write(f *fileio.File) error {
	if err := encoding.WriteUnicodeString(f, d.Name); err != nil {
		return err
	}
	if err := writeDescriptorKey(f, d.ClassID); err != nil {
		return err
	}
	if err := fileio.WriteScalar(f, uint32(len(d.Items))); err != nil {
		return err
	}
	for _, item := range d.Items {
		if err := writeDescriptorKey(f, item.Key); err != nil {
			return err
		}
		if err := writeDescriptorValue(f, item.Value); err != nil {
			return fmt.Errorf("descriptor item %q: %w", item.Key, err)
		}
	}
	return nil
}

func writeDescriptorValue(f *fileio.File, value any) error {
	switch v := value.(type) {
	case *Descriptor:
		if err := WriteSignature(f, Sig("Objc")); err != nil {
			return err
		}
		return v.Write(f)
	case DescriptorList:
		if err := WriteSignature(f, Sig("VlLs")); err != nil {
			return err
		}
		if err := fileio.WriteScalar(f, uint32(len(v))); err != nil {
			return err
		}
		for _, item := range v {
			if err := writeDescriptorValue(f, item); err != nil {
				return err
			}
		}
		return nil
	case float64:
		if err := WriteSignature(f, Sig("doub")); err != nil {
			return err
		}
		return writeFloat64(f, v)
	case UnitFloat:
		if err := WriteSignature(f, Sig("UntF")); err != nil {
			return err
		}
		if err := WriteSignature(f, Sig(v.Unit)); err != nil {
			return err
		}
		return writeFloat64(f, v.Value)
	case int32:
		if err := WriteSignature(f, Sig("long")); err != nil {
			return err
		}
		return fileio.WriteScalar(f, v)
	case bool:
		if err := WriteSignature(f, Sig("bool")); err != nil {
			return err
		}
		var b uint8
		if v {
			b = 1
		}
		return fileio.WriteScalar(f, b)
	case string:
		if err := WriteSignature(f, Sig("TEXT")); err != nil {
			return err
		}
		return encoding.WriteUnicodeString(f, v)
	case Enum:
		if err := WriteSignature(f, Sig("enum")); err != nil {
			return err
		}
		if err := writeDescriptorKey(f, v.Type); err != nil {
			return err
		}
		return writeDescriptorKey(f, v.Value)
	default:
		return fmt.Errorf("%w: descriptor value of type %T", errdefs.ErrUnsupported, value)
	}
}

// EncodeDescriptor serializes a descriptor with its version prefix, as
// stored inside tagged blocks.
func EncodeDescriptor(d *Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	f := fileio.NewWriter(&buf, 0)
	if err := fileio.WriteScalar(f, DescriptorVersion); err != nil {
		return nil, err
	}
	if err := d.Write(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeDescriptor parses a version-prefixed descriptor payload.
func DecodeDescriptor(data []byte) (*Descriptor, error) {
	f := fileio.NewReader(bytes.NewReader(data), uint64(len(data)))
	version, err := fileio.ReadScalar[uint32](f)
	if err != nil {
		return nil, err
	}
	if version != DescriptorVersion {
		return nil, fmt.Errorf("%w: descriptor version %d", errdefs.ErrUnsupported, version)
	}
	return ReadDescriptor(f)
}
