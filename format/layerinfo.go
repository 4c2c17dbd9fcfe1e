package format

import (
	"fmt"
	"math"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

func readFloat64(f *fileio.File) (float64, error) {
	bits, err := fileio.ReadScalar[uint64](f)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

func writeFloat64(f *fileio.File, v float64) error {
	return fileio.WriteScalar(f, math.Float64bits(v))
}

// LayerInfo is the layer info section: the flat, reverse-ordered layer
// records and their channel image data. In 16- and 32-bit documents the
// section is re-hosted inside the Lr16/Lr32 tagged block and the outer
// section is empty.
type LayerInfo struct {
	// AlphaIsMerged reflects a negative layer count: the first alpha
	// channel of the merged image data holds the merged transparency.
	AlphaIsMerged bool
	Records       []*LayerRecord
}

// ReadLayerInfoPayload parses the section body (layer count onward) up to
// end. Used both for the in-place section and the Lr16/Lr32 rehost.
func ReadLayerInfoPayload(f *fileio.File, version Version, end uint64) (*LayerInfo, error) {
	info := &LayerInfo{}

	count, err := fileio.ReadScalar[int16](f)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		info.AlphaIsMerged = true
		count = -count
	}

	info.Records = make([]*LayerRecord, count)
	for i := range info.Records {
		if info.Records[i], err = readLayerRecord(f, version); err != nil {
			return nil, fmt.Errorf("layer record %d: %w", i, err)
		}
	}

	// Channel image data follows in record order, each channel a 2-byte
	// compression code and its payload; the payload length is known only
	// from the record's declared length.
	for i, record := range info.Records {
		record.ChannelData = make([]ChannelPayload, len(record.Channels))
		for c, channel := range record.Channels {
			if channel.Length < 2 {
				return nil, fmt.Errorf("%w: layer %d channel %d declares %d bytes",
					errdefs.ErrStructural, i, c, channel.Length)
			}
			code, err := fileio.ReadScalar[uint16](f)
			if err != nil {
				return nil, err
			}
			data, err := fileio.ReadBytes(f, channel.Length-2)
			if err != nil {
				return nil, fmt.Errorf("%w: layer %d channel %d: %v", errdefs.ErrStructural, i, c, err)
			}
			record.ChannelData[c] = ChannelPayload{Compression: code, Data: data}
		}
	}

	if f.Offset() > end {
		return nil, fmt.Errorf("%w: layer info overran its section by %d bytes",
			errdefs.ErrStructural, f.Offset()-end)
	}
	if f.Offset() < end {
		if err := f.Skip(end - f.Offset()); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// WritePayload writes the section body (layer count onward), padded to
// padTo. Channel lengths in the records are updated from the attached
// channel data first so the declared and written byte counts agree.
func (info *LayerInfo) WritePayload(f *fileio.File, version Version, padTo uint64) error {
	if err := info.syncChannelLengths(); err != nil {
		return err
	}

	count := int16(len(info.Records))
	if info.AlphaIsMerged {
		count = -count
	}
	if err := fileio.WriteScalar(f, count); err != nil {
		return err
	}
	for i, record := range info.Records {
		if err := record.write(f, version); err != nil {
			return fmt.Errorf("layer record %d: %w", i, err)
		}
	}
	var written uint64
	for _, record := range info.Records {
		for _, payload := range record.ChannelData {
			if err := fileio.WriteScalar(f, payload.Compression); err != nil {
				return err
			}
			if err := f.Write(payload.Data); err != nil {
				return err
			}
			written += 2 + uint64(len(payload.Data))
		}
	}
	body, err := info.payloadSize(version)
	if err != nil {
		return err
	}
	return f.WritePadding(fileio.RoundUpToMultiple(body, padTo) - body)
}

// syncChannelLengths copies the actual channel payload sizes into the
// record declarations and rejects count mismatches.
func (info *LayerInfo) syncChannelLengths() error {
	for i, record := range info.Records {
		if len(record.ChannelData) != len(record.Channels) {
			return fmt.Errorf("%w: layer %d declares %d channels but carries %d payloads",
				errdefs.ErrStructural, i, len(record.Channels), len(record.ChannelData))
		}
		for c := range record.Channels {
			record.Channels[c].Length = 2 + uint64(len(record.ChannelData[c].Data))
		}
	}
	return nil
}

// payloadSize returns the unpadded body size (layer count onward).
func (info *LayerInfo) payloadSize(version Version) (uint64, error) {
	if err := info.syncChannelLengths(); err != nil {
		return 0, err
	}
	size := uint64(2)
	for _, record := range info.Records {
		recordSize, err := record.size(version)
		if err != nil {
			return 0, err
		}
		size += recordSize
		for _, channel := range record.Channels {
			size += channel.Length
		}
	}
	return size, nil
}

// PayloadSize returns the padded body size.
func (info *LayerInfo) PayloadSize(version Version, padTo uint64) (uint64, error) {
	body, err := info.payloadSize(version)
	if err != nil {
		return 0, err
	}
	return fileio.RoundUpToMultiple(body, padTo), nil
}
