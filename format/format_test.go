package format

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gopsd/psd/internal/errdefs"
	"github.com/gopsd/psd/internal/fileio"
)

func writerBuf() (*bytes.Buffer, *fileio.File) {
	var buf bytes.Buffer
	return &buf, fileio.NewWriter(&buf, 0)
}

func readerFor(buf *bytes.Buffer) *fileio.File {
	return fileio.NewReader(bytes.NewReader(buf.Bytes()), uint64(buf.Len()))
}

// TestFileHeaderRoundTrip tests header encode/decode symmetry.
func TestFileHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		header FileHeader
	}{
		{
			name: "psd rgb 8",
			header: FileHeader{
				Version: VersionPSD, Channels: 3, Height: 64, Width: 64,
				Depth: 8, ColorMode: ColorModeRGB,
			},
		},
		{
			name: "psb cmyk 16",
			header: FileHeader{
				Version: VersionPSB, Channels: 5, Height: 100000, Width: 200000,
				Depth: 16, ColorMode: ColorModeCMYK,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, w := writerBuf()
			if err := tt.header.Write(w); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if buf.Len() != 26 {
				t.Errorf("header wrote %d bytes, want 26", buf.Len())
			}
			got, err := ReadFileHeader(readerFor(buf))
			if err != nil {
				t.Fatalf("ReadFileHeader: %v", err)
			}
			if *got != tt.header {
				t.Errorf("round trip = %+v, want %+v", *got, tt.header)
			}
		})
	}
}

// TestFileHeaderValidation tests limit enforcement per version.
func TestFileHeaderValidation(t *testing.T) {
	tests := []struct {
		name   string
		header FileHeader
	}{
		{name: "psd too wide", header: FileHeader{Version: VersionPSD, Channels: 3, Width: 30001, Height: 10, Depth: 8, ColorMode: ColorModeRGB}},
		{name: "psb too wide", header: FileHeader{Version: VersionPSB, Channels: 3, Width: 300001, Height: 10, Depth: 8, ColorMode: ColorModeRGB}},
		{name: "zero channels", header: FileHeader{Version: VersionPSD, Channels: 0, Width: 10, Height: 10, Depth: 8, ColorMode: ColorModeRGB}},
		{name: "57 channels", header: FileHeader{Version: VersionPSD, Channels: 57, Width: 10, Height: 10, Depth: 8, ColorMode: ColorModeRGB}},
		{name: "bad depth", header: FileHeader{Version: VersionPSD, Channels: 3, Width: 10, Height: 10, Depth: 12, ColorMode: ColorModeRGB}},
		{name: "bad mode", header: FileHeader{Version: VersionPSD, Channels: 3, Width: 10, Height: 10, Depth: 8, ColorMode: ColorMode(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.header.Validate(); !errors.Is(err, errdefs.ErrStructural) {
				t.Errorf("Validate = %v, want ErrStructural", err)
			}
		})
	}
}

// TestInvalidSignature tests magic mismatch reporting.
func TestInvalidSignature(t *testing.T) {
	buf := bytes.NewBuffer([]byte("NOPE"))
	_, err := ExpectSignature(readerFor(buf), SigFile)
	if !errors.Is(err, errdefs.ErrInvalidSignature) {
		t.Errorf("ExpectSignature = %v, want ErrInvalidSignature", err)
	}
}

// TestTaggedBlockRoundTrip tests raw preservation across both versions
// and padding rules.
func TestTaggedBlockRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		version Version
		padTo   uint64
		size    int
	}{
		{name: "unknown key psd", key: "zzzz", version: VersionPSD, padTo: 2, size: 13},
		{name: "unknown key psb stays 32-bit", key: "zzzz", version: VersionPSB, padTo: 4, size: 10},
		{name: "promoted key psb", key: "LMsk", version: VersionPSB, padTo: 4, size: 21},
		{name: "promoted key psd stays 32-bit", key: "LMsk", version: VersionPSD, padTo: 2, size: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := make([]byte, tt.size)
			for i := range payload {
				payload[i] = byte(i + 1)
			}
			block := &TaggedBlock{Signature: SigResource, Key: tt.key, Data: payload}

			buf, w := writerBuf()
			if err := block.Write(w, tt.version, tt.padTo); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if got := uint64(buf.Len()); got != block.Size(tt.version, tt.padTo) {
				t.Errorf("wrote %d bytes, Size says %d", got, block.Size(tt.version, tt.padTo))
			}

			got, err := ReadTaggedBlock(readerFor(buf), tt.version, tt.padTo)
			if err != nil {
				t.Fatalf("ReadTaggedBlock: %v", err)
			}
			if got.Key != tt.key || !bytes.Equal(got.Data, payload) {
				t.Errorf("round trip key %q payload % X", got.Key, got.Data)
			}
		})
	}
}

// TestLengthFieldPromotion tests the fixed PSB promotion table.
func TestLengthFieldPromotion(t *testing.T) {
	for _, key := range []string{"LMsk", "Lr16", "Lr32", "Layr", "Alph", "FMsk", "FXid", "FEid", "lnk2", "PxSD", "cinf"} {
		if !LengthFieldIs64(key, VersionPSB) {
			t.Errorf("key %q not promoted in PSB", key)
		}
		if LengthFieldIs64(key, VersionPSD) {
			t.Errorf("key %q promoted in PSD", key)
		}
	}
	for _, key := range []string{"luni", "lsct", "SoLd", "lnkD", "zzzz"} {
		if LengthFieldIs64(key, VersionPSB) {
			t.Errorf("key %q wrongly promoted in PSB", key)
		}
	}
}

// TestImageResourcesRoundTrip tests the resource section including the
// odd-length pad byte.
func TestImageResourcesRoundTrip(t *testing.T) {
	r := &ImageResources{}
	r.Put(ResourceBlock{ID: 1000, Data: []byte{1, 2, 3}}) // odd length
	r.Put(ResourceBlock{ID: 1005, Name: "res", Data: []byte{4, 5, 6, 7}})
	r.SetICCProfile([]byte("icc-profile-bytes"))
	r.SetResolutionDPI(300)

	buf, w := writerBuf()
	if err := r.Write(w); err != nil {
		t.Fatalf("Write: %v", err)
	}
	size, err := r.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if uint64(buf.Len()) != size {
		t.Errorf("wrote %d bytes, Size says %d", buf.Len(), size)
	}

	got, err := ReadImageResources(readerFor(buf))
	if err != nil {
		t.Fatalf("ReadImageResources: %v", err)
	}
	if len(got.Blocks) != len(r.Blocks) {
		t.Fatalf("block count = %d, want %d", len(got.Blocks), len(r.Blocks))
	}
	if !bytes.Equal(got.ICCProfile(), []byte("icc-profile-bytes")) {
		t.Error("ICC profile lost in round trip")
	}
	if dpi := got.ResolutionDPI(); dpi != 300 {
		t.Errorf("DPI = %g, want 300", dpi)
	}
	block, ok := got.Get(1000)
	if !ok || !bytes.Equal(block.Data, []byte{1, 2, 3}) {
		t.Error("odd-length resource payload lost")
	}
}

// TestSectionDividerRoundTrip tests the lsct payload with and without a
// blend key.
func TestSectionDividerRoundTrip(t *testing.T) {
	tests := []SectionDivider{
		{Kind: DividerOpenFolder, BlendKey: "pass"},
		{Kind: DividerClosedFolder, BlendKey: "norm"},
		{Kind: DividerBoundingSection},
	}
	for _, d := range tests {
		got, err := ParseSectionDivider(d.Encode())
		if err != nil {
			t.Fatalf("ParseSectionDivider: %v", err)
		}
		if *got != d {
			t.Errorf("round trip = %+v, want %+v", *got, d)
		}
	}
}

// TestDescriptorRoundTrip tests the descriptor subset codec.
func TestDescriptorRoundTrip(t *testing.T) {
	inner := &Descriptor{ClassID: "rationalPoint"}
	inner.Put("Hrzn", 1.5)
	inner.Put("Vrtc", -2.25)

	d := &Descriptor{Name: "placed", ClassID: "null"}
	d.Put("Idnt", "abcdef0123456789")
	d.Put("Cnt ", int32(42))
	d.Put("flag", true)
	d.Put("Wdth", UnitFloat{Unit: "#Pxl", Value: 512})
	d.Put("Md  ", Enum{Type: "BlnM", Value: "Nrml"})
	d.Put("list", DescriptorList{1.0, 2.0, inner})

	payload, err := EncodeDescriptor(d)
	if err != nil {
		t.Fatalf("EncodeDescriptor: %v", err)
	}
	got, err := DecodeDescriptor(payload)
	if err != nil {
		t.Fatalf("DecodeDescriptor: %v", err)
	}

	if got.Name != "placed" || got.ClassID != "null" {
		t.Errorf("descriptor head = %q/%q", got.Name, got.ClassID)
	}
	if v, _ := got.Get("Idnt"); v != "abcdef0123456789" {
		t.Errorf("Idnt = %v", v)
	}
	if v, _ := got.GetInt("Cnt "); v != 42 {
		t.Errorf("Cnt = %d", v)
	}
	if v, _ := got.GetFloat("Wdth"); v != 512 {
		t.Errorf("Wdth = %g", v)
	}
	list, ok := got.GetList("list")
	if !ok || len(list) != 3 {
		t.Fatalf("list = %v", list)
	}
	nested, ok := list[2].(*Descriptor)
	if !ok {
		t.Fatal("nested descriptor lost")
	}
	if v, _ := nested.GetFloat("Vrtc"); v != -2.25 {
		t.Errorf("nested Vrtc = %g", v)
	}
}

// TestLinkedLayersRoundTrip tests the linked-layer entry codec.
func TestLinkedLayersRoundTrip(t *testing.T) {
	entries := []LinkedLayerEntry{
		{
			Type: LinkedData, Version: 7, UniqueID: "id-1",
			Filename: "texture.png", FileType: "png ", Creator: "8BIM",
			Data: []byte("png-bytes-here"),
		},
		{
			Type: LinkedExternal, Version: 7, UniqueID: "id-2",
			Filename: "external.tif", FileType: "tif ", Creator: "8BIM",
		},
	}
	payload, err := EncodeLinkedLayers(entries)
	if err != nil {
		t.Fatalf("EncodeLinkedLayers: %v", err)
	}
	got, err := ParseLinkedLayers(payload)
	if err != nil {
		t.Fatalf("ParseLinkedLayers: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entry count = %d, want 2", len(got))
	}
	if got[0].Filename != "texture.png" || !bytes.Equal(got[0].Data, []byte("png-bytes-here")) {
		t.Errorf("embedded entry = %+v", got[0])
	}
	if got[1].Type != LinkedExternal || len(got[1].Data) != 0 {
		t.Errorf("external entry = %+v", got[1])
	}
}

// TestLayerInfoRoundTrip tests records and channel data through the
// full section writer in both versions and rehost modes.
func TestLayerInfoRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		depth   uint16
	}{
		{name: "psd 8-bit in place", version: VersionPSD, depth: 8},
		{name: "psb 8-bit in place", version: VersionPSB, depth: 8},
		{name: "psd 16-bit rehosted", version: VersionPSD, depth: 16},
		{name: "psb 32-bit rehosted", version: VersionPSB, depth: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &LayerRecord{
				Top: 0, Left: 0, Bottom: 2, Right: 2,
				Channels: []ChannelInfo{{ID: 0}, {ID: -1}},
				BlendKey: "norm", Opacity: 255,
				LegacyName: "layer",
				Tagged:     &TaggedBlocks{},
				ChannelData: []ChannelPayload{
					{Compression: 0, Data: []byte{1, 2, 3, 4}},
					{Compression: 0, Data: []byte{255, 255, 255, 255}},
				},
			}
			record.Tagged.Put(&TaggedBlock{Key: "zzzz", Data: []byte{9, 9}})
			section := &LayerAndMaskInfo{
				Info:   &LayerInfo{Records: []*LayerRecord{record}},
				Tagged: &TaggedBlocks{},
			}
			section.Tagged.Put(&TaggedBlock{Key: "yyyy", Data: []byte{7}})

			buf, w := writerBuf()
			if err := section.Write(w, tt.version, tt.depth); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := ReadLayerAndMaskInfo(readerFor(buf), tt.version)
			if err != nil {
				t.Fatalf("ReadLayerAndMaskInfo: %v", err)
			}
			if got.Info == nil || len(got.Info.Records) != 1 {
				t.Fatal("layer info lost in round trip")
			}
			gotRecord := got.Info.Records[0]
			if gotRecord.LegacyName != "layer" || gotRecord.BlendKey != "norm" {
				t.Errorf("record head = %q %q", gotRecord.LegacyName, gotRecord.BlendKey)
			}
			if !bytes.Equal(gotRecord.ChannelData[0].Data, []byte{1, 2, 3, 4}) {
				t.Error("channel payload mismatch")
			}
			if _, ok := gotRecord.Tagged.Get("zzzz"); !ok {
				t.Error("unknown layer block dropped")
			}
			if _, ok := got.Tagged.Get("yyyy"); !ok {
				t.Error("unknown document block dropped")
			}
		})
	}
}

// TestChannelLengthMismatch tests that a record declaring more channel
// bytes than the section holds fails structurally.
func TestChannelLengthMismatch(t *testing.T) {
	record := &LayerRecord{
		Top: 0, Left: 0, Bottom: 1, Right: 1,
		Channels:    []ChannelInfo{{ID: 0}},
		BlendKey:    "norm",
		Tagged:      &TaggedBlocks{},
		ChannelData: []ChannelPayload{{Compression: 0, Data: []byte{1}}},
	}
	section := &LayerAndMaskInfo{
		Info:   &LayerInfo{Records: []*LayerRecord{record}},
		Tagged: &TaggedBlocks{},
	}
	buf, w := writerBuf()
	if err := section.Write(w, VersionPSD, 8); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Corrupt the declared channel length upward.
	raw := buf.Bytes()
	idx := bytes.Index(raw, []byte("8BIMnorm")) - 6
	if idx < 0 {
		t.Fatal("channel info not found in serialized section")
	}
	raw[idx+3] = 0xEF

	_, err := ReadLayerAndMaskInfo(fileio.NewReader(bytes.NewReader(raw), uint64(len(raw))), VersionPSD)
	if err == nil {
		t.Error("corrupted channel length decoded without error")
	}
}
