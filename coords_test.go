package psd

import "testing"

// TestExtentsCoordinatesRoundTrip tests that converting file extents to
// center coordinates and back is lossless for even and odd dimensions.
func TestExtentsCoordinatesRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		extents ChannelExtents
		docW    uint32
		docH    uint32
	}{
		{name: "full canvas even", extents: ChannelExtents{0, 0, 64, 64}, docW: 64, docH: 64},
		{name: "offset rect", extents: ChannelExtents{10, 20, 30, 50}, docW: 64, docH: 64},
		{name: "odd dimensions", extents: ChannelExtents{3, 5, 10, 14}, docW: 64, docH: 64},
		{name: "odd canvas", extents: ChannelExtents{0, 0, 33, 17}, docW: 17, docH: 33},
		{name: "negative extents", extents: ChannelExtents{-10, -20, 30, 40}, docW: 100, docH: 100},
		{name: "single pixel", extents: ChannelExtents{7, 7, 8, 8}, docW: 15, docH: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coords := GenerateCoordinates(tt.extents, tt.docW, tt.docH)
			got := GenerateExtents(coords, tt.docW, tt.docH)
			if got != tt.extents {
				t.Errorf("round trip = %+v, want %+v", got, tt.extents)
			}
		})
	}
}

// TestCoordinatesCenter tests the center convention: a full-canvas layer
// sits at the document center.
func TestCoordinatesCenter(t *testing.T) {
	coords := GenerateCoordinates(ChannelExtents{0, 0, 64, 64}, 64, 64)
	if coords.CenterX != 0 || coords.CenterY != 0 {
		t.Errorf("full canvas center = (%g, %g), want (0, 0)", coords.CenterX, coords.CenterY)
	}
	if coords.Width != 64 || coords.Height != 64 {
		t.Errorf("dimensions = %dx%d, want 64x64", coords.Width, coords.Height)
	}
}
