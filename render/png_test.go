package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/gopsd/psd/imageio"
)

// encodePNG serializes a test image to PNG bytes for the smart-object
// source path.
func encodePNG(t *testing.T, img *imageio.Image) []byte {
	t.Helper()
	rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	copy(rgba.Pix, img.Pixels)
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}
