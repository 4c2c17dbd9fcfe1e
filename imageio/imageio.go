// Package imageio defines the codec abstraction through which the engine
// obtains pixels for smart-object source files. The engine consumes this
// interface; callers may plug in their own implementation. A default
// codec backed by the standard image registry plus the x/image formats is
// provided for the common cases.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	_ "image/gif"
	_ "image/jpeg"

	"image/png"
)

// Image is a decoded smart-object source: 8-bit interleaved pixel data.
type Image struct {
	Pixels   []byte
	Width    int
	Height   int
	Channels int
}

// Codec reads and writes smart-object source files.
type Codec interface {
	// Read decodes the file at path.
	Read(path string) (*Image, error)
	// ReadBytes decodes an in-memory file.
	ReadBytes(data []byte) (*Image, error)
	// Write encodes the image to the file at path.
	Write(path string, img *Image) error
}

// Default is a Codec over Go's image registry: PNG, JPEG, GIF plus BMP
// and TIFF through x/image. Write always produces RGBA data; PNG and
// TIFF outputs are supported.
type Default struct{}

var _ Codec = Default{}

// Read decodes the file at path.
func (Default) Read(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Default{}.ReadBytes(data)
}

// ReadBytes decodes an in-memory file.
func (Default) ReadBytes(data []byte) (*Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imageio: decode: %w", err)
	}
	return fromImage(img), nil
}

// Write encodes the image to the file at path, selecting the format from
// the extension.
func (Default) Write(path string, img *Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	rgba := toImage(img)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return tiff.Encode(out, rgba, nil)
	case ".bmp":
		return bmp.Encode(out, rgba)
	default:
		return png.Encode(out, rgba)
	}
}

func fromImage(img image.Image) *Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &Image{
		Pixels:   make([]byte, w*h*4),
		Width:    w,
		Height:   h,
		Channels: 4,
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == w*4 {
		copy(out.Pixels, rgba.Pix)
		return out
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			out.Pixels[i+0] = byte(r >> 8)
			out.Pixels[i+1] = byte(g >> 8)
			out.Pixels[i+2] = byte(b >> 8)
			out.Pixels[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return out
}

func toImage(img *Image) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	switch img.Channels {
	case 4:
		copy(out.Pix, img.Pixels)
	case 3:
		for i := 0; i < img.Width*img.Height; i++ {
			out.Pix[i*4+0] = img.Pixels[i*3+0]
			out.Pix[i*4+1] = img.Pixels[i*3+1]
			out.Pix[i*4+2] = img.Pixels[i*3+2]
			out.Pix[i*4+3] = 255
		}
	case 1:
		for i := 0; i < img.Width*img.Height; i++ {
			v := img.Pixels[i]
			out.Pix[i*4+0] = v
			out.Pix[i*4+1] = v
			out.Pix[i*4+2] = v
			out.Pix[i*4+3] = 255
		}
	}
	return out
}
