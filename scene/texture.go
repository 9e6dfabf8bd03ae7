package scene

import (
	"fmt"

	"deferred-renderer/core"
	"deferred-renderer/gpu"
)

// Texture holds CPU-side pixel data for a 2D texture.
type Texture struct {
	Name   string
	Width  int
	Height int
	// Pixels in RGBA8 format (4 bytes per pixel, row-major, top-to-bottom).
	Pixels []byte
}

// NewSolidTexture creates a 1x1 texture with the given RGBA color values (0–255).
func NewSolidTexture(name string, r, g, b, a uint8) *Texture {
	return &Texture{
		Name:   name,
		Width:  1,
		Height: 1,
		Pixels: []byte{r, g, b, a},
	}
}

// NewCheckerTexture creates a size x size checkerboard of cell-pixel squares.
func NewCheckerTexture(name string, size, cell int, a, b core.Color) *Texture {
	if cell < 1 {
		cell = 1
	}
	t := &Texture{Name: name, Width: size, Height: size, Pixels: make([]byte, size*size*4)}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			i := (y*size + x) * 4
			t.Pixels[i+0] = toByte(c.R)
			t.Pixels[i+1] = toByte(c.G)
			t.Pixels[i+2] = toByte(c.B)
			t.Pixels[i+3] = toByte(c.A)
		}
	}
	return t
}

// Upload copies the texture to the device. Rows are flipped so the first
// row of Pixels ends up at V=1.
func (t *Texture) Upload(dev gpu.Device) (gpu.Texture, error) {
	if len(t.Pixels) != t.Width*t.Height*4 {
		return nil, fmt.Errorf("texture %q: have %d bytes for %dx%d", t.Name, len(t.Pixels), t.Width, t.Height)
	}
	stride := t.Width * 4
	flipped := make([]byte, len(t.Pixels))
	for y := 0; y < t.Height; y++ {
		copy(flipped[(t.Height-1-y)*stride:], t.Pixels[y*stride:(y+1)*stride])
	}
	tex, err := dev.CreateTexture(t.Width, t.Height, flipped)
	if err != nil {
		return nil, fmt.Errorf("upload texture %q: %w", t.Name, err)
	}
	return tex, nil
}

func toByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
