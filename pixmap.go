package splat

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// Pixmap is a float32 RGBA render target holding premultiplied color,
// 4 values per pixel, row by row from the top-left corner.
type Pixmap struct {
	width  int
	height int
	data   []float32
}

// NewPixmap creates a transparent pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]float32, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw premultiplied pixel data.
func (p *Pixmap) Data() []float32 {
	return p.data
}

// Pixel returns the premultiplied color of a pixel, or transparent when
// (x, y) is outside the pixmap.
func (p *Pixmap) Pixel(x, y int) mgl32.Vec4 {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return mgl32.Vec4{}
	}
	i := (y*p.width + x) * 4
	return mgl32.Vec4{p.data[i], p.data[i+1], p.data[i+2], p.data[i+3]}
}

// SetPixel stores a premultiplied color.
func (p *Pixmap) SetPixel(x, y int, c mgl32.Vec4) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	copy(p.data[i:i+4], c[:])
}

// Blend composites a premultiplied source over the pixel:
// dst = src + dst·(1 − src.a).
func (p *Pixmap) Blend(x, y int, src mgl32.Vec4) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	inv := 1 - src[3]
	p.data[i+0] = src[0] + p.data[i+0]*inv
	p.data[i+1] = src[1] + p.data[i+1]*inv
	p.data[i+2] = src[2] + p.data[i+2]*inv
	p.data[i+3] = src[3] + p.data[i+3]*inv
}

// Clear fills the entire pixmap with a premultiplied color.
func (p *Pixmap) Clear(c mgl32.Vec4) {
	for i := 0; i < len(p.data); i += 4 {
		copy(p.data[i:i+4], c[:])
	}
}

// ToImage converts the pixmap to an 8-bit premultiplied image.RGBA.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	for i, v := range p.data {
		img.Pix[i] = uint8(clampf(v, 0, 1)*255 + 0.5)
	}
	return img
}

func (p *Pixmap) toRGBA64() *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, p.width, p.height))
	for i, v := range p.data {
		c := uint16(clampf(v, 0, 1)*0xffff + 0.5)
		img.Pix[i*2] = uint8(c >> 8)
		img.Pix[i*2+1] = uint8(c)
	}
	return img
}

func fromRGBA64(img *image.RGBA64) *Pixmap {
	b := img.Bounds()
	p := NewPixmap(b.Dx(), b.Dy())
	for i := range p.data {
		c := uint16(img.Pix[i*2])<<8 | uint16(img.Pix[i*2+1])
		p.data[i] = float32(c) / 0xffff
	}
	return p
}

// Scale resamples the pixmap to width×height with the Catmull-Rom kernel.
// Values are clamped to [0, 1] and quantized to 16 bits.
func (p *Pixmap) Scale(width, height int) *Pixmap {
	if width == p.width && height == p.height {
		out := NewPixmap(width, height)
		copy(out.data, p.data)
		return out
	}
	dst := image.NewRGBA64(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), p.toRGBA64(), image.Rect(0, 0, p.width, p.height), draw.Src, nil)
	return fromRGBA64(dst)
}

// SavePNG saves the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	return png.Encode(f, p.ToImage())
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	c := p.Pixel(x, y)
	return color.RGBA64{
		R: uint16(clampf(c[0], 0, 1)*0xffff + 0.5),
		G: uint16(clampf(c[1], 0, 1)*0xffff + 0.5),
		B: uint16(clampf(c[2], 0, 1)*0xffff + 0.5),
		A: uint16(clampf(c[3], 0, 1)*0xffff + 0.5),
	}
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBA64Model
}
