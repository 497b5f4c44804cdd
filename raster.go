package main

import (
	"image"
	"image/color"

	// decoders for encoder input
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/svanichkin/hdmi/tmds"
)

// rowColors reads row y of img (relative to its bounds) as stored colours,
// reusing dst. Pixels are taken non-premultiplied and alpha is ignored; the
// link has no alpha channel.
func rowColors(img image.Image, y int, dst []tmds.Color) []tmds.Color {
	b := img.Bounds()
	w := b.Dx()
	dst = dst[:0]

	if src, ok := img.(*image.NRGBA); ok {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		pix := src.Pix[off : off+w*4]
		for x := 0; x < w; x++ {
			p := pix[x*4 : x*4+4 : x*4+4]
			dst = append(dst, tmds.Color{R: p[0], G: p[1], B: p[2]})
		}
		return dst
	}

	for x := 0; x < w; x++ {
		c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		raw := tmds.RawColor(uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
		dst = append(dst, raw.Color())
	}
	return dst
}

// setColor writes an opaque pixel.
func setColor(img *image.RGBA, x, y int, c tmds.Color) {
	off := y*img.Stride + x*4
	img.Pix[off+0] = c.R
	img.Pix[off+1] = c.G
	img.Pix[off+2] = c.B
	img.Pix[off+3] = 0xFF
}
