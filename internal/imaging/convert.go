package imaging

import (
	"image"
	"image/color"
)

// RGBSamples returns interleaved 8-bit R,G,B samples of an opaque image.
func RGBSamples(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			out = append(out, row[i], row[i+1], row[i+2])
		}
	}
	return out
}

// CMYKSamples returns interleaved 8-bit C,M,Y,K samples converted with the
// subtractive model: k = 1-max(r,g,b), c = (1-r-k)/(1-k), likewise m and y.
func CMYKSamples(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			c, m, yy, k := color.RGBToCMYK(row[i], row[i+1], row[i+2])
			out = append(out, c, m, yy, k)
		}
	}
	return out
}
