package imgprep

import (
	"image"

	"github.com/disintegration/imaging"
)

// Unsharp mask parameters.
const (
	unsharpHalfWidth = 1
	unsharpFraction  = 0.3
)

// unsharpMask sharpens an interleaved buffer. It is replaced when built
// with the gocv tag.
var unsharpMask = unsharp

// UnsharpMask sharpens edges by adding back a fraction of the difference
// between each pixel and its box-blurred neighbourhood. Gray images are
// processed in place of their single channel, color images per channel.
// Binary images are returned unchanged.
func UnsharpMask(m *Image) (*Image, error) {
	img, err := m.pixels("unsharp")
	if err != nil {
		return nil, err
	}

	switch m.depth {
	case Depth1:
		return m, nil
	case Depth8:
		pix, w, h := grayPix(img)
		return m.replace(&Image{img: newGray(unsharpMask(pix, w, h, 1, 1), w, h), depth: Depth8}), nil
	}

	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, unsharpMask(src.Pix, w, h, 4, 3))
	return m.replace(NewImage(dst)), nil
}

// unsharp sharpens the first channels of every pixel of an interleaved
// buffer with stride w*bpp. Remaining channels are copied.
func unsharp(pix []uint8, w, h, bpp, channels int) []uint8 {
	out := make([]uint8, len(pix))
	copy(out, pix)
	stride := w * bpp
	parallel(0, h, func(ys <-chan int) {
		for y := range ys {
			y0, y1 := max(0, y-unsharpHalfWidth), min(h-1, y+unsharpHalfWidth)
			for x := 0; x < w; x++ {
				x0, x1 := max(0, x-unsharpHalfWidth), min(w-1, x+unsharpHalfWidth)
				n := float64((y1 - y0 + 1) * (x1 - x0 + 1))
				for c := range channels {
					var sum float64
					for j := y0; j <= y1; j++ {
						for i := x0; i <= x1; i++ {
							sum += float64(pix[j*stride+i*bpp+c])
						}
					}
					v := float64(pix[y*stride+x*bpp+c])
					out[y*stride+x*bpp+c] = clamp(v + unsharpFraction*(v-sum/n))
				}
			}
		}
	})
	return out
}
