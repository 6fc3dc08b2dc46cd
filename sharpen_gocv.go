//go:build gocv

package imgprep

import (
	"image"

	"github.com/sunshineplan/utils/log"
	"gocv.io/x/gocv"
)

func init() {
	unsharpMask = unsharpCV
}

func unsharpCV(pix []uint8, w, h, bpp, channels int) []uint8 {
	typ := gocv.MatTypeCV8UC1
	if bpp == 4 {
		typ = gocv.MatTypeCV8UC4
	}
	src, err := gocv.NewMatFromBytes(h, w, typ, pix)
	if err != nil {
		log.Debug("Fall back to unsharp", "error", err)
		return unsharp(pix, w, h, bpp, channels)
	}
	defer src.Close()

	blur := gocv.NewMat()
	defer blur.Close()
	gocv.Blur(src, &blur, image.Pt(2*unsharpHalfWidth+1, 2*unsharpHalfWidth+1))

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AddWeighted(src, 1+unsharpFraction, blur, -unsharpFraction, 0, &dst)

	out := dst.ToBytes()
	for i := 0; i < len(pix); i += bpp {
		copy(out[i+channels:i+bpp], pix[i+channels:i+bpp])
	}
	return out
}
