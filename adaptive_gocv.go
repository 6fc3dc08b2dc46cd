//go:build gocv

package imgprep

import (
	"gocv.io/x/gocv"
)

func init() {
	adaptiveThreshold = adaptiveThresholdCV
}

func adaptiveThresholdCV(pix []uint8, w, h int, p AdaptiveParams) ([]uint8, error) {
	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	method := gocv.AdaptiveThresholdMean
	if p.Method == AdaptiveGaussian {
		method = gocv.AdaptiveThresholdGaussian
	}
	typ := gocv.ThresholdBinary
	if p.Type == ThresholdBinaryInverted {
		typ = gocv.ThresholdBinaryInv
	}
	gocv.AdaptiveThreshold(src, &dst, float32(p.MaxValue), method, typ, p.BlockSize, float32(p.Offset))
	return dst.ToBytes(), nil
}
