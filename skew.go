package imgprep

import (
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"
)

// Skew search parameters, in degrees.
const (
	skewSweepRange = 7.0
	skewSweepStep  = 0.1
	skewFineStep   = 0.01
	skewMinAngle   = 0.05

	skewMaxPoints = 200000
	skewMinPoints = 50
)

// DetectSkew returns the angle in degrees by which the text lines of m are
// rotated counter-clockwise. It returns 0 when there is too little
// foreground to decide. m is not consumed.
func DetectSkew(m *Image) (float64, error) {
	img, err := m.pixels("skew")
	if err != nil {
		return 0, err
	}

	pix, w, h := grayPix(img)
	var count int
	for _, v := range pix {
		if v < 128 {
			count++
		}
	}
	if count < skewMinPoints {
		return 0, nil
	}
	step := max(1, count/skewMaxPoints)
	xs, ys := make([]float64, 0, count/step+1), make([]float64, 0, count/step+1)
	var n int
	for i, v := range pix {
		if v >= 128 {
			continue
		}
		if n%step == 0 {
			xs, ys = append(xs, float64(i%w)), append(ys, float64(i/w))
		}
		n++
	}

	margin := int(math.Ceil(float64(w)*math.Tan((skewSweepRange+1)*math.Pi/180))) + 1
	bins := make([]float64, h+2*margin)
	diff := make([]float64, len(bins)-1)
	score := func(angle float64) float64 {
		clear(bins)
		tan := math.Tan(angle * math.Pi / 180)
		for i, x := range xs {
			bins[int(math.Round(ys[i]+x*tan))+margin]++
		}
		floats.SubTo(diff, bins[1:], bins[:len(bins)-1])
		return floats.Dot(diff, diff)
	}

	best := sweep(-skewSweepRange, skewSweepRange, skewSweepStep, score)
	return sweep(best-skewSweepStep, best+skewSweepStep, skewFineStep, score), nil
}

// sweep returns the angle in [from, to] with the highest score. Runs of
// equal best scores resolve to their middle.
func sweep(from, to, step float64, score func(float64) float64) float64 {
	angles := floats.Span(make([]float64, int(math.Round((to-from)/step))+1), from, to)
	scores := make([]float64, len(angles))
	for i, a := range angles {
		scores[i] = score(a)
	}
	first := floats.MaxIdx(scores)
	last := first
	for last+1 < len(scores) && scores[last+1] == scores[first] {
		last++
	}
	return (angles[first] + angles[last]) / 2
}

// Deskew rotates m so that its text lines are horizontal, keeping its size
// and depth. Uncovered corners are filled with white. Images that are not
// measurably skewed are returned unchanged.
func Deskew(m *Image) (*Image, error) {
	angle, err := DetectSkew(m)
	if err != nil {
		return nil, err
	}
	if math.Abs(angle) < skewMinAngle {
		return m, nil
	}

	img := m.Image()
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	rotated := imaging.CropCenter(imaging.Rotate(img, -angle, color.White), w, h)
	switch m.depth {
	case Depth1:
		pix, w, h := grayPix(rotated)
		for i, v := range pix {
			if v < 128 {
				pix[i] = 0
			} else {
				pix[i] = 255
			}
		}
		return m.replace(newBinary(newGray(pix, w, h))), nil
	case Depth8:
		return m.replace(&Image{img: gray(rotated), depth: Depth8}), nil
	default:
		return m.replace(NewImage(rotated)), nil
	}
}
