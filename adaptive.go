package imgprep

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// adaptiveThreshold thresholds a packed 8bpp buffer. It is replaced when
// built with OpenCV.
var adaptiveThreshold = adaptiveThresholdGo

// AdaptiveThreshold compares each pixel with the mean or Gaussian-weighted
// mean of its BlockSize neighbourhood minus Offset. The result is 8bpp with
// pixels set to either 0 or MaxValue. Input with more than one channel is
// converted to gray first.
func AdaptiveThreshold(m *Image, p AdaptiveParams) (*Image, error) {
	if _, err := m.pixels("adaptive"); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if m.depth != Depth8 {
		// Binary input is gray already but still needs an 8bpp buffer.
		g := &Image{img: gray(m.Image()), depth: Depth8}
		m = m.replace(g)
	}

	pix, w, h := grayPix(m.Image())
	out, err := adaptiveThreshold(pix, w, h, p)
	if err != nil {
		return nil, newError(StageError, "adaptive", err)
	}
	return m.replace(&Image{img: newGray(out, w, h), depth: Depth8}), nil
}

func adaptiveThresholdGo(pix []uint8, w, h int, p AdaptiveParams) ([]uint8, error) {
	var mean []uint8
	if p.Method == AdaptiveGaussian {
		mean = convolve(pix, w, h, gaussianKernel(p.BlockSize))
	} else {
		mean = boxMean(pix, w, h, p.BlockSize)
	}

	maxValue := clamp(p.MaxValue)
	var delta int
	if p.Type == ThresholdBinary {
		delta = int(math.Ceil(p.Offset))
	} else {
		delta = int(math.Floor(p.Offset))
	}

	out := make([]uint8, len(pix))
	for i, v := range pix {
		above := int(v)-int(mean[i]) > -delta
		if above == (p.Type == ThresholdBinary) {
			out[i] = maxValue
		}
	}
	return out, nil
}

// boxMean averages every pixel over a size by size window, replicating the
// edge pixels.
func boxMean(pix []uint8, w, h, size int) []uint8 {
	r := size / 2
	area := float64(size * size)
	rows := make([]float64, len(pix))
	parallel(0, h, func(ys <-chan int) {
		for y := range ys {
			line := pix[y*w : (y+1)*w]
			var sum float64
			for i := -r; i <= r; i++ {
				sum += float64(line[clampIndex(i, w)])
			}
			for x := 0; x < w; x++ {
				rows[y*w+x] = sum
				sum += float64(line[clampIndex(x+r+1, w)]) - float64(line[clampIndex(x-r, w)])
			}
		}
	})

	out := make([]uint8, len(pix))
	parallel(0, w, func(xs <-chan int) {
		for x := range xs {
			var sum float64
			for j := -r; j <= r; j++ {
				sum += rows[clampIndex(j, h)*w+x]
			}
			for y := 0; y < h; y++ {
				out[y*w+x] = uint8(math.RoundToEven(sum / area))
				sum += rows[clampIndex(y+r+1, h)*w+x] - rows[clampIndex(y-r, h)*w+x]
			}
		}
	})
	return out
}

// gaussianKernel returns the normalized 1D kernel OpenCV uses for a size
// with no explicit sigma.
func gaussianKernel(size int) []float64 {
	switch size {
	case 3:
		return []float64{0.25, 0.5, 0.25}
	case 5:
		return []float64{0.0625, 0.25, 0.375, 0.25, 0.0625}
	case 7:
		return []float64{0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125}
	}
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	kernel := make([]float64, size)
	for i := range kernel {
		d := float64(i) - float64(size-1)/2
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)
	return kernel
}

// convolve applies kernel horizontally then vertically with replicated edges.
func convolve(pix []uint8, w, h int, kernel []float64) []uint8 {
	r := len(kernel) / 2
	rows := make([]float64, len(pix))
	parallel(0, h, func(ys <-chan int) {
		for y := range ys {
			for x := 0; x < w; x++ {
				var sum float64
				for k, v := range kernel {
					sum += v * float64(pix[y*w+clampIndex(x+k-r, w)])
				}
				rows[y*w+x] = sum
			}
		}
	})

	out := make([]uint8, len(pix))
	parallel(0, h, func(ys <-chan int) {
		for y := range ys {
			for x := 0; x < w; x++ {
				var sum float64
				for k, v := range kernel {
					sum += v * rows[clampIndex(y+k-r, h)*w+x]
				}
				out[y*w+x] = uint8(math.RoundToEven(math.Min(math.Max(sum, 0), 255)))
			}
		}
	})
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
