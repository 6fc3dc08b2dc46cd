package imgprep

// Otsu threshold parameters.
const (
	otsuTileWidth  = 32
	otsuTileHeight = 32
	otsuSmoothX    = 2
	otsuSmoothY    = 2
)

// OtsuThreshold binarizes an image with an Otsu threshold computed per tile
// and smoothed across neighbouring tiles. Input that is not 8bpp is
// converted first. Pixels darker than their threshold become black.
func OtsuThreshold(m *Image) (*Image, error) {
	if _, err := m.pixels("otsu"); err != nil {
		return nil, err
	}
	g, err := ToGray(m)
	if err != nil {
		return nil, err
	}

	pix, w, h := grayPix(g.Image())
	var global [256]int
	for _, v := range pix {
		global[v]++
	}
	fallback := float64(otsu(global))

	nx, ny := ceilDiv(w, otsuTileWidth), ceilDiv(h, otsuTileHeight)
	thresholds := make([]float64, nx*ny)
	parallel(0, ny, func(tys <-chan int) {
		for ty := range tys {
			for tx := range nx {
				var hist [256]int
				for y := ty * otsuTileHeight; y < min((ty+1)*otsuTileHeight, h); y++ {
					for _, v := range pix[y*w+tx*otsuTileWidth : y*w+min((tx+1)*otsuTileWidth, w)] {
						hist[v]++
					}
				}
				// Flat tiles have no split of their own.
				if spread(hist) < contrastMinDiff {
					thresholds[ty*nx+tx] = fallback
				} else {
					thresholds[ty*nx+tx] = float64(otsu(hist))
				}
			}
		}
	})
	thresholds = smoothMap(thresholds, nx, ny, otsuSmoothX, otsuSmoothY)

	out := make([]uint8, len(pix))
	parallel(0, h, func(ys <-chan int) {
		for y := range ys {
			for x := 0; x < w; x++ {
				if float64(pix[y*w+x]) >= thresholds[(y/otsuTileHeight)*nx+x/otsuTileWidth] {
					out[y*w+x] = 255
				}
			}
		}
	})
	return g.replace(newBinary(newGray(out, w, h))), nil
}

// otsu returns the threshold maximizing the between-class variance of hist.
// Values below the threshold belong to the dark class.
func otsu(hist [256]int) int {
	var total, sum float64
	for i, n := range hist {
		total += float64(n)
		sum += float64(i * n)
	}

	var weightB, sumB, best float64
	threshold := 0
	for t := range 256 {
		weightB += float64(hist[t])
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB, meanF := sumB/weightB, (sum-sumB)/weightF
		if between := weightB * weightF * (meanB - meanF) * (meanB - meanF); between > best {
			best, threshold = between, t
		}
	}
	// Levels at or below threshold are dark.
	return threshold + 1
}

func spread(hist [256]int) int {
	lo, hi := 0, 255
	for lo < 255 && hist[lo] == 0 {
		lo++
	}
	for hi > 0 && hist[hi] == 0 {
		hi--
	}
	return hi - lo
}
