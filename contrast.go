package imgprep

// Contrast normalization parameters.
const (
	contrastTileWidth  = 10
	contrastTileHeight = 15
	contrastMinDiff    = 40
	contrastSmoothX    = 2
	contrastSmoothY    = 1
)

// ContrastNorm stretches the gray levels of each tile between the local
// minimum and maximum. Input that is not 8bpp is converted first.
func ContrastNorm(m *Image) (*Image, error) {
	if _, err := m.pixels("contrast"); err != nil {
		return nil, err
	}
	g, err := ToGray(m)
	if err != nil {
		return nil, err
	}

	pix, w, h := grayPix(g.Image())
	nx, ny := ceilDiv(w, contrastTileWidth), ceilDiv(h, contrastTileHeight)
	minMap, maxMap, ok := tileMinMax(pix, w, h, nx, ny)
	out := make([]uint8, len(pix))
	if !ok {
		// Nothing has enough contrast to stretch.
		copy(out, pix)
		return g.replace(&Image{img: newGray(out, w, h), depth: Depth8}), nil
	}
	minMap = smoothMap(minMap, nx, ny, contrastSmoothX, contrastSmoothY)
	maxMap = smoothMap(maxMap, nx, ny, contrastSmoothX, contrastSmoothY)

	parallel(0, h, func(ys <-chan int) {
		for y := range ys {
			ty := y / contrastTileHeight
			for x := 0; x < w; x++ {
				i := ty*nx + x/contrastTileWidth
				lo, hi := minMap[i], maxMap[i]
				v := float64(pix[y*w+x])
				if hi > lo {
					v = 255 * (v - lo) / (hi - lo)
				}
				out[y*w+x] = clamp(v)
			}
		}
	})
	return g.replace(&Image{img: newGray(out, w, h), depth: Depth8}), nil
}

// tileMinMax returns the per-tile minimum and maximum, with tiles of too
// little contrast filled from their nearest valid neighbour. ok is false when
// no tile is valid.
func tileMinMax(pix []uint8, w, h, nx, ny int) (minMap, maxMap []float64, ok bool) {
	minMap, maxMap = make([]float64, nx*ny), make([]float64, nx*ny)
	valid := make([]bool, nx*ny)
	for ty := range ny {
		for tx := range nx {
			lo, hi := uint8(255), uint8(0)
			for y := ty * contrastTileHeight; y < min((ty+1)*contrastTileHeight, h); y++ {
				for _, v := range pix[y*w+tx*contrastTileWidth : y*w+min((tx+1)*contrastTileWidth, w)] {
					lo, hi = min(lo, v), max(hi, v)
				}
			}
			i := ty*nx + tx
			minMap[i], maxMap[i] = float64(lo), float64(hi)
			valid[i] = int(hi)-int(lo) >= contrastMinDiff
			ok = ok || valid[i]
		}
	}
	if ok {
		fillHoles(minMap, valid, nx, ny)
		fillHoles(maxMap, valid, nx, ny)
	}
	return
}

// fillHoles replaces invalid entries of a nx by ny map, first from the
// nearest valid entry in the same row and then, for rows without any, from
// the nearest row that had one.
func fillHoles(m []float64, valid []bool, nx, ny int) {
	rowValid := make([]bool, ny)
	for y := range ny {
		row, ok := m[y*nx:(y+1)*nx], valid[y*nx:(y+1)*nx]
		nearest := make([]int, nx)
		last := -1
		for x := range nx {
			if ok[x] {
				last = x
			}
			nearest[x] = last
		}
		last = -1
		for x := nx - 1; x >= 0; x-- {
			if ok[x] {
				last = x
			}
			if last >= 0 && (nearest[x] < 0 || last-x < x-nearest[x]) {
				nearest[x] = last
			}
		}
		if nearest[0] < 0 {
			continue
		}
		rowValid[y] = true
		filled := make([]float64, nx)
		for x := range nx {
			filled[x] = row[nearest[x]]
		}
		copy(row, filled)
	}

	for y := range ny {
		if rowValid[y] {
			continue
		}
		src := -1
		for d := 1; src < 0; d++ {
			if y-d >= 0 && rowValid[y-d] {
				src = y - d
			} else if y+d < ny && rowValid[y+d] {
				src = y + d
			}
		}
		copy(m[y*nx:(y+1)*nx], m[src*nx:(src+1)*nx])
	}
}

// smoothMap averages each entry over a (2sx+1) by (2sy+1) window clipped to
// the map.
func smoothMap(m []float64, nx, ny, sx, sy int) []float64 {
	out := make([]float64, len(m))
	for y := range ny {
		for x := range nx {
			var sum float64
			var n int
			for j := max(0, y-sy); j <= min(ny-1, y+sy); j++ {
				for i := max(0, x-sx); i <= min(nx-1, x+sx); i++ {
					sum += m[j*nx+i]
					n++
				}
			}
			out[y*nx+x] = sum / float64(n)
		}
	}
	return out
}
