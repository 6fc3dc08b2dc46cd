package imgprep

import (
	"image"
	"image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Depth is the number of bits per pixel of an Image.
type Depth int

// Supported depths.
const (
	Depth1  Depth = 1
	Depth8  Depth = 8
	Depth24 Depth = 24
	Depth32 Depth = 32
)

// Image is a decoded pixel buffer with a single owner.
//
// Every processing stage takes ownership of the Image it is given. A stage
// that produces a new buffer releases its input; a stage that is skipped
// hands back the same Image.
type Image struct {
	mu    sync.Mutex
	img   image.Image
	depth Depth
}

// NewImage wraps img. *image.Gray is 8bpp, *image.YCbCr 24bpp and
// everything else 32bpp.
func NewImage(img image.Image) *Image {
	return &Image{img: img, depth: depthOf(img)}
}

func newBinary(img *image.Gray) *Image {
	return &Image{img: img, depth: Depth1}
}

func depthOf(img image.Image) Depth {
	switch img.(type) {
	case *image.Gray:
		return Depth8
	case *image.YCbCr:
		return Depth24
	default:
		return Depth32
	}
}

// Image returns the underlying pixels, or nil once released.
func (m *Image) Image() image.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.img
}

// Depth returns the bit depth of the image.
func (m *Image) Depth() Depth { return m.depth }

// Bounds returns the bounds of the image, empty once released.
func (m *Image) Bounds() image.Rectangle {
	if img := m.Image(); img != nil {
		return img.Bounds()
	}
	return image.Rectangle{}
}

// Width returns the width in pixels.
func (m *Image) Width() int { return m.Bounds().Dx() }

// Height returns the height in pixels.
func (m *Image) Height() int { return m.Bounds().Dy() }

// Release drops the pixel buffer. It is safe to call more than once.
func (m *Image) Release() {
	m.mu.Lock()
	m.img = nil
	m.mu.Unlock()
}

// Released reports whether Release has been called.
func (m *Image) Released() bool { return m.Image() == nil }

// replace releases m if next is a different image and returns next.
func (m *Image) replace(next *Image) *Image {
	if next != m {
		m.Release()
	}
	return next
}

// pixels returns the image for a stage, failing on released or empty input.
func (m *Image) pixels(op string) (image.Image, error) {
	img := m.Image()
	if img == nil {
		return nil, newError(StageError, op, ErrReleased)
	}
	if img.Bounds().Empty() {
		return nil, newError(StageError, op, ErrEmptyImage)
	}
	return img, nil
}

// ToGray converts an image to 8bpp grayscale. 8bpp input is returned as is.
func ToGray(m *Image) (*Image, error) {
	img, err := m.pixels("grayscale")
	if err != nil {
		return nil, err
	}
	if m.depth == Depth8 {
		return m, nil
	}
	return m.replace(&Image{img: gray(img), depth: Depth8}), nil
}

func gray(img image.Image) *image.Gray {
	r := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < r.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+r.Dx()], src.Pix[src.PixOffset(r.Min.X, r.Min.Y+y):])
		}
		return dst
	}
	xdraw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// grayPix returns a tightly packed copy of an 8bpp view of img.
func grayPix(img image.Image) (pix []uint8, w, h int) {
	g := gray(img)
	return g.Pix, g.Rect.Dx(), g.Rect.Dy()
}

func newGray(pix []uint8, w, h int) *image.Gray {
	return &image.Gray{Pix: pix, Stride: w, Rect: image.Rect(0, 0, w, h)}
}
