package imgprep

import (
	"image"
	"math"
	"sync"
)

// ScaleMode selects how an image is fitted onto a surface.
type ScaleMode int

const (
	// ScaleCover scales the image to fill the surface and centers it,
	// cropping the overflowing dimension.
	ScaleCover ScaleMode = iota
	// ScaleFit scales the image to fit inside the surface and centers it,
	// padding the remaining dimension.
	ScaleFit
)

// Transform maps image pixel coordinates onto a surface of another size.
// The mapping is recomputed lazily after the surface or the image source
// changes.
type Transform struct {
	mu sync.Mutex

	mode                        ScaleMode
	surfaceWidth, surfaceHeight int
	imageWidth, imageHeight     int
	flipped                     bool

	dirty   bool
	mapping Mapping
}

// Mapping is a computed transform. The zero Mapping is the identity on an
// empty surface.
type Mapping struct {
	Scale            float64
	OffsetX, OffsetY float64
	SurfaceWidth     float64
	Flipped          bool
}

// NewTransform returns a Transform for a surface of the given size.
func NewTransform(surfaceWidth, surfaceHeight int, mode ScaleMode) *Transform {
	return &Transform{mode: mode, surfaceWidth: surfaceWidth, surfaceHeight: surfaceHeight, dirty: true}
}

// Resize changes the surface size.
func (t *Transform) Resize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if width != t.surfaceWidth || height != t.surfaceHeight {
		t.surfaceWidth, t.surfaceHeight = width, height
		t.dirty = true
	}
}

// SetImageSourceInfo sets the size of the images whose coordinates will be
// mapped and whether the surface shows them mirrored horizontally.
func (t *Transform) SetImageSourceInfo(width, height int, flipped bool) error {
	if width <= 0 || height <= 0 {
		return newError(TransformError, "image source", ErrInvalidDimensions)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.imageWidth, t.imageHeight, t.flipped = width, height, flipped
	t.dirty = true
	if t.surfaceWidth <= 0 || t.surfaceHeight <= 0 {
		// Computed once the surface has a size.
		return nil
	}
	return t.update()
}

// Dirty reports whether the mapping must be recomputed before use.
func (t *Transform) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// Mapping returns the current mapping, recomputing it first if needed.
func (t *Transform) Mapping() (Mapping, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.update(); err != nil {
		return Mapping{}, err
	}
	return t.mapping, nil
}

func (t *Transform) update() error {
	if !t.dirty {
		return nil
	}
	if t.imageWidth <= 0 || t.imageHeight <= 0 || t.surfaceWidth <= 0 || t.surfaceHeight <= 0 {
		return newError(TransformError, "update", ErrInvalidDimensions)
	}

	w, h := float64(t.surfaceWidth), float64(t.surfaceHeight)
	iw, ih := float64(t.imageWidth), float64(t.imageHeight)
	m := Mapping{SurfaceWidth: w, Flipped: t.flipped}
	switch t.mode {
	case ScaleFit:
		m.Scale = math.Min(w/iw, h/ih)
		m.OffsetX, m.OffsetY = (iw*m.Scale-w)/2, (ih*m.Scale-h)/2
	default:
		viewAspect, imageAspect := w/h, iw/ih
		if viewAspect > imageAspect {
			m.Scale = w / iw
			m.OffsetY = (w/imageAspect - h) / 2
		} else {
			m.Scale = h / ih
			m.OffsetX = (h*imageAspect - w) / 2
		}
	}
	t.mapping, t.dirty = m, false
	return nil
}

// X maps a horizontal image coordinate onto the surface.
func (m Mapping) X(x float64) float64 {
	if m.Flipped {
		return m.SurfaceWidth - (m.Scale*x - m.OffsetX)
	}
	return m.Scale*x - m.OffsetX
}

// Y maps a vertical image coordinate onto the surface.
func (m Mapping) Y(y float64) float64 {
	return m.Scale*y - m.OffsetY
}

// Length scales a distance from image to surface units.
func (m Mapping) Length(v float64) float64 {
	return m.Scale * v
}

// Point maps p onto the surface.
func (m Mapping) Point(p image.Point) (x, y float64) {
	return m.X(float64(p.X)), m.Y(float64(p.Y))
}

// Rect maps r onto the surface. The result is normalized so that mirrored
// rectangles keep left below right.
func (m Mapping) Rect(r image.Rectangle) (left, top, right, bottom float64) {
	left, right = m.X(float64(r.Min.X)), m.X(float64(r.Max.X))
	if left > right {
		left, right = right, left
	}
	return left, m.Y(float64(r.Min.Y)), right, m.Y(float64(r.Max.Y))
}
