package imgprep

import (
	"image"
	"image/color"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/sunshineplan/utils/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Compositor draws an Overlay onto a live display and onto an offscreen
// copy of the image the overlay describes.
type Compositor struct {
	Overlay *Overlay
	// Display is optional.
	Display Surface
	// Face is the label font. Nil uses basicfont.Face7x13.
	Face font.Face

	display *Transform
}

// NewCompositor returns a Compositor for overlay. display may be nil.
func NewCompositor(overlay *Overlay, display Surface) *Compositor {
	return &Compositor{Overlay: overlay, Display: display}
}

func (c *Compositor) transform() *Transform {
	if c.Display == nil {
		return nil
	}
	if c.display == nil {
		w, h := c.Display.Size()
		c.display = NewTransform(w, h, ScaleCover)
	}
	return c.display
}

// Resize tells the compositor that the display changed size.
func (c *Compositor) Resize(width, height int) {
	if t := c.transform(); t != nil {
		t.Resize(width, height)
	}
}

// SetImageSourceInfo sets the size of the image the overlay coordinates
// refer to and whether it is shown mirrored on the display. The offscreen
// copy is never mirrored.
func (c *Compositor) SetImageSourceInfo(width, height int, flipped bool) error {
	if width <= 0 || height <= 0 {
		return newError(TransformError, "image source", ErrInvalidDimensions)
	}
	if t := c.transform(); t != nil {
		return t.SetImageSourceInfo(width, height, flipped)
	}
	return nil
}

// Render draws every graphic of the overlay onto the display, if any, and
// onto a copy of base, and returns the copy. The caller owns the result.
func (c *Compositor) Render(base image.Image) (*Image, error) {
	if base == nil || base.Bounds().Empty() {
		return nil, newError(TransformError, "render", ErrEmptyImage)
	}
	b := base.Bounds()
	offscreen := NewTransform(b.Dx(), b.Dy(), ScaleCover)
	if err := offscreen.SetImageSourceInfo(b.Dx(), b.Dy(), false); err != nil {
		return nil, err
	}
	om, err := offscreen.Mapping()
	if err != nil {
		return nil, err
	}

	if c.Overlay == nil {
		c.Overlay = new(Overlay)
	}

	dc := gg.NewContextForImage(base)
	face := c.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	dc.SetFontFace(face)
	canvas := &ggCanvas{dc}

	if err := c.Overlay.Render(func(graphics []Graphic) error {
		display := c.Display
		var dm Mapping
		if t := c.transform(); t != nil {
			var err error
			if dm, err = t.Mapping(); err != nil {
				// Not laid out yet, or no image source set.
				log.Debug("Skip display", "error", err)
				display = nil
			}
		}
		for _, g := range graphics {
			if display != nil {
				g.draw(display, dm)
			}
			g.draw(canvas, om)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return NewImage(dc.Image()), nil
}

// ggCanvas draws on a gg context.
type ggCanvas struct {
	dc *gg.Context
}

func (c *ggCanvas) StrokeRect(left, top, right, bottom float64, col color.Color, width float64) {
	c.dc.SetColor(col)
	c.dc.SetLineWidth(width)
	c.dc.DrawRectangle(left, top, right-left, bottom-top)
	c.dc.Stroke()
}

func (c *ggCanvas) Text(s string, x, y float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawString(s, x, y)
}

// LoadFace loads a TrueType font for labels.
func LoadFace(path string, size float64) (font.Face, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := truetype.Parse(b)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: size}), nil
}
