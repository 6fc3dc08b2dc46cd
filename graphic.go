package imgprep

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Canvas is a drawing target in surface coordinates.
type Canvas interface {
	StrokeRect(left, top, right, bottom float64, c color.Color, width float64)
	Text(s string, x, y float64, c color.Color)
}

// Surface is a live display the compositor draws on besides its offscreen
// copy.
type Surface interface {
	Canvas
	Size() (width, height int)
}

// Graphic is an item of an Overlay. The set of graphics is fixed to
// TextGraphic and BoxGraphic.
type Graphic interface {
	draw(c Canvas, m Mapping)
}

const strokeWidth = 4

// Colors used for each level of the text hierarchy.
var (
	BlockColor   = colorful.Hsv(0, 0.85, 0.9)
	LineColor    = colorful.Hsv(210, 0.85, 0.9)
	ElementColor = colorful.Hsv(120, 0.8, 0.7)
	LabelColor   = colorful.Hsv(0, 0, 0)
)

// TextGraphic outlines recognized text. Blocks are outlined when
// GroupInBlocks is set, otherwise lines and their elements, labelled with
// the language and confidence of the line.
type TextGraphic struct {
	Text           *Text
	GroupInBlocks  bool
	ShowLanguage   bool
	ShowConfidence bool
}

// NewTextGraphic returns a TextGraphic with line labels enabled.
func NewTextGraphic(text *Text) *TextGraphic {
	return &TextGraphic{Text: text, ShowLanguage: true, ShowConfidence: true}
}

func (g *TextGraphic) draw(c Canvas, m Mapping) {
	if g.Text == nil {
		return
	}
	for _, block := range g.Text.Blocks {
		if g.GroupInBlocks {
			drawBox(c, m, block.Bounds, BlockColor, g.label(block.Language, 0, false))
			continue
		}
		for _, line := range block.Lines {
			drawBox(c, m, line.Bounds, LineColor, g.label(line.Language, line.Confidence, true))
			for _, element := range line.Elements {
				drawBox(c, m, element.Bounds, ElementColor, "")
			}
		}
	}
}

func (g *TextGraphic) label(lang string, confidence float64, hasConfidence bool) string {
	var s string
	if g.ShowLanguage && lang != "" {
		s = "lang:" + lang
	}
	if g.ShowConfidence && hasConfidence {
		if s != "" {
			s += "; "
		}
		s += fmt.Sprintf("conf:%.2f", confidence)
	}
	return s
}

// BoxGraphic outlines a single rectangle with an optional label.
type BoxGraphic struct {
	Bounds image.Rectangle
	Label  string
	Color  color.Color
}

func (g *BoxGraphic) draw(c Canvas, m Mapping) {
	col := g.Color
	if col == nil {
		col = BlockColor
	}
	drawBox(c, m, g.Bounds, col, g.Label)
}

func drawBox(c Canvas, m Mapping, r image.Rectangle, col color.Color, label string) {
	left, top, right, bottom := m.Rect(r)
	c.StrokeRect(left, top, right, bottom, col, strokeWidth)
	if label != "" {
		c.Text(label, left, top-strokeWidth, LabelColor)
	}
}
