package imgprep

import (
	"encoding/json"
	"image"
	"strings"
)

// Text is the structured result of text recognition. Coordinates are in the
// pixel space of the recognized image.
type Text struct {
	Text   string
	Blocks []TextBlock
}

// TextBlock is a paragraph-like group of lines.
type TextBlock struct {
	Text         string
	Bounds       image.Rectangle
	CornerPoints []image.Point
	Language     string
	Lines        []Line
}

// Line is a line of text.
type Line struct {
	Text         string
	Bounds       image.Rectangle
	CornerPoints []image.Point
	Language     string
	Confidence   float64
	Angle        float64
	Elements     []Element
}

// Element is a word.
type Element struct {
	Text         string
	Bounds       image.Rectangle
	CornerPoints []image.Point
	Language     string
	Confidence   float64
	Angle        float64
	Symbols      []Symbol
}

// Symbol is a single character.
type Symbol struct {
	Text         string
	Bounds       image.Rectangle
	CornerPoints []image.Point
	Language     string
	Confidence   float64
	Angle        float64
}

// Corners returns the corner points of r, clockwise from the top left.
func Corners(r image.Rectangle) []image.Point {
	return []image.Point{r.Min, {r.Max.X, r.Min.Y}, r.Max, {r.Min.X, r.Max.Y}}
}

// JoinLines joins text pieces with new lines.
func JoinLines(s ...string) string {
	return strings.Join(s, "\n")
}

type jsonSymbol struct {
	Text         string  `json:"text"`
	BoundingBox  []int   `json:"boundingBox"`
	CornerPoints []int   `json:"cornerPoints"`
	Language     string  `json:"recognizedLanguage"`
	Confidence   float64 `json:"confidence"`
	Angle        float64 `json:"angle"`
}

type jsonElement struct {
	jsonSymbol
	Symbols []jsonSymbol `json:"symbols"`
}

type jsonLine struct {
	jsonSymbol
	Elements []jsonElement `json:"elements"`
}

type jsonBlock struct {
	Text         string     `json:"text"`
	BoundingBox  []int      `json:"boundingBox"`
	CornerPoints []int      `json:"cornerPoints"`
	Language     string     `json:"recognizedLanguage"`
	Lines        []jsonLine `json:"lines"`
}

type jsonText struct {
	Text   string      `json:"text"`
	Blocks []jsonBlock `json:"textBlocks"`
}

func box(r image.Rectangle) []int {
	return []int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}

func flatten(points []image.Point) []int {
	s := make([]int, 0, 2*len(points))
	for _, p := range points {
		s = append(s, p.X, p.Y)
	}
	return s
}

// MarshalJSON encodes the full hierarchy with bounding boxes as
// [left, top, right, bottom] and corner points as [x1, y1, x2, y2, ...].
func (t *Text) MarshalJSON() ([]byte, error) {
	out := jsonText{Text: t.Text, Blocks: make([]jsonBlock, 0, len(t.Blocks))}
	for _, b := range t.Blocks {
		block := jsonBlock{
			Text:         b.Text,
			BoundingBox:  box(b.Bounds),
			CornerPoints: flatten(b.CornerPoints),
			Language:     b.Language,
			Lines:        make([]jsonLine, 0, len(b.Lines)),
		}
		for _, l := range b.Lines {
			line := jsonLine{
				jsonSymbol: jsonSymbol{l.Text, box(l.Bounds), flatten(l.CornerPoints), l.Language, l.Confidence, l.Angle},
				Elements:   make([]jsonElement, 0, len(l.Elements)),
			}
			for _, e := range l.Elements {
				element := jsonElement{
					jsonSymbol: jsonSymbol{e.Text, box(e.Bounds), flatten(e.CornerPoints), e.Language, e.Confidence, e.Angle},
					Symbols:    make([]jsonSymbol, 0, len(e.Symbols)),
				}
				for _, s := range e.Symbols {
					element.Symbols = append(element.Symbols,
						jsonSymbol{s.Text, box(s.Bounds), flatten(s.CornerPoints), s.Language, s.Confidence, s.Angle})
				}
				line.Elements = append(line.Elements, element)
			}
			block.Lines = append(block.Lines, line)
		}
		out.Blocks = append(out.Blocks, block)
	}
	return json.Marshal(out)
}

// Coordinates encodes the bounding box of each block keyed by the block
// text, in block order: [{"text":[left,top,right,bottom]}, ...]. Repeated
// texts are kept.
func (t *Text) Coordinates() ([]byte, error) {
	coords := make([]map[string][]int, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		coords = append(coords, map[string][]int{b.Text: box(b.Bounds)})
	}
	return json.Marshal(coords)
}
