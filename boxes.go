package imgprep

import (
	"image"
	"strings"
)

// Box is a flat recognition result at one level of the text hierarchy.
type Box struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64
}

// BuildText nests flat boxes into a Text. Each box belongs to the first box
// of the level above that contains its center; boxes without a parent are
// dropped. lang is recorded on every level.
func BuildText(blocks, lines, words, symbols []Box, lang string) *Text {
	text := new(Text)
	lineParent := parents(lines, blocks)
	wordParent := parents(words, lines)
	symbolParent := parents(symbols, words)

	lineIndex := make([][2]int, len(lines))
	wordIndex := make([][3]int, len(words))
	for _, b := range blocks {
		text.Blocks = append(text.Blocks, TextBlock{
			Text:         strings.TrimSpace(b.Text),
			Bounds:       b.Bounds,
			CornerPoints: Corners(b.Bounds),
			Language:     lang,
		})
	}
	for i, l := range lines {
		p := lineParent[i]
		if p < 0 {
			continue
		}
		block := &text.Blocks[p]
		lineIndex[i] = [2]int{p, len(block.Lines)}
		block.Lines = append(block.Lines, Line{
			Text:         strings.TrimSpace(l.Text),
			Bounds:       l.Bounds,
			CornerPoints: Corners(l.Bounds),
			Language:     lang,
			Confidence:   l.Confidence,
		})
	}
	for i, w := range words {
		p := wordParent[i]
		if p < 0 || lineParent[p] < 0 {
			wordIndex[i] = [3]int{-1}
			continue
		}
		li := lineIndex[p]
		line := &text.Blocks[li[0]].Lines[li[1]]
		wordIndex[i] = [3]int{li[0], li[1], len(line.Elements)}
		line.Elements = append(line.Elements, Element{
			Text:         strings.TrimSpace(w.Text),
			Bounds:       w.Bounds,
			CornerPoints: Corners(w.Bounds),
			Language:     lang,
			Confidence:   w.Confidence,
		})
	}
	for i, s := range symbols {
		p := symbolParent[i]
		if p < 0 || wordIndex[p][0] < 0 {
			continue
		}
		wi := wordIndex[p]
		element := &text.Blocks[wi[0]].Lines[wi[1]].Elements[wi[2]]
		element.Symbols = append(element.Symbols, Symbol{
			Text:         strings.TrimSpace(s.Text),
			Bounds:       s.Bounds,
			CornerPoints: Corners(s.Bounds),
			Language:     lang,
			Confidence:   s.Confidence,
		})
	}

	texts := make([]string, len(text.Blocks))
	for i, b := range text.Blocks {
		texts[i] = b.Text
	}
	text.Text = JoinLines(texts...)
	return text
}

func parents(children, candidates []Box) []int {
	index := make([]int, len(children))
	for i, c := range children {
		index[i] = -1
		center := image.Pt((c.Bounds.Min.X+c.Bounds.Max.X)/2, (c.Bounds.Min.Y+c.Bounds.Max.Y)/2)
		for j, p := range candidates {
			if center.In(p.Bounds) {
				index[i] = j
				break
			}
		}
	}
	return index
}
