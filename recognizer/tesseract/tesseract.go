// Package tesseract recognizes text with the Tesseract engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/sunshineplan/imgprep"
)

// Recognizer implements imgprep.Recognizer. A new Tesseract client is used
// for every call, so a Recognizer can be shared between goroutines.
type Recognizer struct {
	Languages []string

	clientFactory func() *gosseract.Client
}

// New returns a Recognizer for the given languages, "eng" if none.
func New(languages ...string) *Recognizer {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Recognizer{Languages: languages, clientFactory: gosseract.NewClient}
}

// Recognize implements imgprep.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, rotation int) (*imgprep.Text, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	upright := img
	switch rotation {
	case 90:
		upright = imaging.Rotate270(img)
	case 180:
		upright = imaging.Rotate180(img)
	case 270, -90:
		upright = imaging.Rotate90(img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, upright); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	c := r.clientFactory()
	defer c.Close()
	if err := c.SetLanguage(r.Languages...); err != nil {
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	b := img.Bounds()
	var levels [4][]imgprep.Box
	for i, level := range []gosseract.PageIteratorLevel{
		gosseract.RIL_BLOCK,
		gosseract.RIL_TEXTLINE,
		gosseract.RIL_WORD,
		gosseract.RIL_SYMBOL,
	} {
		boxes, err := c.GetBoundingBoxes(level)
		if err != nil {
			return nil, fmt.Errorf("OCR failed: %w", err)
		}
		for _, box := range boxes {
			levels[i] = append(levels[i], imgprep.Box{
				Text:       box.Word,
				Bounds:     imgprep.RotateRect(box.Box, rotation, b.Dx(), b.Dy()),
				Confidence: box.Confidence / 100,
			})
		}
	}
	if len(levels[0]) == 0 {
		return nil, imgprep.ErrNoResult
	}
	return imgprep.BuildText(levels[0], levels[1], levels[2], levels[3], r.Languages[0]), nil
}
