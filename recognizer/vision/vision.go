// Package vision recognizes text with Google Cloud Vision document text
// detection.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/cenkalti/backoff/v4"
	"github.com/disintegration/imaging"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/sunshineplan/imgprep"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client is the part of vision.ImageAnnotatorClient used here.
type Client interface {
	DetectDocumentText(ctx context.Context, image *visionpb.Image, imageContext *visionpb.ImageContext, opts ...gax.CallOption) (*visionpb.TextAnnotation, error)
}

// Recognizer implements imgprep.Recognizer.
type Recognizer struct {
	Client Client
	// LanguageHints are passed to the service as is.
	LanguageHints []string
	// Retries is the number of retries of transient failures.
	Retries uint64
	// Backoff is the delay between retries.
	Backoff time.Duration
}

// New returns a Recognizer retrying transient failures four times.
func New(client Client, languageHints ...string) *Recognizer {
	return &Recognizer{Client: client, LanguageHints: languageHints, Retries: 4, Backoff: time.Second}
}

// Recognize implements imgprep.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image, rotation int) (*imgprep.Text, error) {
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

	var imageContext *visionpb.ImageContext
	if len(r.LanguageHints) > 0 {
		imageContext = &visionpb.ImageContext{LanguageHints: r.LanguageHints}
	}
	annotation, err := backoff.RetryWithData(func() (*visionpb.TextAnnotation, error) {
		annotation, err := r.Client.DetectDocumentText(ctx, &visionpb.Image{Content: buf.Bytes()}, imageContext)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return annotation, err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(r.Backoff), r.Retries), ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to detect document text: %w", err)
	}
	if annotation == nil || len(annotation.GetPages()) == 0 {
		return nil, imgprep.ErrNoResult
	}

	b := img.Bounds()
	return convert(annotation, func(poly *visionpb.BoundingPoly) image.Rectangle {
		return imgprep.RotateRect(bounds(poly), rotation, b.Dx(), b.Dy())
	}), nil
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
		return true
	}
	return false
}

func convert(annotation *visionpb.TextAnnotation, rect func(*visionpb.BoundingPoly) image.Rectangle) *imgprep.Text {
	text := &imgprep.Text{Text: strings.TrimSpace(annotation.GetText())}
	for _, page := range annotation.GetPages() {
		for _, block := range page.GetBlocks() {
			tb := imgprep.TextBlock{
				Bounds:   rect(block.GetBoundingBox()),
				Language: language(block.GetProperty()),
			}
			tb.CornerPoints = imgprep.Corners(tb.Bounds)

			var lines []string
			for _, paragraph := range block.GetParagraphs() {
				line := imgprep.Line{
					Bounds:     rect(paragraph.GetBoundingBox()),
					Language:   language(paragraph.GetProperty()),
					Confidence: float64(paragraph.GetConfidence()),
				}
				line.CornerPoints = imgprep.Corners(line.Bounds)

				var words []string
				for _, word := range paragraph.GetWords() {
					element := imgprep.Element{
						Bounds:     rect(word.GetBoundingBox()),
						Language:   language(word.GetProperty()),
						Confidence: float64(word.GetConfidence()),
					}
					element.CornerPoints = imgprep.Corners(element.Bounds)

					var sb strings.Builder
					for _, symbol := range word.GetSymbols() {
						sb.WriteString(symbol.GetText())
						r := rect(symbol.GetBoundingBox())
						element.Symbols = append(element.Symbols, imgprep.Symbol{
							Text:         symbol.GetText(),
							Bounds:       r,
							CornerPoints: imgprep.Corners(r),
							Language:     language(symbol.GetProperty()),
							Confidence:   float64(symbol.GetConfidence()),
						})
					}
					element.Text = sb.String()
					words = append(words, element.Text)
					line.Elements = append(line.Elements, element)
				}
				line.Text = strings.Join(words, " ")
				lines = append(lines, line.Text)
				tb.Lines = append(tb.Lines, line)
			}
			tb.Text = imgprep.JoinLines(lines...)
			text.Blocks = append(text.Blocks, tb)
		}
	}
	return text
}

func bounds(poly *visionpb.BoundingPoly) image.Rectangle {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return image.Rectangle{}
	}
	r := image.Rect(int(vertices[0].GetX()), int(vertices[0].GetY()), int(vertices[0].GetX()), int(vertices[0].GetY()))
	for _, v := range vertices[1:] {
		x, y := int(v.GetX()), int(v.GetY())
		r.Min.X, r.Min.Y = min(r.Min.X, x), min(r.Min.Y, y)
		r.Max.X, r.Max.Y = max(r.Max.X, x), max(r.Max.Y, y)
	}
	return r
}

func language(property *visionpb.TextAnnotation_TextProperty) string {
	if langs := property.GetDetectedLanguages(); len(langs) > 0 {
		return langs[0].GetLanguageCode()
	}
	return ""
}
