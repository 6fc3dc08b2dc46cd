package imgprep

import (
	"context"
	"errors"

	"github.com/sunshineplan/utils/log"
	"golang.org/x/image/font"
)

// Output is the result of processing one image.
type Output struct {
	// Recognized is false when recognition produced no result. The other
	// fields are then empty.
	Recognized bool
	Text       *Text
	// PlainText is the recognized text.
	PlainText string
	// Result is the JSON encoding of Text.
	Result string
	// Coordinates maps block texts to their bounding boxes, as JSON.
	Coordinates string
	// Saved is where the annotated image was persisted, if it was.
	Saved string
}

// Processor runs the whole flow: load upright, preprocess, recognize, draw
// the recognized text over the processed image and persist the result.
type Processor struct {
	Decoder    *Decoder
	Recognizer Recognizer
	// Sink is optional; without it annotated images are never persisted.
	Sink Sink
	// Display is optional.
	Display Surface
	// Face is the label font, see LoadFace. Nil uses a basic bitmap font.
	Face font.Face
	// GroupInBlocks outlines whole blocks instead of lines and words.
	GroupInBlocks bool

	// ReqWidth and ReqHeight bound the decoded size. Zero means no bound.
	ReqWidth, ReqHeight int
}

// Process processes src with cfg. A failed recognition is not an error: it
// yields an Output with Recognized unset.
func (p *Processor) Process(ctx context.Context, src Source, cfg Config) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "source", src, "error", err)
		return nil, err
	}
	if p.Recognizer == nil {
		return nil, errors.New("imgprep: no recognizer")
	}
	decoder := p.Decoder
	if decoder == nil {
		decoder = NewDecoder()
	}

	img, correction, err := decoder.Load(src, p.ReqWidth, p.ReqHeight)
	if err != nil {
		log.Error("Failed to load image", "source", src, "error", err)
		return nil, err
	}
	log.Debug("Loaded image", "source", src, "width", img.Width(), "height", img.Height(), "rotation", correction.Rotation)

	processed, err := Preprocess(img, cfg)
	if err != nil {
		log.Error("Failed to preprocess image", "source", src, "error", err)
		return nil, err
	}
	defer processed.Release()

	text, err := RecognizeAsync(ctx, p.Recognizer, processed.Image(), 0).Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		log.Warn("No recognition result", "source", src, "error", err)
		return &Output{}, nil
	}

	output, err := newOutput(text)
	if err != nil {
		return nil, err
	}

	graphic := NewTextGraphic(text)
	graphic.GroupInBlocks = p.GroupInBlocks
	overlay := new(Overlay)
	overlay.Add(graphic)

	compositor := NewCompositor(overlay, p.Display)
	compositor.Face = p.Face
	if err := compositor.SetImageSourceInfo(processed.Width(), processed.Height(), false); err != nil {
		return nil, err
	}
	rendered, err := compositor.Render(processed.Image())
	if err != nil {
		log.Error("Failed to render overlay", "source", src, "error", err)
		return nil, err
	}
	defer rendered.Release()

	if cfg.Persist && p.Sink != nil {
		if output.Saved, err = p.Sink.Save(ctx, rendered.Image()); err != nil {
			log.Error("Failed to persist image", "source", src, "error", err)
			return nil, err
		}
		log.Info("Saved annotated image", "source", src, "output", output.Saved)
	}
	return output, nil
}

func newOutput(text *Text) (*Output, error) {
	result, err := text.MarshalJSON()
	if err != nil {
		return nil, err
	}
	coordinates, err := text.Coordinates()
	if err != nil {
		return nil, err
	}
	return &Output{
		Recognized:  true,
		Text:        text,
		PlainText:   text.Text,
		Result:      string(result),
		Coordinates: string(coordinates),
	}, nil
}
