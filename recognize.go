package imgprep

import (
	"context"
	"fmt"
	"image"
)

// Recognizer finds text in an image. rotation is the clockwise angle in
// degrees by which img must be turned to be upright. Coordinates in the
// result refer to img as given.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, rotation int) (*Text, error)
}

// RecognizerFunc adapts a function to a Recognizer.
type RecognizerFunc func(ctx context.Context, img image.Image, rotation int) (*Text, error)

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image, rotation int) (*Text, error) {
	return f(ctx, img, rotation)
}

// Future is the result of an asynchronous recognition. It completes once.
type Future struct {
	done chan struct{}
	text *Text
	err  error
}

// RecognizeAsync runs r on its own goroutine.
func RecognizeAsync(ctx context.Context, r Recognizer, img image.Image, rotation int) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if p := recover(); p != nil {
				f.text, f.err = nil, newError(RecognitionError, "recognize", fmt.Errorf("panic: %v", p))
			}
		}()
		f.text, f.err = r.Recognize(ctx, img, rotation)
		if f.err == nil && f.text == nil {
			f.err = ErrNoResult
		}
		if f.err != nil && !IsKind(f.err, RecognitionError) {
			f.err = newError(RecognitionError, "recognize", f.err)
		}
	}()
	return f
}

// Done is closed when the recognition has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the recognition finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Text, error) {
	select {
	case <-f.done:
		return f.text, f.err
	case <-ctx.Done():
		return nil, newError(RecognitionError, "wait", ctx.Err())
	}
}

// RotateRect maps r from an image rotated clockwise by degrees back to the
// unrotated image of size width x height. Only multiples of 90 are
// supported; other angles return r unchanged.
func RotateRect(r image.Rectangle, degrees, width, height int) image.Rectangle {
	switch ((degrees%360)+360) % 360 {
	case 90:
		// Rotated frame is height x width; (x', y') came from (y', height-x').
		return image.Rect(r.Min.Y, height-r.Max.X, r.Max.Y, height-r.Min.X)
	case 180:
		return image.Rect(width-r.Max.X, height-r.Max.Y, width-r.Min.X, height-r.Min.Y)
	case 270:
		return image.Rect(width-r.Max.Y, r.Min.X, width-r.Min.Y, r.Max.X)
	default:
		return r
	}
}
