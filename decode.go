package imgprep

import (
	"errors"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sunshineplan/utils/log"
)

const (
	// DefaultTextureSize is the dimension ceiling used when a Decoder has no
	// TextureSize provider.
	DefaultTextureSize = 4096
	// MinTextureSize is the smallest ceiling a provider can report.
	MinTextureSize = 2048
	// DefaultPixelBudget is the largest buffer the default allocator accepts.
	DefaultPixelBudget = 64 * 1024 * 1024
	// MaxSampleSize is the largest sample size tried before decoding fails.
	MaxSampleSize = 512
)

// Decoder decodes images at a sample size that keeps them inside the
// dimension ceiling and the memory available.
//
// The standard decoders cannot subsample, so the source is decoded at full
// resolution and then reduced. Allocate bounds the retained image only, not
// the transient full-size decode.
type Decoder struct {
	// TextureSize reports the largest dimension a decoded image may have.
	// It is called at most once.
	TextureSize func() int
	// Allocate reserves room for a width x height image and returns
	// ErrOutOfMemory when it cannot. Nil enforces DefaultPixelBudget.
	Allocate func(width, height int) error

	once    sync.Once
	ceiling int
}

// NewDecoder returns a Decoder with the default ceiling and allocator.
func NewDecoder() *Decoder {
	return new(Decoder)
}

func (d *Decoder) textureSize() int {
	d.once.Do(func() {
		size := DefaultTextureSize
		if d.TextureSize != nil {
			size = d.TextureSize()
		}
		d.ceiling = max(size, MinTextureSize)
	})
	return d.ceiling
}

func (d *Decoder) allocate(width, height int) error {
	if d.Allocate != nil {
		return d.Allocate(width, height)
	}
	if int64(width)*int64(height) > DefaultPixelBudget {
		return ErrOutOfMemory
	}
	return nil
}

// SampleSizeForRequest returns the largest power of two that keeps both
// halved dimensions above the request. It is 1 when the image already fits.
func SampleSizeForRequest(width, height, reqWidth, reqHeight int) int {
	sample := 1
	if height > reqHeight || width > reqWidth {
		halfHeight, halfWidth := height/2, width/2
		for halfHeight/sample > reqHeight && halfWidth/sample > reqWidth {
			sample *= 2
		}
	}
	return sample
}

// SampleSizeForCeiling returns the smallest power of two that brings both
// dimensions down to ceiling or below.
func SampleSizeForCeiling(width, height, ceiling int) int {
	sample := 1
	if ceiling <= 0 {
		return sample
	}
	for height/sample > ceiling || width/sample > ceiling {
		sample *= 2
	}
	return sample
}

// Decode decodes src reduced by a power-of-two sample size and returns the
// image with the sample size used. A non-positive request dimension means
// the image's own size.
func (d *Decoder) Decode(src Source, reqWidth, reqHeight int) (*Image, int, error) {
	cfg, err := decodeConfig(src)
	if err != nil {
		return nil, 0, err
	}
	if reqWidth <= 0 {
		reqWidth = cfg.Width
	}
	if reqHeight <= 0 {
		reqHeight = cfg.Height
	}

	sample := max(
		SampleSizeForRequest(cfg.Width, cfg.Height, reqWidth, reqHeight),
		SampleSizeForCeiling(cfg.Width, cfg.Height, d.textureSize()),
	)
	for ; sample <= MaxSampleSize; sample *= 2 {
		width, height := ceilDiv(cfg.Width, sample), ceilDiv(cfg.Height, sample)
		if err := d.allocate(width, height); err != nil {
			if errors.Is(err, ErrOutOfMemory) {
				log.Debug("Retry decoding", "source", src, "sample", sample*2)
				continue
			}
			return nil, 0, newError(DecodeError, "allocate", err)
		}

		img, err := decodePixels(src)
		if err != nil {
			return nil, 0, err
		}
		if sample > 1 {
			img = imaging.Resize(img, width, height, imaging.Box)
		}
		return NewImage(img), sample, nil
	}
	return nil, 0, newError(DecodeError, "decode", ErrDecodeFailed)
}

func decodeConfig(src Source) (image.Config, error) {
	rc, err := src.Open()
	if err != nil {
		return image.Config{}, newError(DecodeError, "open", err)
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, newError(DecodeError, "dimensions", ErrNotPicture)
	}
	return cfg, nil
}

func decodePixels(src Source) (image.Image, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, newError(DecodeError, "open", err)
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, newError(DecodeError, "decode", errors.Join(ErrDecodeFailed, err))
	}
	return img, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
