package imgprep

import (
	"errors"
	"image"
	"image/draw"
	_ "image/jpeg" // decode jpeg format
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "github.com/sunshineplan/pdf" // decode pdf format
	"github.com/sunshineplan/tiff"
	_ "golang.org/x/image/bmp"  // decode bmp format
	_ "golang.org/x/image/webp" // decode webp format
)

// Format is an image file format used for persisted images.
type Format int

// Image file formats.
const (
	JPEG Format = iota
	PNG
	GIF
	TIFF
	BMP
)

var formatExts = [][]string{
	{"jpg", "jpeg"},
	{"png"},
	{"gif"},
	{"tif", "tiff"},
	{"bmp"},
}

// ErrUnsupportedFormat means the given image format is not supported.
var ErrUnsupportedFormat = errors.New("imgprep: unsupported image format")

func (f Format) String() (format string) {
	defer func() {
		if err := recover(); err != nil {
			format = "unknown"
		}
	}()
	return formatExts[f][0]
}

// Ext returns the file extension of f without the dot.
func (f Format) Ext() string { return f.String() }

// FormatFromExtension parses image format from filename extension:
// "jpg" (or "jpeg"), "png", "gif", "tif" (or "tiff") and "bmp" are supported.
func FormatFromExtension(ext string) (Format, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for index, exts := range formatExts {
		for _, i := range exts {
			if ext == i {
				return Format(index), nil
			}
		}
	}
	return -1, ErrUnsupportedFormat
}

func (f *Format) UnmarshalText(text []byte) error {
	format, err := FormatFromExtension(string(text))
	if err != nil {
		return err
	}
	*f = format
	return nil
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// TIFFCompression describes the type of compression used in Options.
type TIFFCompression int

// Constants for supported TIFF compression types.
const (
	TIFFUncompressed TIFFCompression = iota
	TIFFDeflate
)

var tiffCompression = []string{"none", "deflate"}

func (c TIFFCompression) value() tiff.CompressionType {
	switch c {
	case TIFFDeflate:
		return tiff.Deflate
	}
	return tiff.Uncompressed
}

func (c *TIFFCompression) UnmarshalText(text []byte) error {
	for index, i := range tiffCompression {
		if strings.ToLower(string(text)) == i {
			*c = TIFFCompression(index)
			return nil
		}
	}
	return errors.New("imgprep: unsupported tiff compression")
}

func (c TIFFCompression) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(tiffCompression) {
		return nil, errors.New("imgprep: unsupported tiff compression")
	}
	return []byte(tiffCompression[c]), nil
}

// FormatOption is format option
type FormatOption struct {
	Format       Format
	EncodeOption []EncodeOption
}

type encodeConfig struct {
	Quality             int
	gifNumColors        int
	gifQuantizer        draw.Quantizer
	gifDrawer           draw.Drawer
	pngCompressionLevel png.CompressionLevel
	tiffCompressionType TIFFCompression
}

var defaultEncodeConfig = encodeConfig{
	Quality:             DefaultQuality,
	gifNumColors:        256,
	gifQuantizer:        nil,
	gifDrawer:           nil,
	pngCompressionLevel: png.DefaultCompression,
	tiffCompressionType: TIFFDeflate,
}

// DefaultQuality is the JPEG quality of persisted annotated images.
const DefaultQuality = 30

// EncodeOption sets an optional parameter for the Encode and Save functions.
type EncodeOption func(*encodeConfig)

// Quality returns an EncodeOption that sets the output JPEG quality.
// Quality ranges from 1 to 100 inclusive, higher is better.
func Quality(quality int) EncodeOption {
	return func(c *encodeConfig) {
		c.Quality = quality
	}
}

// GIFNumColors returns an EncodeOption that sets the maximum number of colors
// used in the GIF-encoded image. It ranges from 1 to 256.  Default is 256.
func GIFNumColors(numColors int) EncodeOption {
	return func(c *encodeConfig) {
		c.gifNumColors = numColors
	}
}

// GIFQuantizer returns an EncodeOption that sets the quantizer that is used to produce
// a palette of the GIF-encoded image.
func GIFQuantizer(quantizer draw.Quantizer) EncodeOption {
	return func(c *encodeConfig) {
		c.gifQuantizer = quantizer
	}
}

// GIFDrawer returns an EncodeOption that sets the drawer that is used to convert
// the source image to the desired palette of the GIF-encoded image.
func GIFDrawer(drawer draw.Drawer) EncodeOption {
	return func(c *encodeConfig) {
		c.gifDrawer = drawer
	}
}

// PNGCompressionLevel returns an EncodeOption that sets the compression level
// of the PNG-encoded image. Default is png.DefaultCompression.
func PNGCompressionLevel(level png.CompressionLevel) EncodeOption {
	return func(c *encodeConfig) {
		c.pngCompressionLevel = level
	}
}

// TIFFCompressionType returns an EncodeOption that sets the compression type
// of the TIFF-encoded image. Default is TIFFDeflate.
func TIFFCompressionType(compressionType TIFFCompression) EncodeOption {
	return func(c *encodeConfig) {
		c.tiffCompressionType = compressionType
	}
}

// Encode writes the image img to w in the specified format (JPEG, PNG, GIF, TIFF or BMP).
func (f *FormatOption) Encode(w io.Writer, img image.Image) error {
	cfg := defaultEncodeConfig
	for _, option := range f.EncodeOption {
		option(&cfg)
	}

	switch f.Format {
	case JPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(cfg.Quality))
	case PNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(cfg.pngCompressionLevel))
	case GIF:
		opts := []imaging.EncodeOption{imaging.GIFNumColors(cfg.gifNumColors)}
		if cfg.gifQuantizer != nil {
			opts = append(opts, imaging.GIFQuantizer(cfg.gifQuantizer))
		}
		if cfg.gifDrawer != nil {
			opts = append(opts, imaging.GIFDrawer(cfg.gifDrawer))
		}
		return imaging.Encode(w, img, imaging.GIF, opts...)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: cfg.tiffCompressionType.value(), Predictor: true})
	case BMP:
		return imaging.Encode(w, img, imaging.BMP)
	}

	return ErrUnsupportedFormat
}
