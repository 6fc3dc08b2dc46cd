package imgprep

import (
	"context"
	"image"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Sink stores annotated images and returns where each one went.
type Sink interface {
	Save(ctx context.Context, img image.Image) (string, error)
}

// DefaultFormat is the format of persisted annotated images.
var DefaultFormat = FormatOption{Format: JPEG, EncodeOption: []EncodeOption{Quality(DefaultQuality)}}

// Name returns a new random file name with the extension of f.
func (f *FormatOption) Name() string {
	return uuid.NewString() + "." + f.Format.Ext()
}

// DirSink saves images as uniquely named files in Dir.
type DirSink struct {
	Dir    string
	Format *FormatOption
}

func (s *DirSink) Save(_ context.Context, img image.Image) (string, error) {
	format := s.Format
	if format == nil {
		format = &DefaultFormat
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}

	output := filepath.Join(s.Dir, format.Name())
	if err := Save(output, img, format); err != nil {
		os.Remove(output)
		return "", err
	}
	return output, nil
}

// Save saves image according format option
func Save(output string, base image.Image, option *FormatOption) error {
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	return option.Encode(f, base)
}
