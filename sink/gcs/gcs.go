// Package gcs persists annotated images to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"image"
	"path"

	"cloud.google.com/go/storage"
	"github.com/sunshineplan/imgprep"
)

// Sink implements imgprep.Sink.
type Sink struct {
	Client *storage.Client
	Bucket string
	// Prefix is prepended to object names.
	Prefix string
	Format *imgprep.FormatOption
}

// New returns a Sink writing JPEG objects to bucket.
func New(client *storage.Client, bucket, prefix string) *Sink {
	return &Sink{Client: client, Bucket: bucket, Prefix: prefix}
}

// Save writes img to a new object and returns its gs:// URL.
func (s *Sink) Save(ctx context.Context, img image.Image) (string, error) {
	format := s.Format
	if format == nil {
		format = &imgprep.DefaultFormat
	}
	name := path.Join(s.Prefix, format.Name())

	// Cancelling the writer's context aborts the upload.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.Client.Bucket(s.Bucket).Object(name).NewWriter(ctx)
	w.ContentType = "image/" + contentType(format.Format)
	if err := format.Encode(w, img); err != nil {
		cancel()
		return "", fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.Bucket, name), nil
}

func contentType(f imgprep.Format) string {
	switch f {
	case imgprep.JPEG:
		return "jpeg"
	case imgprep.TIFF:
		return "tiff"
	default:
		return f.String()
	}
}
