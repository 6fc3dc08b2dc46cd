package imgprep

import (
	"bytes"
	"flag"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"testing"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func TestFormatFromExtension(t *testing.T) {
	if _, err := FormatFromExtension("Jpg"); err != nil {
		t.Fatal("jpg format want no error")
	}
	if _, err := FormatFromExtension(".TIFF"); err != nil {
		t.Fatal("tiff format want no error")
	}
	if _, err := FormatFromExtension("txt"); err == nil {
		t.Fatal("txt format want error")
	}
}

func TestTextVar(t *testing.T) {
	testCase1 := []struct {
		argument string
		format   Format
	}{
		{"Jpg", JPEG},
		{"TIFF", TIFF},
		{"txt", Format(-1)},
	}
	for _, tc := range testCase1 {
		f := flag.NewFlagSet("test", flag.ContinueOnError)
		f.SetOutput(io.Discard)
		var format Format
		f.TextVar(&format, "f", Format(-1), "")
		f.Parse(append([]string{"-f"}, tc.argument))
		if format != tc.format {
			t.Errorf("expected %s format; got %s", tc.format, format)
		}
	}
	testCase2 := []struct {
		argument    string
		compression TIFFCompression
	}{
		{"none", TIFFUncompressed},
		{"Deflate", TIFFDeflate},
		{"lzw", TIFFCompression(-1)},
	}
	for _, tc := range testCase2 {
		f := flag.NewFlagSet("test", flag.ContinueOnError)
		f.SetOutput(io.Discard)
		var compression TIFFCompression
		f.TextVar(&compression, "c", TIFFCompression(-1), "")
		f.Parse(append([]string{"-c"}, tc.argument))
		if compression != tc.compression {
			t.Errorf("expected %d compression; got %d", tc.compression, compression)
		}
	}

	f := flag.NewFlagSet("test", flag.ContinueOnError)
	var compression TIFFCompression
	f.TextVar(&compression, "c", TIFFDeflate, "")
	if def := f.Lookup("c").DefValue; def != "deflate" {
		t.Errorf("expected deflate default; got %q", def)
	}
	if err := f.Parse([]string{"-c", "NONE"}); err != nil {
		t.Fatal(err)
	}
	if s := f.Lookup("c").Value.String(); s != "none" {
		t.Errorf("expected none; got %q", s)
	}
	if _, err := TIFFCompression(2).MarshalText(); err == nil {
		t.Error("expected error for unknown compression")
	}
}

func TestEncode(t *testing.T) {
	testCase := []FormatOption{
		{Format: JPEG, EncodeOption: []EncodeOption{Quality(75)}},
		{Format: PNG, EncodeOption: []EncodeOption{PNGCompressionLevel(png.DefaultCompression)}},
		{Format: GIF, EncodeOption: []EncodeOption{GIFNumColors(256), GIFDrawer(draw.FloydSteinberg), GIFQuantizer(nil)}},
		{Format: TIFF, EncodeOption: []EncodeOption{TIFFCompressionType(TIFFDeflate)}},
		{Format: BMP},
	}

	m0 := testImage(64, 48)
	for _, tc := range testCase {
		var buf bytes.Buffer
		fo := &FormatOption{tc.Format, tc.EncodeOption}
		if err := fo.Encode(&buf, m0); err != nil {
			t.Fatal(fo.Format, err)
		}

		m1, _, err := image.Decode(&buf)
		if err != nil {
			t.Fatal(fo.Format, err)
		}
		if m0.Bounds() != m1.Bounds() {
			t.Fatalf("bounds differ: %v and %v", m0.Bounds(), m1.Bounds())
		}
	}

	if err := (&FormatOption{Format: -1}).Encode(io.Discard, m0); err == nil {
		t.Fatal("encode unsupported format expect an error")
	}
}
