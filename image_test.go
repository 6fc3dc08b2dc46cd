package imgprep

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func compare(t *testing.T, img0, img1 image.Image) {
	t.Helper()
	b0 := img0.Bounds()
	b1 := img1.Bounds()
	if b0.Dx() != b1.Dx() || b0.Dy() != b1.Dy() {
		t.Fatalf("wrong image size: want %s, got %s", b0, b1)
	}
	x1 := b1.Min.X - b0.Min.X
	y1 := b1.Min.Y - b0.Min.Y
	for y := b0.Min.Y; y < b0.Max.Y; y++ {
		for x := b0.Min.X; x < b0.Max.X; x++ {
			c0 := img0.At(x, y)
			c1 := img1.At(x+x1, y+y1)
			r0, g0, b0, a0 := c0.RGBA()
			r1, g1, b1, a1 := c1.RGBA()
			if r0 != r1 || g0 != g1 || b0 != b1 || a0 != a1 {
				t.Fatalf("pixel at (%d, %d) has wrong color: want %v, got %v", x, y, c0, c1)
			}
		}
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDepth(t *testing.T) {
	testCase := []struct {
		img  image.Image
		want Depth
	}{
		{image.NewGray(image.Rect(0, 0, 1, 1)), Depth8},
		{image.NewYCbCr(image.Rect(0, 0, 1, 1), image.YCbCrSubsampleRatio444), Depth24},
		{image.NewNRGBA(image.Rect(0, 0, 1, 1)), Depth32},
		{image.NewRGBA64(image.Rect(0, 0, 1, 1)), Depth32},
	}
	for _, tc := range testCase {
		if got := NewImage(tc.img).Depth(); got != tc.want {
			t.Errorf("%T: expected depth %d; got %d", tc.img, tc.want, got)
		}
	}
}

func TestGray(t *testing.T) {
	sample := NewImage(testImage(40, 30))
	img, err := ToGray(sample)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Size() != image.Pt(40, 30) {
		t.Fatalf("bounds differ: %v", img.Bounds().Size())
	}
	if _, ok := img.Image().(*image.Gray); !ok || img.Depth() != Depth8 {
		t.Fatal("img is not gray")
	}
	if !sample.Released() {
		t.Error("input was not released")
	}

	same, err := ToGray(img)
	if err != nil {
		t.Fatal(err)
	}
	if same != img {
		t.Error("8bpp input was copied")
	}
}

func TestGrayBinary(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 2, 1))
	g.SetGray(1, 0, color.Gray{255})
	bin := newBinary(g)
	img, err := ToGray(bin)
	if err != nil {
		t.Fatal(err)
	}
	if img == bin || img.Depth() != Depth8 {
		t.Fatal("binary input must become a new 8bpp image")
	}
	compare(t, g, img.Image())
}

func TestReleased(t *testing.T) {
	img := NewImage(testImage(4, 4))
	img.Release()
	img.Release()
	if !img.Released() || img.Width() != 0 {
		t.Fatal("image not released")
	}
	if _, err := ToGray(img); !errors.Is(err, ErrReleased) || !IsKind(err, StageError) {
		t.Fatalf("expected released stage error; got %v", err)
	}
}
