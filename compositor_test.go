package imgprep

import (
	"errors"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

func TestCompositorRender(t *testing.T) {
	base := imaging.New(100, 50, color.White)
	overlay := new(Overlay)
	overlay.Add(&BoxGraphic{Bounds: image.Rect(10, 10, 40, 30), Label: "box", Color: color.Black})

	display := &recordingSurface{width: 200, height: 100}
	c := NewCompositor(overlay, display)
	if err := c.SetImageSourceInfo(100, 50, false); err != nil {
		t.Fatal(err)
	}
	img, err := c.Render(base)
	if err != nil {
		t.Fatal(err)
	}
	defer img.Release()

	if got := img.Bounds().Size(); got != image.Pt(100, 50) {
		t.Fatalf("expected 100x50 output; got %v", got)
	}
	gray := func(x, y int) uint8 {
		return color.GrayModel.Convert(img.Image().At(x, y)).(color.Gray).Y
	}
	if v := gray(10, 20); v > 128 {
		t.Errorf("expected outline at left edge; got %d", v)
	}
	if v := gray(25, 20); v != 255 {
		t.Errorf("expected untouched inside; got %d", v)
	}
	if v := gray(90, 45); v != 255 {
		t.Errorf("expected untouched outside; got %d", v)
	}
	if v := base.NRGBAAt(10, 20); v != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("base image was modified: %v", v)
	}

	if len(display.calls) != 2 {
		t.Fatalf("expected outline and label on display; got %v", display.calls)
	}
	rect := display.calls[0]
	if rect.left != 20 || rect.top != 20 || rect.right != 80 || rect.bottom != 60 {
		t.Errorf("expected display outline scaled by 2; got %+v", rect)
	}
	if label := display.calls[1]; label.text != "box" || label.left != 20 || label.top != 16 {
		t.Errorf("unexpected label %+v", label)
	}
}

func TestCompositorWithoutImageSource(t *testing.T) {
	overlay := new(Overlay)
	overlay.Add(&BoxGraphic{Bounds: image.Rect(1, 1, 5, 5)})
	display := &recordingSurface{width: 200, height: 100}
	img, err := NewCompositor(overlay, display).Render(imaging.New(10, 10, color.White))
	if err != nil {
		t.Fatal(err)
	}
	if img.Width() != 10 {
		t.Errorf("expected 10 wide output; got %d", img.Width())
	}
	if len(display.calls) != 0 {
		t.Errorf("display drawn without image source: %v", display.calls)
	}
}

func TestCompositorFlipped(t *testing.T) {
	overlay := new(Overlay)
	overlay.Add(&BoxGraphic{Bounds: image.Rect(10, 10, 40, 30)})
	display := &recordingSurface{width: 100, height: 50}
	c := NewCompositor(overlay, display)
	if err := c.SetImageSourceInfo(100, 50, true); err != nil {
		t.Fatal(err)
	}
	img, err := c.Render(imaging.New(100, 50, color.White))
	if err != nil {
		t.Fatal(err)
	}
	if rect := display.calls[0]; rect.left != 60 || rect.right != 90 {
		t.Errorf("expected mirrored outline; got %+v", rect)
	}
	gray := func(x, y int) uint8 {
		return color.GrayModel.Convert(img.Image().At(x, y)).(color.Gray).Y
	}
	if v := gray(10, 20); v > 128 {
		t.Errorf("expected outline at x=10 on the offscreen copy; got %d", v)
	}
	if v := gray(89, 20); v != 255 {
		t.Errorf("offscreen copy was mirrored; got %d at x=89", v)
	}
}

func TestLoadFace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0644); err != nil {
		t.Fatal(err)
	}
	small, err := LoadFace(path, 12)
	if err != nil {
		t.Fatal(err)
	}
	large, err := LoadFace(path, 48)
	if err != nil {
		t.Fatal(err)
	}
	if hs, hl := small.Metrics().Height, large.Metrics().Height; hs <= 0 || hl <= 3*hs {
		t.Errorf("expected height to follow size; got %v and %v", hs, hl)
	}

	if _, err := LoadFace(filepath.Join(t.TempDir(), "missing.ttf"), 12); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not exist error; got %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFace(bad, 12); err == nil {
		t.Error("expected error for invalid font")
	}
}

// countingFace counts the glyphs drawn with it.
type countingFace struct {
	font.Face
	glyphs int
}

func (f *countingFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	f.glyphs++
	return f.Face.Glyph(dot, r)
}

func TestCompositorFace(t *testing.T) {
	overlay := new(Overlay)
	overlay.Add(&BoxGraphic{Bounds: image.Rect(10, 20, 40, 30), Label: "box", Color: color.Black})
	face := &countingFace{Face: basicfont.Face7x13}
	c := NewCompositor(overlay, nil)
	c.Face = face
	img, err := c.Render(imaging.New(60, 40, color.White))
	if err != nil {
		t.Fatal(err)
	}
	defer img.Release()
	if face.glyphs != 3 {
		t.Errorf("expected label drawn with face; got %d glyphs", face.glyphs)
	}
}

func TestCompositorInvalid(t *testing.T) {
	c := NewCompositor(nil, nil)
	if err := c.SetImageSourceInfo(0, 10, false); !IsKind(err, TransformError) {
		t.Errorf("expected transform error; got %v", err)
	}
	if _, err := c.Render(image.NewGray(image.Rectangle{})); !IsKind(err, TransformError) {
		t.Errorf("expected transform error; got %v", err)
	}
	if img, err := c.Render(image.NewGray(image.Rect(0, 0, 3, 3))); err != nil || img.Width() != 3 {
		t.Errorf("expected render without overlay; got %v", err)
	}
}
