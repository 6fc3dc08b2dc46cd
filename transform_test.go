package imgprep

import (
	"errors"
	"image"
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTransformCover(t *testing.T) {
	tr := NewTransform(1080, 2400, ScaleCover)
	if err := tr.SetImageSourceInfo(1200, 1600, false); err != nil {
		t.Fatal(err)
	}
	m, err := tr.Mapping()
	if err != nil {
		t.Fatal(err)
	}
	if !near(m.Scale, 1.5) || !near(m.OffsetX, 360) || !near(m.OffsetY, 0) {
		t.Fatalf("expected scale 1.5 offset (360, 0); got %+v", m)
	}

	testCase := []struct {
		p    image.Point
		x, y float64
	}{
		{image.Pt(0, 0), -360, 0},
		{image.Pt(1200, 1600), 1440, 2400},
		{image.Pt(600, 800), 540, 1200},
	}
	for _, tc := range testCase {
		if x, y := m.Point(tc.p); !near(x, tc.x) || !near(y, tc.y) {
			t.Errorf("%v: expected (%v, %v); got (%v, %v)", tc.p, tc.x, tc.y, x, y)
		}
	}
	if v := m.Length(10); !near(v, 15) {
		t.Errorf("expected length 15; got %v", v)
	}
}

func TestTransformCoverWide(t *testing.T) {
	tr := NewTransform(1000, 500, ScaleCover)
	if err := tr.SetImageSourceInfo(100, 100, false); err != nil {
		t.Fatal(err)
	}
	m, err := tr.Mapping()
	if err != nil {
		t.Fatal(err)
	}
	if !near(m.Scale, 10) || !near(m.OffsetX, 0) || !near(m.OffsetY, 250) {
		t.Fatalf("expected scale 10 offset (0, 250); got %+v", m)
	}
}

func TestTransformFit(t *testing.T) {
	tr := NewTransform(1080, 2400, ScaleFit)
	if err := tr.SetImageSourceInfo(1600, 1200, false); err != nil {
		t.Fatal(err)
	}
	m, err := tr.Mapping()
	if err != nil {
		t.Fatal(err)
	}
	if !near(m.Scale, 0.675) {
		t.Fatalf("expected scale 0.675; got %v", m.Scale)
	}
	// The image is centered vertically.
	if _, y := m.Point(image.Pt(0, 0)); !near(y, 795) {
		t.Errorf("expected top at 795; got %v", y)
	}
	if x, y := m.Point(image.Pt(1600, 1200)); !near(x, 1080) || !near(y, 1605) {
		t.Errorf("expected bottom right at (1080, 1605); got (%v, %v)", x, y)
	}
}

func TestTransformFlipped(t *testing.T) {
	plain := NewTransform(1080, 2400, ScaleCover)
	flipped := NewTransform(1080, 2400, ScaleCover)
	if err := plain.SetImageSourceInfo(1200, 1600, false); err != nil {
		t.Fatal(err)
	}
	if err := flipped.SetImageSourceInfo(1200, 1600, true); err != nil {
		t.Fatal(err)
	}
	pm, _ := plain.Mapping()
	fm, _ := flipped.Mapping()
	for _, x := range []float64{0, 100, 600, 1200} {
		if sum := pm.X(x) + fm.X(x); !near(sum, 1080) {
			t.Errorf("x %v: mirrored coordinates sum to %v", x, sum)
		}
		if !near(pm.Y(x), fm.Y(x)) {
			t.Errorf("y %v: flip changed the vertical mapping", x)
		}
	}

	l, top, r, b := fm.Rect(image.Rect(100, 200, 300, 400))
	if l >= r {
		t.Errorf("expected normalized rect; got left %v right %v", l, r)
	}
	if !near(l, 1080-pm.X(300)) || !near(r, 1080-pm.X(100)) || !near(top, 300) || !near(b, 600) {
		t.Errorf("unexpected mirrored rect (%v, %v, %v, %v)", l, top, r, b)
	}
}

func TestTransformInvalid(t *testing.T) {
	tr := NewTransform(100, 100, ScaleCover)
	for _, size := range []image.Point{{0, 10}, {10, 0}, {-1, -1}} {
		err := tr.SetImageSourceInfo(size.X, size.Y, false)
		if !errors.Is(err, ErrInvalidDimensions) || !IsKind(err, TransformError) {
			t.Errorf("%v: expected invalid dimensions; got %v", size, err)
		}
	}
	if _, err := tr.Mapping(); !IsKind(err, TransformError) {
		t.Errorf("expected transform error without image source; got %v", err)
	}
}

func TestTransformDirty(t *testing.T) {
	tr := NewTransform(0, 0, ScaleCover)
	if !tr.Dirty() {
		t.Fatal("new transform should be dirty")
	}
	if err := tr.SetImageSourceInfo(100, 50, false); err != nil {
		t.Fatal(err)
	}
	if !tr.Dirty() {
		t.Error("transform without surface size should stay dirty")
	}
	if _, err := tr.Mapping(); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("expected invalid dimensions without surface; got %v", err)
	}

	tr.Resize(200, 100)
	m, err := tr.Mapping()
	if err != nil {
		t.Fatal(err)
	}
	if tr.Dirty() || !near(m.Scale, 2) {
		t.Errorf("expected clean mapping at scale 2; got %+v", m)
	}

	tr.Resize(200, 100)
	if tr.Dirty() {
		t.Error("resizing to the same size should not dirty the transform")
	}
	tr.Resize(400, 200)
	if !tr.Dirty() {
		t.Error("resizing should dirty the transform")
	}
	if err := tr.SetImageSourceInfo(100, 50, true); err != nil {
		t.Fatal(err)
	}
	if tr.Dirty() {
		t.Error("setting the image source on a laid out surface should recompute")
	}
	if m, _ := tr.Mapping(); !near(m.Scale, 4) || !m.Flipped {
		t.Errorf("expected flipped mapping at scale 4; got %+v", m)
	}
}
