package imgprep

import (
	"encoding/json"
	"image"
	"testing"
)

func sampleText() *Text {
	return BuildText(
		[]Box{
			{Text: " Hello there \n", Bounds: image.Rect(0, 0, 100, 50)},
			{Text: "Hello there", Bounds: image.Rect(0, 60, 100, 100)},
		},
		[]Box{
			{Text: "Hello", Bounds: image.Rect(0, 0, 100, 20), Confidence: 0.9},
			{Text: "there", Bounds: image.Rect(0, 25, 100, 45), Confidence: 0.8},
			{Text: "Hello there", Bounds: image.Rect(0, 65, 100, 95), Confidence: 0.7},
			{Text: "stray", Bounds: image.Rect(200, 200, 300, 220)},
		},
		[]Box{
			{Text: "Hel", Bounds: image.Rect(0, 0, 40, 20), Confidence: 0.95},
			{Text: "lo", Bounds: image.Rect(50, 0, 100, 20), Confidence: 0.85},
			{Text: "lost", Bounds: image.Rect(210, 200, 250, 220)},
		},
		[]Box{
			{Text: "H", Bounds: image.Rect(0, 0, 10, 20), Confidence: 0.99},
			{Text: "x", Bounds: image.Rect(215, 200, 225, 220)},
		},
		"en",
	)
}

func TestBuildText(t *testing.T) {
	text := sampleText()
	if text.Text != "Hello there\nHello there" {
		t.Errorf("unexpected text %q", text.Text)
	}
	if n := len(text.Blocks); n != 2 {
		t.Fatalf("expected 2 blocks; got %d", n)
	}
	first := text.Blocks[0]
	if n := len(first.Lines); n != 2 {
		t.Fatalf("expected 2 lines in first block; got %d", n)
	}
	if n := len(text.Blocks[1].Lines); n != 1 {
		t.Errorf("expected 1 line in second block; got %d", n)
	}
	line := first.Lines[0]
	if line.Confidence != 0.9 || line.Language != "en" {
		t.Errorf("unexpected line %+v", line)
	}
	if n := len(line.Elements); n != 2 {
		t.Fatalf("expected 2 elements; got %d", n)
	}
	if n := len(line.Elements[0].Symbols); n != 1 || line.Elements[0].Symbols[0].Text != "H" {
		t.Errorf("unexpected symbols %+v", line.Elements[0].Symbols)
	}
	if len(first.CornerPoints) != 4 || first.CornerPoints[2] != image.Pt(100, 50) {
		t.Errorf("unexpected corner points %v", first.CornerPoints)
	}
}

func TestTextJSON(t *testing.T) {
	b, err := json.Marshal(sampleText())
	if err != nil {
		t.Fatal(err)
	}

	var v struct {
		Text   string `json:"text"`
		Blocks []struct {
			Text         string `json:"text"`
			BoundingBox  []int  `json:"boundingBox"`
			CornerPoints []int  `json:"cornerPoints"`
			Language     string `json:"recognizedLanguage"`
			Lines        []struct {
				Text       string  `json:"text"`
				Confidence float64 `json:"confidence"`
				Elements   []struct {
					Text    string `json:"text"`
					Symbols []struct {
						Text        string `json:"text"`
						BoundingBox []int  `json:"boundingBox"`
					} `json:"symbols"`
				} `json:"elements"`
			} `json:"lines"`
		} `json:"textBlocks"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatal(err)
	}
	if v.Text != "Hello there\nHello there" || len(v.Blocks) != 2 {
		t.Fatalf("unexpected result %s", b)
	}
	block := v.Blocks[0]
	if len(block.BoundingBox) != 4 || block.BoundingBox[2] != 100 || block.BoundingBox[3] != 50 {
		t.Errorf("unexpected bounding box %v", block.BoundingBox)
	}
	if want := []int{0, 0, 100, 0, 100, 50, 0, 50}; len(block.CornerPoints) != len(want) {
		t.Errorf("expected corner points %v; got %v", want, block.CornerPoints)
	} else {
		for i := range want {
			if block.CornerPoints[i] != want[i] {
				t.Errorf("expected corner points %v; got %v", want, block.CornerPoints)
				break
			}
		}
	}
	if block.Language != "en" || block.Lines[0].Confidence != 0.9 {
		t.Errorf("unexpected block %+v", block)
	}
	if s := block.Lines[0].Elements[0].Symbols; len(s) != 1 || s[0].Text != "H" || s[0].BoundingBox[2] != 10 {
		t.Errorf("unexpected symbols %+v", s)
	}
}

func TestCoordinates(t *testing.T) {
	b, err := sampleText().Coordinates()
	if err != nil {
		t.Fatal(err)
	}
	if want := `[{"Hello there":[0,0,100,50]},{"Hello there":[0,60,100,100]}]`; string(b) != want {
		t.Errorf("expected %s; got %s", want, b)
	}

	b, err = new(Text).Coordinates()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[]" {
		t.Errorf("expected empty list; got %s", b)
	}
}

func TestRotateRect(t *testing.T) {
	// A 100x50 image, rotated clockwise by 90 degrees to 50x100.
	testCase := []struct {
		degrees int
		r, want image.Rectangle
	}{
		{0, image.Rect(1, 2, 3, 4), image.Rect(1, 2, 3, 4)},
		{90, image.Rect(10, 20, 30, 40), image.Rect(20, 20, 40, 40)},
		{180, image.Rect(10, 20, 30, 40), image.Rect(70, 10, 90, 30)},
		{270, image.Rect(10, 20, 30, 40), image.Rect(60, 10, 80, 30)},
		{-90, image.Rect(10, 20, 30, 40), image.Rect(60, 10, 80, 30)},
		{45, image.Rect(1, 2, 3, 4), image.Rect(1, 2, 3, 4)},
	}
	for _, tc := range testCase {
		if got := RotateRect(tc.r, tc.degrees, 100, 50); got != tc.want {
			t.Errorf("%d degrees: expected %v; got %v", tc.degrees, tc.want, got)
		}
	}
}
