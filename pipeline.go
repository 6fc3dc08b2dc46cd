package imgprep

import (
	"github.com/sunshineplan/utils/log"
)

// Stage is one step of the preprocessing pipeline.
type Stage struct {
	Name string
	Run  func(*Image) (*Image, error)
}

// Stages returns the stages enabled by c in the order they run: grayscale,
// contrast normalization, unsharp mask, Otsu threshold, deskew and adaptive
// threshold.
func (c Config) Stages() []Stage {
	var stages []Stage
	add := func(enabled bool, name string, run func(*Image) (*Image, error)) {
		if enabled {
			stages = append(stages, Stage{name, run})
		}
	}
	add(c.Grayscale, "grayscale", ToGray)
	add(c.ContrastNorm, "contrast", ContrastNorm)
	add(c.UnsharpMask, "unsharp", UnsharpMask)
	add(c.OtsuThreshold, "otsu", OtsuThreshold)
	add(c.Deskew, "deskew", Deskew)
	add(c.AdaptiveThreshold, "adaptive", func(m *Image) (*Image, error) {
		return AdaptiveThreshold(m, c.Adaptive)
	})
	return stages
}

// Preprocess runs the stages enabled by cfg over m. It takes ownership of m:
// m is released as soon as a stage replaces it. With every stage disabled m
// itself is returned. A failing stage aborts the pipeline without output.
func Preprocess(m *Image, cfg Config) (*Image, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.pixels("preprocess"); err != nil {
		return nil, err
	}

	for _, stage := range cfg.Stages() {
		next, err := stage.Run(m)
		if err != nil {
			log.Error("Preprocess stage failed", "stage", stage.Name, "error", err)
			m.Release()
			return nil, err
		}
		log.Debug("Preprocess stage done", "stage", stage.Name, "depth", next.Depth(), "replaced", next != m)
		m = next
	}
	return m, nil
}
