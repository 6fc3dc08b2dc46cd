package imgprep

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Settings keys.
const (
	KeyGrayscale                 = "key_grayscale"
	KeyContrast                  = "process_contrast"
	KeyUnsharpMask               = "un_sharp_mask"
	KeyOtsuThreshold             = "otsu_threshold"
	KeyDeskew                    = "deskew_img"
	KeyAdaptiveThreshold         = "adaptive_threshold"
	KeyAdaptiveThresholdMethod   = "key_adaptive_threshold_method"
	KeyAdaptiveThresholdType     = "key_adaptive_threshold_type"
	KeyAdaptiveThresholdBlock    = "key_adaptive_threshold_block_size"
	KeyAdaptiveThresholdOffset   = "key_adaptive_threshold_mean"
	KeyAdaptiveThresholdMaxValue = "key_adaptive_threshold_max_value"
	KeyPersist                   = "persist_data"
)

// AdaptiveMethod selects how the local threshold is computed.
type AdaptiveMethod int

// Adaptive methods.
const (
	AdaptiveMean AdaptiveMethod = iota
	AdaptiveGaussian
)

// ThresholdType selects the polarity of the adaptive threshold output.
type ThresholdType int

// Threshold types.
const (
	ThresholdBinary ThresholdType = iota
	ThresholdBinaryInverted
)

// AdaptiveParams are the parameters of the adaptive threshold stage.
type AdaptiveParams struct {
	Method    AdaptiveMethod
	Type      ThresholdType
	BlockSize int
	Offset    float64
	MaxValue  float64
}

// Config selects the preprocessing stages to run.
type Config struct {
	Grayscale         bool
	ContrastNorm      bool
	UnsharpMask       bool
	OtsuThreshold     bool
	Deskew            bool
	AdaptiveThreshold bool
	Adaptive          AdaptiveParams

	// Persist keeps annotated images after rendering.
	Persist bool
}

// DefaultConfig returns the configuration used for missing settings.
func DefaultConfig() Config {
	return Config{
		Grayscale:         true,
		ContrastNorm:      true,
		UnsharpMask:       true,
		OtsuThreshold:     true,
		Deskew:            true,
		AdaptiveThreshold: true,
		Adaptive: AdaptiveParams{
			Method:    AdaptiveMean,
			Type:      ThresholdBinary,
			BlockSize: 25,
			Offset:    10,
			MaxValue:  200,
		},
		Persist: true,
	}
}

// Validate checks the adaptive threshold parameters when that stage is
// enabled. Settings of disabled stages are ignored.
func (c Config) Validate() error {
	if !c.AdaptiveThreshold {
		return nil
	}
	return c.Adaptive.Validate()
}

// Validate checks the adaptive threshold parameters.
func (p AdaptiveParams) Validate() error {
	switch {
	case p.Method != AdaptiveMean && p.Method != AdaptiveGaussian:
		return invalidConfig(KeyAdaptiveThresholdMethod, "unknown method %d", p.Method)
	case p.Type != ThresholdBinary && p.Type != ThresholdBinaryInverted:
		return invalidConfig(KeyAdaptiveThresholdType, "unknown type %d", p.Type)
	case p.BlockSize <= 1 || p.BlockSize%2 == 0:
		return invalidConfig(KeyAdaptiveThresholdBlock, "block size %d must be odd and greater than 1", p.BlockSize)
	case p.MaxValue <= 0:
		return invalidConfig(KeyAdaptiveThresholdMaxValue, "max value %v must be positive", p.MaxValue)
	}
	return nil
}

func invalidConfig(key, format string, a ...any) error {
	return newError(ValidationError, key, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, a...)...))
}

// Settings is a string key/value store holding preprocessing settings.
type Settings interface {
	Lookup(key string) (string, bool)
}

// MapSettings is an in-memory Settings.
type MapSettings map[string]string

func (m MapSettings) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// EnvSettings reads settings from environment variables named by Prefix and
// the upper-cased key.
type EnvSettings struct {
	Prefix string
}

func (e EnvSettings) Lookup(key string) (string, bool) {
	return os.LookupEnv(e.Prefix + strings.ToUpper(key))
}

// LayeredSettings looks keys up in order and returns the first hit.
type LayeredSettings []Settings

func (l LayeredSettings) Lookup(key string) (string, bool) {
	for _, s := range l {
		if v, ok := s.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// ConfigFromSettings reads a Config from s. Missing keys take their default
// values; malformed or invalid values are errors.
func ConfigFromSettings(s Settings) (Config, error) {
	cfg := DefaultConfig()
	for key, v := range map[string]*bool{
		KeyGrayscale:         &cfg.Grayscale,
		KeyContrast:          &cfg.ContrastNorm,
		KeyUnsharpMask:       &cfg.UnsharpMask,
		KeyOtsuThreshold:     &cfg.OtsuThreshold,
		KeyDeskew:            &cfg.Deskew,
		KeyAdaptiveThreshold: &cfg.AdaptiveThreshold,
		KeyPersist:           &cfg.Persist,
	} {
		if err := lookupBool(s, key, v); err != nil {
			return Config{}, err
		}
	}

	var method, typ int
	if err := lookupInt(s, KeyAdaptiveThresholdMethod, &method); err != nil {
		return Config{}, err
	}
	if err := lookupInt(s, KeyAdaptiveThresholdType, &typ); err != nil {
		return Config{}, err
	}
	cfg.Adaptive.Method, cfg.Adaptive.Type = AdaptiveMethod(method), ThresholdType(typ)
	if err := lookupInt(s, KeyAdaptiveThresholdBlock, &cfg.Adaptive.BlockSize); err != nil {
		return Config{}, err
	}
	if err := lookupFloat(s, KeyAdaptiveThresholdOffset, &cfg.Adaptive.Offset); err != nil {
		return Config{}, err
	}
	if err := lookupFloat(s, KeyAdaptiveThresholdMaxValue, &cfg.Adaptive.MaxValue); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func lookupBool(s Settings, key string, v *bool) error {
	str, ok := s.Lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(str))
	if err != nil {
		return invalidConfig(key, "%q is not a boolean", str)
	}
	*v = b
	return nil
}

func lookupInt(s Settings, key string, v *int) error {
	str, ok := s.Lookup(key)
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return invalidConfig(key, "%q is not an integer", str)
	}
	*v = i
	return nil
}

func lookupFloat(s Settings, key string, v *float64) error {
	str, ok := s.Lookup(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return invalidConfig(key, "%q is not a number", str)
	}
	*v = f
	return nil
}
