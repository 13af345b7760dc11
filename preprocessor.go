package mrzworker

import (
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	PreprocessorIdentity  = "identity"
	PreprocessorGrayscale = "grayscale"
	PreprocessorIELCD     = "ielcd"
)

// Preprocessor transforms an image before it is handed to an open OCR engine.
type Preprocessor interface {
	preprocess(img image.Image) image.Image
}

type IdentityPreprocessor struct{}

func (IdentityPreprocessor) preprocess(img image.Image) image.Image {
	return img
}

type GrayscalePreprocessor struct{}

func (GrayscalePreprocessor) preprocess(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

// IELCDPreprocessor boosts contrast and sharpens, which helps with
// low contrast prints and pictures of screens.
type IELCDPreprocessor struct {
	Contrast float64
	Sigma    float64
}

func (p IELCDPreprocessor) preprocess(img image.Image) image.Image {
	return imaging.Sharpen(imaging.AdjustContrast(img, p.Contrast), p.Sigma)
}

func NewPreprocessor(name string) (Preprocessor, error) {
	switch name {
	case PreprocessorIdentity, "":
		return IdentityPreprocessor{}, nil
	case PreprocessorGrayscale:
		return GrayscalePreprocessor{}, nil
	case PreprocessorIELCD:
		return IELCDPreprocessor{Contrast: 30, Sigma: 1.5}, nil
	}
	return nil, errors.Errorf("unknown preprocessor %q", name)
}

// preprocessorChain returns the preprocessors configured for the open engines.
func preprocessorChain(engineConfig EngineConfig) ([]Preprocessor, error) {
	names := append([]string(nil), engineConfig.Preprocessors...)
	if engineConfig.IELCDEnabled {
		names = append(names, PreprocessorIELCD)
	}
	chain := make([]Preprocessor, 0, len(names))
	for _, name := range names {
		p, err := NewPreprocessor(name)
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}
	return chain, nil
}

// parsePreprocessors validates a comma separated list of preprocessor names.
func parsePreprocessors(list string) ([]string, error) {
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := NewPreprocessor(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
