//go:build !gosseract
// +build !gosseract

package mrzworker

import (
	"context"
)

// GoTesseractEngine needs the "gosseract" build tag and the tesseract headers.
type GoTesseractEngine struct{}

var gosseractDisabledResult = EngineResult{Code: -1, Phrase: "gosseract build tag is not enabled"}

func (g *GoTesseractEngine) Name() string {
	return "go_tesseract"
}

func (g *GoTesseractEngine) Init(ctx context.Context, engineConfig EngineConfig) (EngineResult, error) {
	return gosseractDisabledResult, nil
}

func (g *GoTesseractEngine) Process(ctx context.Context, frame *Frame) (EngineResult, error) {
	return gosseractDisabledResult, nil
}

func (g *GoTesseractEngine) DeInit() (EngineResult, error) {
	return gosseractDisabledResult, nil
}
