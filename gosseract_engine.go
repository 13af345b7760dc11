//go:build gosseract
// +build gosseract

package mrzworker

import (
	"bytes"
	"context"
	"time"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// GoTesseractEngine runs tesseract in-process through gosseract.
type GoTesseractEngine struct {
	openEngine
	client *gosseract.Client
}

func (g *GoTesseractEngine) Name() string {
	return "go_tesseract"
}

func (g *GoTesseractEngine) Init(ctx context.Context, engineConfig EngineConfig) (EngineResult, error) {
	client := gosseract.NewClient()
	if engineConfig.TesseractLang != "" {
		if err := client.SetLanguage(engineConfig.TesseractLang); err != nil {
			_ = client.Close()
			return EngineResult{Code: 2, Phrase: err.Error()}, nil
		}
	}
	if err := client.SetWhitelist(MrzWhitelist); err != nil {
		_ = client.Close()
		return EngineResult{Code: 2, Phrase: err.Error()}, nil
	}
	for k, v := range map[string]string{"load_system_dawg": "0", "load_freq_dawg": "0"} {
		if err := client.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			log.Warn().Str("component", "MRZ_GOSSERACT").Err(err).Str("variable", k).Msg("could not set variable")
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		_ = client.Close()
		return EngineResult{Code: 2, Phrase: err.Error()}, nil
	}
	g.client = client
	return g.init(engineConfig), nil
}

func (g *GoTesseractEngine) DeInit() (EngineResult, error) {
	res := g.deInit()
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			return EngineResult{}, err
		}
		g.client = nil
	}
	return res, nil
}

func (g *GoTesseractEngine) Process(ctx context.Context, frame *Frame) (EngineResult, error) {
	if !g.initialized {
		return notInitializedResult, nil
	}
	if err := ctx.Err(); err != nil {
		return EngineResult{}, err
	}
	start := time.Now()

	img, err := g.prepare(frame)
	if err != nil {
		return EngineResult{}, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return EngineResult{}, errors.Wrap(err, "could not encode image")
	}
	if err := g.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return EngineResult{Code: 4, Phrase: err.Error()}, nil
	}

	boxes, err := g.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return EngineResult{Code: 4, Phrase: err.Error()}, nil
	}
	lines := make([]ocrLine, 0, len(boxes))
	for _, b := range boxes {
		r := b.Box
		lines = append(lines, ocrLine{
			text:       b.Word,
			confidence: b.Confidence,
			box:        boxOf(float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)),
		})
	}
	return g.result(lines, start)
}
