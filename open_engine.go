package mrzworker

import (
	"encoding/json"
	"image"
	"time"

	"github.com/pkg/errors"
)

// MrzWhitelist is the character set of machine readable zones.
const MrzWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789<"

// ocrLine is a text line as reported by an open OCR engine.
type ocrLine struct {
	text       string
	confidence float64
	box        [8]float64
}

// openEngine is the state shared by the engines running Tesseract.
type openEngine struct {
	config        EngineConfig
	preprocessors []Preprocessor
	initialized   bool
	frameID       int
}

var notInitializedResult = EngineResult{Code: 1, Phrase: "engine not initialized"}

func (o *openEngine) init(engineConfig EngineConfig) EngineResult {
	chain, err := preprocessorChain(engineConfig)
	if err != nil {
		return EngineResult{Code: 2, Phrase: err.Error()}
	}
	o.config = engineConfig
	o.preprocessors = chain
	o.initialized = true
	o.frameID = 0
	return okResult("", 0)
}

func (o *openEngine) deInit() EngineResult {
	if !o.initialized {
		return notInitializedResult
	}
	o.initialized = false
	return okResult("", 0)
}

// prepare turns the frame upright and runs the preprocessors.
func (o *openEngine) prepare(frame *Frame) (image.Image, error) {
	img, err := frame.Image()
	if err != nil {
		return nil, err
	}
	img = ApplyOrientation(img, frame.Orientation)
	for _, p := range o.preprocessors {
		img = p.preprocess(img)
	}
	return img, nil
}

// result groups the OCR lines into MRZ zones and builds the engine JSON.
func (o *openEngine) result(lines []ocrLine, start time.Time) (EngineResult, error) {
	raw := make([]string, 0, len(lines))
	for _, l := range lines {
		raw = append(raw, l.text)
	}

	result := MrzResult{FrameID: o.frameID}
	for _, group := range extractMrzGroups(raw) {
		zone := MrzZone{}
		for _, c := range group {
			l := lines[c.index]
			zone.Lines = append(zone.Lines, MrzLine{Confidence: l.confidence, Text: c.text, WarpedBox: l.box})
		}
		zone.WarpedBox = unionBox(zone.Lines)
		result.Zones = append(result.Zones, zone)
	}
	result.Duration = int(time.Since(start).Milliseconds())
	o.frameID++

	if len(result.Zones) == 0 {
		return okResult("", 0), nil
	}
	js, err := json.Marshal(result)
	if err != nil {
		return EngineResult{}, errors.Wrap(err, "could not encode result")
	}
	return okResult(string(js), len(result.Zones)), nil
}
