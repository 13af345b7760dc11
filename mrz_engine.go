package mrzworker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type MrzEngineType int

const (
	EngineUltimate = MrzEngineType(iota)
	EngineTesseract
	EngineGoTesseract
	EngineMock
)

// EngineResult is what every engine call returns. Code 0 means success.
type EngineResult struct {
	Code     int    `json:"code"`
	Phrase   string `json:"phrase"`
	JSON     string `json:"json,omitempty"`
	NumZones int    `json:"num_zones"`
}

func (r EngineResult) IsOK() bool {
	return r.Code == 0
}

func okResult(js string, numZones int) EngineResult {
	return EngineResult{Code: 0, Phrase: "OK", JSON: js, NumZones: numZones}
}

// MrzEngine is the init/process/deInit contract of an MRZ recognition engine.
// The returned error is reserved for failures outside the engine; engine
// failures are reported through a non-zero EngineResult.Code.
type MrzEngine interface {
	Name() string
	Init(ctx context.Context, engineConfig EngineConfig) (EngineResult, error)
	Process(ctx context.Context, frame *Frame) (EngineResult, error)
	DeInit() (EngineResult, error)
}

// RuntimeKeyRequester is implemented by engines able to build a runtime license key.
type RuntimeKeyRequester interface {
	RequestRuntimeLicenseKey(raw bool) (EngineResult, error)
}

// EngineError carries the failed operation and the engine's own diagnostic.
type EngineError struct {
	Operation string
	Code      int
	Phrase    string
	JSON      string
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: failed -> code %d: %s", e.Operation, e.Code, e.Phrase)
	if e.JSON != "" {
		msg += " " + e.JSON
	}
	return msg
}

// CheckResult turns a failed engine result into an *EngineError.
func CheckResult(operation string, result EngineResult, err error) error {
	if err != nil {
		return errors.Wrap(err, operation)
	}
	if !result.IsOK() {
		return &EngineError{
			Operation: operation,
			Code:      result.Code,
			Phrase:    result.Phrase,
			JSON:      result.JSON,
		}
	}
	log.Info().Str("component", "MRZ_ENGINE").Str("operation", operation).
		Int("num_zones", result.NumZones).
		Msgf("%s: OK -> %s", operation, result.JSON)
	return nil
}

func NewMrzEngine(engineType MrzEngineType) MrzEngine {
	switch engineType {
	case EngineUltimate:
		return &UltimateEngine{}
	case EngineTesseract:
		return &TesseractEngine{}
	case EngineGoTesseract:
		return &GoTesseractEngine{}
	case EngineMock:
		return &MockEngine{}
	}
	return nil
}

func (e MrzEngineType) String() string {
	switch e {
	case EngineUltimate:
		return "ENGINE_ULTIMATE"
	case EngineTesseract:
		return "ENGINE_TESSERACT"
	case EngineGoTesseract:
		return "ENGINE_GO_TESSERACT"
	case EngineMock:
		return "ENGINE_MOCK"
	}
	return ""
}

// ParseMrzEngineType accepts the engine names case-insensitively.
func ParseMrzEngineType(s string) (MrzEngineType, error) {
	switch strings.ToUpper(s) {
	case "ULTIMATE", "ULTIMATEMRZ":
		return EngineUltimate, nil
	case "TESSERACT":
		return EngineTesseract, nil
	case "GO_TESSERACT", "GOSSERACT":
		return EngineGoTesseract, nil
	case "MOCK":
		return EngineMock, nil
	}
	return EngineMock, errors.Errorf("unknown engine %q", s)
}

func (e MrzEngineType) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.TrimPrefix(e.String(), "ENGINE_"))
}

func (e *MrzEngineType) UnmarshalJSON(b []byte) (err error) {

	var engineTypeStr string

	if err := json.Unmarshal(b, &engineTypeStr); err == nil {
		engineType, err := ParseMrzEngineType(engineTypeStr)
		if err != nil {
			log.Warn().Str("component", "MRZ_ENGINE").Str("engineString", engineTypeStr).
				Msg("Unexpected MrzEngineType json")
		}
		*e = engineType
		return nil
	}

	// not a string .. maybe it's an int

	var engineTypeInt int
	if err := json.Unmarshal(b, &engineTypeInt); err == nil {
		*e = MrzEngineType(engineTypeInt)
		return nil
	} else {
		return err
	}

}
