package mrzworker

import (
	"context"
	"encoding/json"
	"time"
)

var MockEngineLines = []string{
	"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
	"L898902C36UTO7408122F1204159ZE184226B<<<<<10",
}

// MockEngine always finds the same passport zone.
type MockEngine struct {
	initialized bool
	frameID     int
}

func (m *MockEngine) Name() string {
	return "mock"
}

func (m *MockEngine) Init(ctx context.Context, engineConfig EngineConfig) (EngineResult, error) {
	m.initialized = true
	return okResult("", 0), nil
}

func (m *MockEngine) Process(ctx context.Context, frame *Frame) (EngineResult, error) {
	if !m.initialized {
		return EngineResult{Code: 1, Phrase: "engine not initialized"}, nil
	}
	if err := ctx.Err(); err != nil {
		return EngineResult{}, err
	}
	start := time.Now()

	var lines []MrzLine
	for i, text := range MockEngineLines {
		y := float64(frame.Height) * (0.8 + 0.08*float64(i))
		lines = append(lines, MrzLine{
			Confidence: 99,
			Text:       text,
			WarpedBox:  boxOf(0, y, float64(frame.Width), y+float64(frame.Height)*0.06),
		})
	}
	result := MrzResult{
		Duration: int(time.Since(start).Milliseconds()),
		FrameID:  m.frameID,
		Zones:    []MrzZone{{Lines: lines, WarpedBox: unionBox(lines)}},
	}
	m.frameID++

	js, err := json.Marshal(result)
	if err != nil {
		return EngineResult{}, err
	}
	return okResult(string(js), 1), nil
}

func (m *MockEngine) DeInit() (EngineResult, error) {
	if !m.initialized {
		return EngineResult{Code: 1, Phrase: "engine not initialized"}, nil
	}
	m.initialized = false
	return okResult("", 0), nil
}

func (m *MockEngine) RequestRuntimeLicenseKey(raw bool) (EngineResult, error) {
	if !m.initialized {
		return EngineResult{Code: 1, Phrase: "engine not initialized"}, nil
	}
	if raw {
		return okResult("MOCK-RUNTIME-KEY", 0), nil
	}
	return okResult(`{"runtimeKey":"MOCK-RUNTIME-KEY"}`, 0), nil
}
