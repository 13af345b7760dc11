package mrzworker

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"github.com/xf0e/open-mrz/ultmrz"
)

// the SDK engine is process global
var ultimateMu deadlock.Mutex

// UltimateEngine calls the ultimateMRZ SDK through the ultmrz binding.
type UltimateEngine struct{}

func (u *UltimateEngine) Name() string {
	return "ultimate"
}

func fromSdk(r ultmrz.Result) EngineResult {
	return EngineResult{Code: r.Code, Phrase: r.Phrase, JSON: r.JSON, NumZones: r.NumZones}
}

func (u *UltimateEngine) Init(ctx context.Context, engineConfig EngineConfig) (EngineResult, error) {
	js, err := engineConfig.JSON()
	if err != nil {
		return EngineResult{}, err
	}
	log.Debug().Str("component", "MRZ_ENGINE").Str("config", js).Bool("sdk_available", ultmrz.Available).
		Msg("initializing ultimateMRZ engine")

	ultimateMu.Lock()
	defer ultimateMu.Unlock()
	return fromSdk(ultmrz.Init(js)), nil
}

func (u *UltimateEngine) Process(ctx context.Context, frame *Frame) (EngineResult, error) {
	if err := ctx.Err(); err != nil {
		return EngineResult{}, err
	}
	frame.mu.Lock()
	defer frame.mu.Unlock()
	if frame.released {
		return EngineResult{Code: 1, Phrase: "frame already released"}, nil
	}

	ultimateMu.Lock()
	defer ultimateMu.Unlock()
	return fromSdk(ultmrz.Process(frame.Type, frame.Pix, frame.Width, frame.Height, frame.Stride, frame.Orientation)), nil
}

func (u *UltimateEngine) DeInit() (EngineResult, error) {
	ultimateMu.Lock()
	defer ultimateMu.Unlock()
	return fromSdk(ultmrz.DeInit()), nil
}

func (u *UltimateEngine) RequestRuntimeLicenseKey(raw bool) (EngineResult, error) {
	ultimateMu.Lock()
	defer ultimateMu.Unlock()
	return fromSdk(ultmrz.RequestRuntimeLicenseKey(raw)), nil
}
