package mrzworker

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NewRecognizerFromArgs parses the command line of the recognizer CLI.
func NewRecognizerFromArgs(args []string) (RecognizerConfig, error) {
	values, err := ParseArgs(args)
	if err != nil {
		return RecognizerConfig{}, err
	}
	return NewRecognizerConfig(values)
}

// RunRecognizer initializes the engine, processes the image and prints the
// engine JSON to stdout. DeInit is always attempted once Init succeeded.
func RunRecognizer(ctx context.Context, cfg RecognizerConfig, engine MrzEngine, stdout io.Writer) (err error) {
	if engine == nil {
		return errors.Errorf("no engine for %s", cfg.EngineType)
	}
	if err := cfg.CheckImage(); err != nil {
		return err
	}

	engineConfig := cfg.EngineConfig()
	res, initErr := engine.Init(ctx, engineConfig)
	if err := CheckResult("init", res, initErr); err != nil {
		return err
	}
	defer func() {
		res, deInitErr := engine.DeInit()
		if deInitErr := CheckResult("deInit", res, deInitErr); deInitErr != nil && err == nil {
			err = deInitErr
		}
	}()

	js, err := processImage(ctx, cfg, engine)
	if err != nil {
		return err
	}

	if cfg.Parse {
		result, err := DecodeResult(js)
		if err != nil {
			return err
		}
		result.Enrich()
		if js, err = result.JSON(true); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(stdout, js); err != nil {
		return errors.Wrap(err, "could not write result")
	}
	return nil
}

// processImage holds the frame only for the duration of the process call.
func processImage(ctx context.Context, cfg RecognizerConfig, engine MrzEngine) (string, error) {
	frame, err := LoadImage(cfg.ImagePath, cfg.ExifTranspose)
	if err != nil {
		return "", err
	}
	defer frame.Release()

	log.Info().Str("component", "MRZ_CLI").Str("engine", engine.Name()).
		Str("image", cfg.ImagePath).
		Str("image_type", frame.Type.String()).
		Int("orientation", frame.Orientation).
		Msg("processing image")

	res, err := engine.Process(ctx, frame)
	if err := CheckResult("process", res, err); err != nil {
		return "", err
	}
	return res.JSON, nil
}
