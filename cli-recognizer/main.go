package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xf0e/open-mrz"
)

// Usage:
// cli-recognizer --image <path> [--assets <folder>] [--tokenfile <path>] [--tokendata <base64>]
//   [--backprop true] [--vcheck true] [--ielcd true] [--engine ultimate|tesseract|go_tesseract|mock]
//   [--parse true] [--exif_transpose true] [--debug true]

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	mrzworker.LoadEnv()

	cfg, err := mrzworker.NewRecognizerFromArgs(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_CLI").Msg("invalid arguments")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	engine := mrzworker.NewMrzEngine(cfg.EngineType)
	if err := mrzworker.RunRecognizer(context.Background(), cfg, engine, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_CLI").Msg("recognition failed")
	}
}
