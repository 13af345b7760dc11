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
// cli-benchmark --positive <path> --negative <path> [--loops 100] [--rate 0.2]
//   [--assets <folder>] [--tokenfile <path>] [--tokendata <base64>] [--engine ultimate]

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	mrzworker.LoadEnv()

	cfg, err := mrzworker.NewBenchmarkFromArgs(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_BENCHMARK").Msg("invalid arguments")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	engine := mrzworker.NewMrzEngine(cfg.EngineType)
	if _, err := mrzworker.RunBenchmark(context.Background(), cfg, engine, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_BENCHMARK").Msg("benchmark failed")
	}
}
