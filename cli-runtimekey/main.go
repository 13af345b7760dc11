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
// cli-runtimekey [--json true] [--assets <folder>] [--type aws-instance|aws-byol|azure-instance|azure-byol|android-app]
//   [--appid <id>] [--appsign <hash>] [--appstore <stores>]

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	mrzworker.LoadEnv()

	cfg, err := mrzworker.NewRuntimeKeyFromArgs(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_RUNTIME_KEY").Msg("invalid arguments")
	}

	engine := mrzworker.NewMrzEngine(cfg.EngineType)
	if err := mrzworker.RunRuntimeKey(context.Background(), cfg, engine, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_RUNTIME_KEY").Msg("could not request runtime key")
	}
}
