package main

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xf0e/open-mrz"
)

// This assumes that there is a rabbit mq running
// To test it, fire up cli-httpd and send it a curl request

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	// Default level is info, unless debug flag is present
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	mrzworker.LoadEnv()

	noOpFlagFuncWorker := mrzworker.NoOpFlagFunctionWorker()
	workerConfig, err := mrzworker.DefaultConfigFlagsWorkerOverride(noOpFlagFuncWorker)
	if err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_WORKER").
			Msg("error getting arguments")
	}
	if workerConfig.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Debug().Str("component", "MRZ_WORKER").
		Str("amqp_uri", mrzworker.StripPasswordFromAmqpURI(workerConfig.AmqpURI)).
		Int("prefetch", workerConfig.Prefetch).
		Strs("preprocessors", workerConfig.EngineConfig.Preprocessors).
		Msg("parameter list of workerConfig")

	// engines stay initialized across reconnects
	sessions := mrzworker.NewSessionRegistry(workerConfig.EngineConfig)
	defer sessions.Close()

	// infinite loop, since sometimes worker <-> rabbitmq connection gets broken
	for {
		log.Info().
			Str("component", "MRZ_WORKER").
			Msg("Creating new MRZ Worker")

		mrzWorker, err := mrzworker.NewMrzRpcWorker(workerConfig, sessions)
		if err != nil {
			log.Fatal().Err(err).Str("component", "MRZ_WORKER").
				Msg("Could not create rpc worker")
		}

		if err := mrzWorker.Run(); err != nil {
			log.Error().Err(err).Str("component", "MRZ_WORKER").
				Msg("Error running worker, retrying in 5 seconds")
			time.Sleep(5 * time.Second)
			continue
		}

		// this happens when connection is closed
		err = <-mrzWorker.Done
		log.Error().
			Str("component", "MRZ_WORKER").Err(err).
			Msg("MRZ Worker failed with error")
	}
}
