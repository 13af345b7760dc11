package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xf0e/open-mrz"
)

// This assumes that there is a worker running, unless every request asks for inplace_decode
// To test it:
// curl -X POST -H "Content-Type: application/json" -d '{"img_url":"http://localhost:8081/img","engine":"ultimate","parse":true}' http://localhost:8080/mrz

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	// Default level is info, unless debug flag is present
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	mrzworker.LoadEnv()

	var (
		httpPort      uint
		debug         bool
		dbPath        string
		resultMaxAge  time.Duration
		resManager    bool
		engineConfig  = mrzworker.DefaultEngineConfig()
		engineFlagsFn = mrzworker.EngineFlags(&engineConfig)
	)
	flagFunc := func() {
		flag.UintVar(
			&httpPort,
			"http_port",
			8080,
			"The http port to listen on, eg, 8081",
		)
		flag.BoolVar(
			&debug,
			"debug",
			false,
			"sets debug flag, program will print more messages",
		)
		flag.StringVar(
			&dbPath,
			"db_path",
			"",
			"sqlite database for deferred results, deferred requests are refused when empty",
		)
		flag.DurationVar(
			&resultMaxAge,
			"result_max_age",
			24*time.Hour,
			"deferred results older than this are deleted",
		)
		flag.BoolVar(
			&resManager,
			"resman",
			true,
			"poll the RabbitMQ API and refuse requests when the queue or the broker is overloaded",
		)
		engineFlagsFn()
	}

	rabbitConfig := mrzworker.DefaultConfigFlagsOverride(flagFunc)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	engineConfig.Debug = debug

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var storage *mrzworker.ResultStorage
	if dbPath != "" {
		var err error
		if storage, err = mrzworker.NewResultStorage(dbPath); err != nil {
			log.Fatal().Err(err).Str("component", "MRZ_HTTP").Str("db_path", dbPath).
				Msg("could not open result storage")
		}
		defer storage.Close()
		go storage.RunJanitor(ctx, resultMaxAge, time.Hour)
	}

	sessions := mrzworker.NewSessionRegistry(engineConfig)
	defer sessions.Close()

	mrzHandler := mrzworker.NewMrzHttpHandler(rabbitConfig, sessions, storage)

	endpoints := map[string]string{
		"/mrz":             "POST a JSON request with img_url, img_base64 or img_bytes",
		"/mrz-file-upload": "POST multipart/related with a JSON part and an image part",
		"/mrz-status":      `POST {"request_id": "..."} to fetch a deferred result`,
		"/metrics":         "prometheus metrics",
	}
	order := []string{"/mrz", "/mrz-file-upload", "/mrz-status", "/metrics"}
	landingPage := mrzworker.GenerateLandingPage(endpoints, order)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, landingPage)
	})
	mux.Handle("/mrz", mrzworker.InstrumentHandler("mrz", mrzHandler))
	mux.Handle("/mrz-file-upload", mrzworker.InstrumentHandler("mrz-file-upload",
		mrzworker.NewMrzHttpMultipartHandler(mrzHandler)))
	mux.Handle("/mrz-status", mrzworker.NewMrzHttpStatusHandler(storage))
	// expose metrics for prometheus
	mux.Handle("/metrics", promhttp.Handler())

	listenAddr := fmt.Sprintf(":%d", httpPort)
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}

	if resManager {
		// decides in the background if we have resources for incoming requests
		go mrzworker.SetResManagerState(ctx, rabbitConfig, time.Second)
	} else {
		mrzworker.SetServiceCanAccept(true)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-signals
		log.Info().Str("component", "MRZ_HTTP").Str("signal", sig.String()).
			Msg("Caught signal to terminate, will not serve any further requests. Once the pending " +
				"requests are done, http daemon will terminate.")
		mrzworker.StopAccepting()
		for mrzworker.PendingRequests() > 0 {
			time.Sleep(1 * time.Second)
		}
		log.Info().Str("component", "MRZ_HTTP").
			Msg("No pending requests left. open-mrz http daemon will now exit. You may stop workers now")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Str("component", "MRZ_HTTP").Msg("http server shutdown failed")
		}
	}()

	log.Info().Str("component", "MRZ_HTTP").Str("listenAddr", listenAddr).Msg("Starting listener...")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Str("component", "MRZ_HTTP").Caller().Msg("cli_http has failed to start")
	}
}
