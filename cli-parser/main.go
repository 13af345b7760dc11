package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xf0e/open-mrz"
)

func init() {
	zerolog.TimeFieldFormat = time.StampMilli
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "\nUsage:\ncli-parser <path-to-file-containing mrz-lines>")
		os.Exit(2)
	}
	if err := mrzworker.RunParser(os.Args[1], os.Stdout); err != nil {
		log.Fatal().Err(err).Str("component", "MRZ_PARSER").Msg("could not parse MRZ")
	}
}
