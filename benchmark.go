package mrzworker

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrPositiveRequired = errors.New("--positive required")
	ErrNegativeRequired = errors.New("--negative required")
	ErrInvalidLoops     = errors.New("--loops must be within [1, inf]")
	ErrInvalidRate      = errors.New("--rate must be within [0.0, 1.0]")
)

// BenchmarkConfig holds the arguments of the benchmark CLI.
type BenchmarkConfig struct {
	PositivePath string
	NegativePath string
	Loops        int
	Rate         float64
	AssetsFolder string
	TokenFile    string
	TokenData    string
	EngineType   MrzEngineType
	Debug        bool
}

func DefaultBenchmarkConfig() BenchmarkConfig {
	return BenchmarkConfig{
		Loops:      100,
		Rate:       0.2,
		EngineType: EngineUltimate,
	}
}

// NewBenchmarkFromArgs parses the command line of the benchmark CLI.
func NewBenchmarkFromArgs(args []string) (BenchmarkConfig, error) {
	cfg := DefaultBenchmarkConfig()
	values, err := ParseArgs(args)
	if err != nil {
		return cfg, err
	}

	if cfg.PositivePath = values["--positive"]; cfg.PositivePath == "" {
		return cfg, ErrPositiveRequired
	}
	if cfg.NegativePath = values["--negative"]; cfg.NegativePath == "" {
		return cfg, ErrNegativeRequired
	}

	if v, ok := values["--loops"]; ok {
		loops, err := strconv.Atoi(v)
		if err != nil || loops < 1 {
			return cfg, errors.Wrapf(ErrInvalidLoops, "got %q", v)
		}
		cfg.Loops = loops
	}
	if v, ok := values["--rate"]; ok {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate > 1 {
			return cfg, errors.Wrapf(ErrInvalidRate, "got %q", v)
		}
		cfg.Rate = rate
	}

	cfg.AssetsFolder = argOrEnv(values, "--assets", EnvAssets)
	cfg.TokenFile = argOrEnv(values, "--tokenfile", EnvTokenFile)
	cfg.TokenData = argOrEnv(values, "--tokendata", EnvTokenData)
	if runtime.GOOS == "windows" {
		cfg.AssetsFolder = strings.ReplaceAll(cfg.AssetsFolder, `\`, "/")
		cfg.TokenFile = strings.ReplaceAll(cfg.TokenFile, `\`, "/")
	}
	cfg.Debug = boolArg(values, "--debug", false)

	if engine, ok := values["--engine"]; ok {
		engineType, err := ParseMrzEngineType(engine)
		if err != nil {
			return cfg, err
		}
		cfg.EngineType = engineType
	}
	return cfg, nil
}

func (c BenchmarkConfig) EngineConfig() EngineConfig {
	engineConfig := DefaultEngineConfig()
	engineConfig.Debug = c.Debug
	engineConfig.AssetsFolder = c.AssetsFolder
	engineConfig.LicenseTokenFile = c.TokenFile
	engineConfig.LicenseTokenData = c.TokenData
	return engineConfig
}

// benchmarkIndices returns loops entries, max(loops*rate, 1) of them true
// (positive), in random order.
func benchmarkIndices(loops int, rate float64, rnd *rand.Rand) []bool {
	indices := make([]bool, loops)
	positives := int(float64(loops) * rate)
	if positives < 1 {
		positives = 1
	}
	if positives > loops {
		positives = loops
	}
	for i := 0; i < positives; i++ {
		indices[i] = true
	}
	rnd.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}

// BenchmarkReport is the outcome of RunBenchmark.
type BenchmarkReport struct {
	Loops          int
	Positives      int
	Elapsed        time.Duration
	EstimatedFps   float64
	PositiveResult string
}

// RunBenchmark initializes the engine once and processes the positive and
// negative images in a shuffled loop. The last positive result is written to out.
func RunBenchmark(ctx context.Context, cfg BenchmarkConfig, engine MrzEngine, out io.Writer) (report BenchmarkReport, err error) {
	positive, err := LoadImage(cfg.PositivePath, false)
	if err != nil {
		return report, errors.Wrap(err, "positive")
	}
	defer positive.Release()
	negative, err := LoadImage(cfg.NegativePath, false)
	if err != nil {
		return report, errors.Wrap(err, "negative")
	}
	defer negative.Release()

	indices := benchmarkIndices(cfg.Loops, cfg.Rate, rand.New(rand.NewSource(time.Now().UnixNano())))

	session, err := NewSession(ctx, engine, cfg.EngineConfig())
	if err != nil {
		return report, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	start := time.Now()
	for _, isPositive := range indices {
		frame := negative
		if isPositive {
			frame = positive
			report.Positives++
		}
		js, err := session.Recognize(ctx, frame)
		if err != nil {
			return report, err
		}
		if isPositive {
			report.PositiveResult = js
		}
	}
	report.Elapsed = time.Since(start)
	report.Loops = len(indices)

	elapsedMillis := float64(report.Elapsed) / float64(time.Millisecond)
	if elapsedMillis > 0 {
		report.EstimatedFps = 1000 / (elapsedMillis / float64(report.Loops))
	}

	log.Info().Str("component", "MRZ_BENCHMARK").Str("engine", engine.Name()).
		Int("loops", report.Loops).
		Int("positives", report.Positives).
		Msgf("Elapsed time (MRZ) = [[[ %f millis ]]]", elapsedMillis)
	log.Info().Str("component", "MRZ_BENCHMARK").
		Msgf("Estimated frame rate = %f fps", report.EstimatedFps)

	if _, err := fmt.Fprintln(out, report.PositiveResult); err != nil {
		return report, errors.Wrap(err, "could not write result")
	}
	return report, nil
}
