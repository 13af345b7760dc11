package mrzworker

import (
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	EnvAssets    = "MRZ_ASSETS"
	EnvTokenFile = "MRZ_TOKEN_FILE"
	EnvTokenData = "MRZ_TOKEN_DATA"
)

// RecognizerConfig holds the arguments of the sample CLIs.
type RecognizerConfig struct {
	ImagePath     string
	AssetsFolder  string
	TokenFile     string
	TokenData     string
	Backprop      bool
	VCheck        bool
	IELCD         bool
	EngineType    MrzEngineType
	Parse         bool
	ExifTranspose bool
	Debug         bool
}

func isARM() bool {
	return strings.HasPrefix(runtime.GOARCH, "arm")
}

func DefaultRecognizerConfig() RecognizerConfig {
	// backprop, vertical check and IELCD are slow on ARM devices
	onX86 := !isARM()
	return RecognizerConfig{
		Backprop:   onX86,
		VCheck:     onX86,
		IELCD:      onX86,
		EngineType: EngineUltimate,
	}
}

// LoadEnv loads a .env file from the working directory when there is one.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		log.Warn().Str("component", "MRZ_CONFIG").Err(err).Msg("could not load .env file")
	}
}

// NewRecognizerConfig builds the configuration from parsed "--key value" arguments.
// Assets and license tokens fall back to the environment.
func NewRecognizerConfig(values map[string]string) (RecognizerConfig, error) {
	cfg := DefaultRecognizerConfig()

	imagePath, ok := values["--image"]
	if !ok || imagePath == "" {
		return cfg, ErrImageRequired
	}
	cfg.ImagePath = imagePath

	cfg.AssetsFolder = argOrEnv(values, "--assets", EnvAssets)
	cfg.TokenFile = argOrEnv(values, "--tokenfile", EnvTokenFile)
	cfg.TokenData = argOrEnv(values, "--tokendata", EnvTokenData)
	if runtime.GOOS == "windows" {
		cfg.AssetsFolder = strings.ReplaceAll(cfg.AssetsFolder, `\`, "/")
		cfg.TokenFile = strings.ReplaceAll(cfg.TokenFile, `\`, "/")
	}

	cfg.Backprop = boolArg(values, "--backprop", cfg.Backprop)
	cfg.VCheck = boolArg(values, "--vcheck", cfg.VCheck)
	cfg.IELCD = boolArg(values, "--ielcd", cfg.IELCD)
	cfg.Parse = boolArg(values, "--parse", false)
	cfg.ExifTranspose = boolArg(values, "--exif_transpose", false)
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

// CheckImage makes sure the image path points to a regular file.
func (c RecognizerConfig) CheckImage() error {
	info, err := os.Stat(c.ImagePath)
	if err != nil {
		return errors.Wrap(ErrImageNotFound, c.ImagePath)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrImageNotFound, "%s is a directory", c.ImagePath)
	}
	return nil
}

// EngineConfig returns the engine configuration matching the arguments.
func (c RecognizerConfig) EngineConfig() EngineConfig {
	engineConfig := DefaultEngineConfig()
	engineConfig.Debug = c.Debug
	engineConfig.AssetsFolder = c.AssetsFolder
	engineConfig.LicenseTokenFile = c.TokenFile
	engineConfig.LicenseTokenData = c.TokenData
	engineConfig.BackpropagationEnabled = c.Backprop
	engineConfig.VerticalCheckEnabled = c.VCheck
	engineConfig.IELCDEnabled = c.IELCD
	return engineConfig
}

func argOrEnv(values map[string]string, key string, env string) string {
	if v, ok := values[key]; ok {
		return v
	}
	return os.Getenv(env)
}
