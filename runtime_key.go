package mrzworker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const HostTypeAndroidApp = "android-app"

var HostTypes = []string{"aws-instance", "aws-byol", "azure-instance", "azure-byol", HostTypeAndroidApp}

var ErrNoRuntimeKey = errors.New("engine can not request runtime license keys")

// RuntimeKeyConfig holds the arguments of the runtime key CLI.
type RuntimeKeyConfig struct {
	JSON         bool
	AssetsFolder string
	HostType     string
	AppID        string
	AppSign      string
	AppStore     string
	EngineType   MrzEngineType
}

// NewRuntimeKeyFromArgs parses the command line of the runtime key CLI.
// The app arguments are only read for android apps.
func NewRuntimeKeyFromArgs(args []string) (RuntimeKeyConfig, error) {
	cfg := RuntimeKeyConfig{JSON: true, EngineType: EngineUltimate}
	values, err := ParseArgs(args)
	if err != nil {
		return cfg, err
	}

	cfg.JSON = boolArg(values, "--json", true)
	cfg.AssetsFolder = argOrEnv(values, "--assets", EnvAssets)

	if hostType, ok := values["--type"]; ok {
		if !validHostType(hostType) {
			return cfg, errors.Errorf("invalid --type %q, expected one of %s", hostType, strings.Join(HostTypes, ", "))
		}
		cfg.HostType = hostType
	}

	if cfg.HostType == HostTypeAndroidApp {
		for _, key := range []string{"--appid", "--appsign", "--appstore"} {
			if values[key] == "" {
				return cfg, errors.Errorf("%s is required", key)
			}
		}
		cfg.AppID = values["--appid"]
		cfg.AppSign = strings.ReplaceAll(values["--appsign"], ":", "")
		cfg.AppStore = values["--appstore"]
		if cfg.AppSign == "" {
			return cfg, errors.New("--appsign is empty")
		}
	}

	if engine, ok := values["--engine"]; ok {
		engineType, err := ParseMrzEngineType(engine)
		if err != nil {
			return cfg, err
		}
		cfg.EngineType = engineType
	}
	return cfg, nil
}

func validHostType(hostType string) bool {
	for _, h := range HostTypes {
		if h == hostType {
			return true
		}
	}
	return false
}

// EngineConfig returns the init configuration. Only the key request fields
// and the assets folder are of interest to the engine here.
func (c RuntimeKeyConfig) EngineConfig() EngineConfig {
	engineConfig := DefaultEngineConfig()
	engineConfig.AssetsFolder = c.AssetsFolder
	engineConfig.HostType = c.HostType
	engineConfig.LicenseAppID = c.AppID
	engineConfig.LicenseAppSign = c.AppSign
	engineConfig.LicenseAppStore = c.AppStore
	return engineConfig
}

// RunRuntimeKey initializes the engine and prints the runtime license key.
func RunRuntimeKey(ctx context.Context, cfg RuntimeKeyConfig, engine MrzEngine, stdout io.Writer) (err error) {
	if engine == nil {
		return errors.Errorf("no engine for %s", cfg.EngineType)
	}
	requester, ok := engine.(RuntimeKeyRequester)
	if !ok {
		return errors.Wrap(ErrNoRuntimeKey, engine.Name())
	}

	res, initErr := engine.Init(ctx, cfg.EngineConfig())
	if err := CheckResult("init", res, initErr); err != nil {
		return err
	}
	defer func() {
		res, deInitErr := engine.DeInit()
		if deInitErr := CheckResult("deInit", res, deInitErr); deInitErr != nil && err == nil {
			err = deInitErr
		}
	}()

	res, err = requester.RequestRuntimeLicenseKey(!cfg.JSON)
	if err := CheckResult("requestRuntimeLicenseKey", res, err); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(stdout, res.JSON); err != nil {
		return errors.Wrap(err, "could not write runtime key")
	}
	return nil
}
