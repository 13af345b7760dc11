package mrzworker

import (
	"encoding/json"
	"flag"
)

// EngineConfig is serialized and handed verbatim to the engine's init call.
type EngineConfig struct {
	Debug bool `json:"-"`

	DebugLevel                    string     `json:"debug_level"`
	DebugWriteInputImageEnabled   bool       `json:"debug_write_input_image_enabled"`
	DebugInternalDataPath         string     `json:"debug_internal_data_path"`
	NumThreads                    int        `json:"num_threads"`
	GpgpuEnabled                  bool       `json:"gpgpu_enabled"`
	GpgpuWorkloadBalancingEnabled bool       `json:"gpgpu_workload_balancing_enabled"`
	SegmenterAccuracy             string     `json:"segmenter_accuracy"`
	Gamma                         float64    `json:"gamma"`
	Interpolation                 string     `json:"interpolation"`
	MinNumLines                   int        `json:"min_num_lines"`
	Roi                           [4]float64 `json:"roi"`
	MinScore                      float64    `json:"min_score"`
	BackpropagationEnabled        bool       `json:"backpropagation_enabled"`
	VerticalCheckEnabled          bool       `json:"vertical_check_enabled"`
	IELCDEnabled                  bool       `json:"ielcd_enabled"`

	AssetsFolder     string `json:"assets_folder,omitempty"`
	LicenseTokenFile string `json:"license_token_file,omitempty"`
	LicenseTokenData string `json:"license_token_data,omitempty"`

	// runtime key requests only
	HostType        string `json:"host_type,omitempty"`
	LicenseAppID    string `json:"license_app_id,omitempty"`
	LicenseAppSign  string `json:"license_app_sign,omitempty"`
	LicenseAppStore string `json:"license_app_store,omitempty"`

	// open engines only, never sent to the SDK
	TesseractLang string   `json:"-"`
	Preprocessors []string `json:"-"`
	SaveFiles     bool     `json:"-"`
}

func DefaultEngineConfig() EngineConfig {
	onX86 := !isARM()
	engineConfig := EngineConfig{
		DebugLevel:                    "info",
		DebugWriteInputImageEnabled:   false,
		DebugInternalDataPath:         ".",
		NumThreads:                    -1,
		GpgpuEnabled:                  true,
		GpgpuWorkloadBalancingEnabled: !onX86,
		SegmenterAccuracy:             "high",
		Gamma:                         -1,
		Interpolation:                 "bilinear",
		MinNumLines:                   2,
		Roi:                           [4]float64{0, 0, 0, 0},
		MinScore:                      0.0,
		BackpropagationEnabled:        onX86,
		VerticalCheckEnabled:          onX86,
		IELCDEnabled:                  onX86,
		SaveFiles:                     false,
	}
	return engineConfig
}

// JSON returns the configuration string for the engine's init call.
func (c EngineConfig) JSON() (string, error) {
	if c.Debug {
		c.DebugLevel = "verbose"
	}
	js, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(js), nil
}

type FlagFunctionEngine func()

// EngineFlags registers the engine flags of the daemons. engineConfig is
// filled once flag.Parse has run.
func EngineFlags(engineConfig *EngineConfig) FlagFunctionEngine {
	return func() {
		flag.StringVar(
			&engineConfig.AssetsFolder,
			"assets",
			engineConfig.AssetsFolder,
			"path to the assets folder of the MRZ engine",
		)
		flag.StringVar(
			&engineConfig.LicenseTokenFile,
			"tokenfile",
			engineConfig.LicenseTokenFile,
			"path to the license token file",
		)
		flag.StringVar(
			&engineConfig.LicenseTokenData,
			"tokendata",
			engineConfig.LicenseTokenData,
			"base64 license token data",
		)
		flag.StringVar(
			&engineConfig.TesseractLang,
			"tesseract_lang",
			engineConfig.TesseractLang,
			"language passed to tesseract (open engines only), eg: mrz or eng",
		)
		flag.BoolVar(
			&engineConfig.SaveFiles,
			"save_files",
			false,
			"if set there will be no clean up of temporary files",
		)
	}
}
