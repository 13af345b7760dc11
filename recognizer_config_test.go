package mrzworker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecognizerConfigImageRequired(t *testing.T) {
	_, err := NewRecognizerConfig(map[string]string{"--assets": "x"})
	assert.Equal(t, ErrImageRequired, err)

	_, err = NewRecognizerConfig(map[string]string{"--image": ""})
	assert.Equal(t, ErrImageRequired, err)
}

func TestNewRecognizerConfigDefaults(t *testing.T) {
	cfg, err := NewRecognizerConfig(map[string]string{"--image": "a.png"})
	require.NoError(t, err)
	def := DefaultRecognizerConfig()
	assert.Equal(t, def.Backprop, cfg.Backprop)
	assert.Equal(t, def.VCheck, cfg.VCheck)
	assert.Equal(t, def.IELCD, cfg.IELCD)
	assert.Equal(t, EngineUltimate, cfg.EngineType)
	assert.False(t, cfg.Parse)
}

func TestNewRecognizerConfigValues(t *testing.T) {
	cfg, err := NewRecognizerConfig(map[string]string{
		"--image":    "a.png",
		"--backprop": "TRUE",
		"--vcheck":   "no",
		"--engine":   "mock",
		"--parse":    "true",
	})
	require.NoError(t, err)
	assert.True(t, cfg.Backprop)
	assert.False(t, cfg.VCheck)
	assert.Equal(t, EngineMock, cfg.EngineType)
	assert.True(t, cfg.Parse)

	_, err = NewRecognizerConfig(map[string]string{"--image": "a.png", "--engine": "nope"})
	assert.Error(t, err)
}

func TestNewRecognizerConfigEnvFallback(t *testing.T) {
	t.Setenv(EnvAssets, "/opt/mrz/assets")
	t.Setenv(EnvTokenData, "ENVTOKEN")

	cfg, err := NewRecognizerConfig(map[string]string{"--image": "a.png", "--tokendata": "ARGTOKEN"})
	require.NoError(t, err)
	assert.Equal(t, "/opt/mrz/assets", cfg.AssetsFolder)
	assert.Equal(t, "ARGTOKEN", cfg.TokenData)
}

func TestRecognizerConfigCheckImage(t *testing.T) {
	dir := t.TempDir()
	cfg := RecognizerConfig{ImagePath: filepath.Join(dir, "missing.jpg")}
	err := cfg.CheckImage()
	assert.True(t, errors.Is(err, ErrImageNotFound))

	cfg.ImagePath = dir
	assert.True(t, errors.Is(cfg.CheckImage(), ErrImageNotFound))

	cfg.ImagePath = filepath.Join(dir, "present.jpg")
	require.NoError(t, os.WriteFile(cfg.ImagePath, []byte("x"), 0600))
	assert.NoError(t, cfg.CheckImage())
}
