package mrzworker

import (
	"bytes"
	"context"
	"image"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widthCountingEngine struct {
	MockEngine
	widths map[int]int
}

func (w *widthCountingEngine) Process(ctx context.Context, frame *Frame) (EngineResult, error) {
	if w.widths == nil {
		w.widths = make(map[int]int)
	}
	w.widths[frame.Width]++
	return w.MockEngine.Process(ctx, frame)
}

func TestBenchmarkIndices(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	count := func(indices []bool) int {
		n := 0
		for _, positive := range indices {
			if positive {
				n++
			}
		}
		return n
	}

	indices := benchmarkIndices(100, 0.2, rnd)
	assert.Len(t, indices, 100)
	assert.Equal(t, 20, count(indices))

	assert.Equal(t, 1, count(benchmarkIndices(10, 0, rnd)), "at least one positive")
	assert.Equal(t, 1, count(benchmarkIndices(1, 0.5, rnd)))
	assert.Equal(t, 7, count(benchmarkIndices(7, 1, rnd)))
}

func TestNewBenchmarkFromArgs(t *testing.T) {
	cfg, err := NewBenchmarkFromArgs([]string{"--positive", "p.jpg", "--negative", "n.jpg"})
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Loops)
	assert.Equal(t, 0.2, cfg.Rate)
	assert.Equal(t, EngineUltimate, cfg.EngineType)

	cfg, err = NewBenchmarkFromArgs([]string{"--positive", "p.jpg", "--negative", "n.jpg",
		"--loops", "5", "--rate", "1.0", "--engine", "mock", "--assets", "assets"})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Loops)
	assert.Equal(t, 1.0, cfg.Rate)
	assert.Equal(t, EngineMock, cfg.EngineType)
	assert.Equal(t, "assets", cfg.EngineConfig().AssetsFolder)

	tests := []struct {
		args []string
		err  error
	}{
		{[]string{"--negative", "n.jpg"}, ErrPositiveRequired},
		{[]string{"--positive", "p.jpg"}, ErrNegativeRequired},
		{[]string{"--positive", "p", "--negative", "n", "--loops", "0"}, ErrInvalidLoops},
		{[]string{"--positive", "p", "--negative", "n", "--loops", "many"}, ErrInvalidLoops},
		{[]string{"--positive", "p", "--negative", "n", "--rate", "1.5"}, ErrInvalidRate},
		{[]string{"--positive", "p", "--negative", "n", "--rate", "-0.1"}, ErrInvalidRate},
		{[]string{"--positive"}, ErrOddArgCount},
	}
	for _, tt := range tests {
		_, err := NewBenchmarkFromArgs(tt.args)
		assert.True(t, errors.Is(err, tt.err), "%v: got %v", tt.args, err)
	}
}

func TestRunBenchmark(t *testing.T) {
	cfg := DefaultBenchmarkConfig()
	cfg.PositivePath = writePNG(t, t.TempDir(), image.NewGray(image.Rect(0, 0, 64, 32)))
	cfg.NegativePath = writePNG(t, t.TempDir(), image.NewGray(image.Rect(0, 0, 32, 16)))
	cfg.Loops = 10
	cfg.Rate = 0.3

	engine := &widthCountingEngine{}
	var out bytes.Buffer
	report, err := RunBenchmark(context.Background(), cfg, engine, &out)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Loops)
	assert.Equal(t, 3, report.Positives)
	assert.Equal(t, 3, engine.widths[64])
	assert.Equal(t, 7, engine.widths[32])
	assert.False(t, engine.initialized, "engine must be de-initialized")

	result, err := DecodeResult(report.PositiveResult)
	require.NoError(t, err)
	require.Len(t, result.Zones, 1)
	assert.Equal(t, MockEngineLines[0], result.Zones[0].Lines[0].Text)
	assert.Equal(t, report.PositiveResult+"\n", out.String())
}

func TestRunBenchmarkMissingImage(t *testing.T) {
	cfg := DefaultBenchmarkConfig()
	cfg.PositivePath = "does-not-exist.png"
	cfg.NegativePath = "does-not-exist.png"
	engine := &recordingEngine{}
	_, err := RunBenchmark(context.Background(), cfg, engine, &bytes.Buffer{})
	assert.Error(t, err)
	assert.Empty(t, engine.calls, "engine is not touched when images are missing")
}
