package mrzworker

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xf0e/open-mrz/ultmrz"
)

func testFrame(t *testing.T) *Frame {
	frame, err := NewFrame(ultmrz.ImageTypeY, make([]byte, 64*32), 64, 32, 0, 1)
	require.NoError(t, err)
	return frame
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	engine := &recordingEngine{}
	session, err := NewSession(ctx, engine, DefaultEngineConfig())
	require.NoError(t, err)

	zonesBefore := testutil.ToFloat64(zonesTotal.WithLabelValues("mock"))
	js, err := session.Recognize(ctx, testFrame(t))
	require.NoError(t, err)
	assert.NotEmpty(t, js)
	assert.Equal(t, zonesBefore+1, testutil.ToFloat64(zonesTotal.WithLabelValues("mock")))

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	assert.Equal(t, []string{"init", "process", "deInit"}, engine.calls)

	_, err = session.Recognize(ctx, testFrame(t))
	assert.Equal(t, ErrSessionClosed, err)
}

func TestSessionInitFailure(t *testing.T) {
	engine := NewMrzEngine(EngineUltimate)
	if ultmrz.Available {
		t.Skip("ultimateMRZ SDK is linked in")
	}
	_, err := NewSession(context.Background(), engine, DefaultEngineConfig())
	var engineErr *EngineError
	require.True(t, errors.As(err, &engineErr))
	assert.Equal(t, "init", engineErr.Operation)

	_, err = NewSession(context.Background(), nil, DefaultEngineConfig())
	assert.Error(t, err)
}

func TestSessionRecognizeConcurrent(t *testing.T) {
	ctx := context.Background()
	session, err := NewSession(ctx, &MockEngine{}, DefaultEngineConfig())
	require.NoError(t, err)
	defer session.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frame, err := NewFrame(ultmrz.ImageTypeY, make([]byte, 16), 4, 4, 0, 1)
			if err != nil {
				errs <- err
				return
			}
			_, err = session.Recognize(ctx, frame)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 8, session.Engine().(*MockEngine).frameID)
}

func TestSessionRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewSessionRegistry(DefaultEngineConfig())
	created := 0
	registry.newEngine = func(engineType MrzEngineType) MrzEngine {
		created++
		return NewMrzEngine(engineType)
	}

	first, err := registry.Session(ctx, EngineMock)
	require.NoError(t, err)
	second, err := registry.Session(ctx, EngineMock)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, created)

	_, err = registry.Session(ctx, MrzEngineType(99))
	assert.Error(t, err)

	require.NoError(t, registry.Close())
	_, err = first.Recognize(ctx, testFrame(t))
	assert.Equal(t, ErrSessionClosed, err)

	third, err := registry.Session(ctx, EngineMock)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	require.NoError(t, registry.Close())
}
