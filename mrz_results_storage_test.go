package mrzworker

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *ResultStorage {
	t.Helper()
	s, err := NewResultStorage(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestResultStoragePutGet(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Put(MrzResponse{ID: "a", Status: StatusProcessing}))
	resp, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, MrzResponse{ID: "a", Status: StatusProcessing}, resp)

	done := MrzResponse{ID: "a", Status: StatusDone, Result: json.RawMessage(`{"zones":[]}`)}
	require.NoError(t, s.Put(done))
	resp, err = s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, resp.Status)
	assert.JSONEq(t, `{"zones":[]}`, string(resp.Result))
	assert.Empty(t, resp.Error)

	require.NoError(t, s.Put(MrzResponse{ID: "b", Status: StatusError, Error: "process: failed"}))
	resp, err = s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "process: failed", resp.Error)
	assert.Nil(t, resp.Result)

	assert.Error(t, s.Put(MrzResponse{Status: StatusDone}))
}

func TestResultStorageDeleteOlderThan(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Put(MrzResponse{ID: "old", Status: StatusDone}))
	cutoff := time.Now()
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.Put(MrzResponse{ID: "new", Status: StatusDone}))

	n, err := s.DeleteOlderThan(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get("old")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Get("new")
	assert.NoError(t, err)
}

func TestResultStorageReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := NewResultStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(MrzResponse{ID: "kept", Status: StatusDone}))
	require.NoError(t, s.Close())

	s, err = NewResultStorage(path)
	require.NoError(t, err)
	defer s.Close()
	resp, err := s.Get("kept")
	require.NoError(t, err)
	assert.Equal(t, StatusDone, resp.Status)
}
