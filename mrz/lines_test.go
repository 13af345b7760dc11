package mrz

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("ABC\r\nDEF\r\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "DEF"}, lines)

	lines, err = ReadLines(strings.NewReader("ABC\nDEF"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "DEF"}, lines)

	lines, err = ReadLines(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "td3.txt")
	require.NoError(t, os.WriteFile(path, []byte("P<UTO\r\nL898\r\n"), 0o600))
	lines, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"P<UTO", "L898"}, lines)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
