//go:build !ultimatemrz
// +build !ultimatemrz

package ultmrz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStubReportsNotAvailable(t *testing.T) {
	assert.False(t, Available)

	for _, res := range []Result{
		Init(`{"debug_level":"info"}`),
		Process(ImageTypeRGB24, []byte{1, 2, 3}, 1, 1, 0, 1),
		RequestRuntimeLicenseKey(true),
		DeInit(),
	} {
		assert.False(t, res.IsOK())
		assert.Equal(t, CodeNotAvailable, res.Code)
		assert.Equal(t, "ultimateMRZ SDK binding not compiled in", res.Phrase)
	}
	assert.Equal(t, 1, ExifOrientation([]byte{0xff, 0xd8}))
}

func TestImageTypeValues(t *testing.T) {
	assert.Equal(t, 0, int(ImageTypeRGB24))
	assert.Equal(t, 1, int(ImageTypeRGBA32))
	assert.Equal(t, 9, int(ImageTypeY))
	assert.Equal(t, "BGR24", ImageTypeBGR24.String())
	assert.Equal(t, "UNKNOWN", ImageType(42).String())
}
