package mrzworker

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadImageBytes(t *testing.T) {
	img := pngBytes(t)

	req := MrzRequest{ImgBase64: base64.StdEncoding.EncodeToString(img), ImgUrl: "http://unused"}
	require.NoError(t, req.loadImageBytes())
	assert.Equal(t, img, req.ImgBytes)
	assert.False(t, req.hasBase64(), "base64 is dropped once decoded")

	req = MrzRequest{ImgBase64: "%%%"}
	assert.Error(t, req.loadImageBytes())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/img.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(img)
	}))
	defer server.Close()

	req = MrzRequest{ImgUrl: server.URL + "/img.png"}
	require.NoError(t, req.loadImageBytes())
	assert.Equal(t, img, req.ImgBytes)

	req = MrzRequest{ImgUrl: server.URL + "/missing.png"}
	assert.Error(t, req.loadImageBytes())

	req = MrzRequest{}
	assert.True(t, errors.Is(req.loadImageBytes(), ErrNoImage))
}

func TestMrzRequestStringOmitsImage(t *testing.T) {
	req := MrzRequest{ImgBytes: []byte("0123456789"), RequestID: "id", EngineType: EngineMock}
	s := req.String()
	assert.Contains(t, s, "img_bytes: 10")
	assert.Contains(t, s, "ENGINE_MOCK")
	assert.NotContains(t, s, "0123456789")
}

func TestNewMrzResponse(t *testing.T) {
	resp := newMrzResponse("a", &MrzResult{Zones: []MrzZone{}}, nil)
	assert.Equal(t, StatusDone, resp.Status)
	assert.JSONEq(t, `{"duration":0,"frame_id":0,"zones":[]}`, string(resp.Result))

	resp = newMrzResponse("b", nil, errors.New("boom"))
	assert.Equal(t, MrzResponse{ID: "b", Status: StatusError, Error: "boom"}, resp)

	resp = newMrzResponse("c", nil, nil)
	assert.Equal(t, StatusError, resp.Status)
}
