package mrzworker

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/couchbaselabs/go.assert"
	"github.com/rs/zerolog/log"
)

// serves an image and decodes it in place through a real http round trip
func TestMrzHttpHandlerImgUrl(t *testing.T) {
	img := pngBytes(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/img", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(img)
	})
	mux.Handle("/mrz", newTestHandler(t, false))
	server := httptest.NewServer(mux)
	defer server.Close()

	mrzRequest := MrzRequest{
		ImgUrl:        server.URL + "/img",
		EngineType:    EngineMock,
		InplaceDecode: true,
	}
	jsonBytes, err := json.Marshal(mrzRequest)
	assert.True(t, err == nil)

	resp, err := http.Post(server.URL+"/mrz", "application/json", bytes.NewReader(jsonBytes))
	assert.True(t, err == nil)
	defer resp.Body.Close()
	assert.Equals(t, resp.StatusCode, http.StatusOK)

	mrzResponse := MrzResponse{}
	err = json.NewDecoder(resp.Body).Decode(&mrzResponse)
	assert.True(t, err == nil)
	log.Info().Str("component", "TEST").Str("id", mrzResponse.ID).Msg("got response")
	assert.Equals(t, mrzResponse.Status, StatusDone)
	assert.True(t, mrzResponse.ID != "")

	result, err := DecodeResult(string(mrzResponse.Result))
	assert.True(t, err == nil)
	assert.Equals(t, len(result.Zones), 1)
}
