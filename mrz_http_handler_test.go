package mrzworker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 20))))
	return buf.Bytes()
}

func newTestHandler(t *testing.T, withStorage bool) *MrzHttpHandler {
	SetServiceCanAccept(true)
	sessions := NewSessionRegistry(DefaultEngineConfig())
	t.Cleanup(func() { sessions.Close() })

	var storage *ResultStorage
	if withStorage {
		var err error
		storage, err = NewResultStorage(filepath.Join(t.TempDir(), "results.db"))
		require.NoError(t, err)
		t.Cleanup(func() {
			// deferred requests still write to the storage
			require.Eventually(t, func() bool { return PendingRequests() == 0 }, 5*time.Second, 10*time.Millisecond)
			storage.Close()
		})
	}
	return NewMrzHttpHandler(DefaultRabbitConfig(), sessions, storage)
}

func postJSON(t *testing.T, h http.Handler, body interface{}) *httptest.ResponseRecorder {
	js, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/mrz", bytes.NewReader(js))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) MrzResponse {
	resp := MrzResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestMrzHttpHandlerInplace(t *testing.T) {
	h := newTestHandler(t, false)
	rec := postJSON(t, h, map[string]interface{}{
		"img_base64":     base64.StdEncoding.EncodeToString(pngBytes(t)),
		"engine":         "mock",
		"inplace_decode": true,
		"parse":          true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeResponse(t, rec)
	assert.Equal(t, StatusDone, resp.Status)
	assert.NotEmpty(t, resp.ID)

	result, err := DecodeResult(string(resp.Result))
	require.NoError(t, err)
	require.Len(t, result.Zones, 1)
	require.NotNil(t, result.Zones[0].Document)
	assert.Equal(t, "TD3", result.Zones[0].Document.Type.String())
	require.NotNil(t, result.Zones[0].Valid)
	assert.True(t, *result.Zones[0].Valid)
}

func TestMrzHttpHandlerInplaceBadImage(t *testing.T) {
	h := newTestHandler(t, false)
	rec := postJSON(t, h, MrzRequest{ImgBytes: []byte("no image"), EngineType: EngineMock, InplaceDecode: true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, StatusError, resp.Status)
	assert.NotEmpty(t, resp.Error)

	rec = postJSON(t, h, MrzRequest{EngineType: EngineMock, InplaceDecode: true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeResponse(t, rec).Error, ErrNoImage.Error())
}

func TestMrzHttpHandlerRejects(t *testing.T) {
	h := newTestHandler(t, false)

	req := httptest.NewRequest(http.MethodPost, "/mrz", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/mrz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = postJSON(t, h, MrzRequest{ImgBytes: pngBytes(t), Deferred: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "deferred without storage")

	rec = postJSON(t, h, MrzRequest{ImgBytes: pngBytes(t), ReplyTo: "not-a-url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.Sessions = nil
	rec = postJSON(t, h, MrzRequest{ImgBytes: pngBytes(t), InplaceDecode: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMrzHttpHandlerAdmission(t *testing.T) {
	h := newTestHandler(t, false)
	SetServiceCanAccept(false)
	defer SetServiceCanAccept(true)

	rec := postJSON(t, h, MrzRequest{ImgBytes: pngBytes(t), InplaceDecode: true})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no resources available")
}

func TestMrzHttpHandlerRemote(t *testing.T) {
	h := newTestHandler(t, false)
	var got *MrzRequest
	h.decodeRemote = func(ctx context.Context, req *MrzRequest) (MrzResponse, error) {
		got = req
		return MrzResponse{Status: StatusDone, Result: json.RawMessage(`{"zones":[]}`)}, nil
	}

	rec := postJSON(t, h, MrzRequest{ImgUrl: "http://example.com/a.jpg", EngineType: EngineTesseract})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, got)
	assert.Equal(t, got.RequestID, resp.ID, "response carries the request id")
	assert.Equal(t, EngineTesseract, got.EngineType)

	h.decodeRemote = func(ctx context.Context, req *MrzRequest) (MrzResponse, error) {
		return MrzResponse{Status: StatusProcessing}, errors.New("timeout waiting for RPC response")
	}
	rec = postJSON(t, h, MrzRequest{ImgUrl: "http://example.com/a.jpg"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "timeout")
}

func TestMrzHttpHandlerDeferred(t *testing.T) {
	h := newTestHandler(t, true)

	delivered := make(chan MrzResponse, 1)
	replyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := MrzResponse{}
		_ = json.NewDecoder(r.Body).Decode(&resp)
		delivered <- resp
	}))
	defer replyServer.Close()

	rec := postJSON(t, h, MrzRequest{
		ImgBytes:      pngBytes(t),
		EngineType:    EngineMock,
		InplaceDecode: true,
		ReplyTo:       replyServer.URL,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	accepted := decodeResponse(t, rec)
	assert.Equal(t, StatusProcessing, accepted.Status)
	require.NotEmpty(t, accepted.ID)

	select {
	case resp := <-delivered:
		assert.Equal(t, accepted.ID, resp.ID)
		assert.Equal(t, StatusDone, resp.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("result was not posted to reply_to")
	}

	status := NewMrzHttpStatusHandler(h.Storage)
	var stored MrzResponse
	require.Eventually(t, func() bool {
		rec := postJSON(t, status, map[string]string{"request_id": accepted.ID})
		if rec.Code != http.StatusOK {
			return false
		}
		stored = decodeResponse(t, rec)
		return stored.Status == StatusDone
	}, 5*time.Second, 10*time.Millisecond)

	result, err := DecodeResult(string(stored.Result))
	require.NoError(t, err)
	assert.Len(t, result.Zones, 1)
}

func TestMrzHttpStatusHandler(t *testing.T) {
	storage, err := NewResultStorage(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer storage.Close()
	h := NewMrzHttpStatusHandler(storage)

	rec := postJSON(t, h, map[string]string{"request_id": "unknown"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, h, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, storage.Put(MrzResponse{ID: "x", Status: StatusError, Error: "boom"}))
	rec = postJSON(t, h, map[string]string{"request_id": "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MrzResponse{ID: "x", Status: StatusError, Error: "boom"}, decodeResponse(t, rec))

	rec = postJSON(t, NewMrzHttpStatusHandler(nil), map[string]string{"request_id": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartRequest(t *testing.T, parts map[string][]byte, order []string) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, contentType := range order {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(parts[contentType])
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/mrz-file-upload", &body)
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())
	return req
}

func TestMrzHttpMultipartHandler(t *testing.T) {
	h := NewMrzHttpMultipartHandler(newTestHandler(t, false))

	req := multipartRequest(t, map[string][]byte{
		"application/json": []byte(`{"engine":"mock","inplace_decode":true}`),
		"image/png":        pngBytes(t),
	}, []string{"application/json", "image/png"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, StatusDone, decodeResponse(t, rec).Status)

	req = multipartRequest(t, map[string][]byte{
		"text/plain": []byte("hello"),
	}, []string{"text/plain"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/mrz-file-upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstrumentHandler(t *testing.T) {
	before := testutil.ToFloat64(counter.WithLabelValues("418", "post"))
	h := InstrumentHandler("teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x")))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter.WithLabelValues("418", "post")))
}

func TestGenerateLandingPage(t *testing.T) {
	page := GenerateLandingPage(map[string]string{"/mrz": "decode an image"}, []string{"/mrz"})
	assert.Contains(t, page, "open-mrz")
	assert.Contains(t, page, "<code>/mrz</code> decode an image")
}
