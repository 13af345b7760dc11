package mrzworker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

var ErrNoImage = errors.New("request has no image: set img_url, img_base64 or img_bytes")

type MrzRequest struct {
	ImgUrl        string        `json:"img_url"`
	ImgBase64     string        `json:"img_base64"`
	ImgBytes      []byte        `json:"img_bytes,omitempty"`
	EngineType    MrzEngineType `json:"engine"`
	ExifTranspose bool          `json:"exif_transpose"`
	Parse         bool          `json:"parse"`
	InplaceDecode bool          `json:"inplace_decode"`
	Deferred      bool          `json:"deferred"`
	ReplyTo       string        `json:"reply_to"`
	RequestID     string        `json:"request_id"`
	Priority      uint8         `json:"priority"`
}

// MrzResponse is returned by the HTTP API, the RPC worker and the status endpoint.
type MrzResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (r *MrzRequest) hasBase64() bool {
	return r.ImgBase64 != ""
}

func (r *MrzRequest) decodeBase64() error {
	bytes, err := base64.StdEncoding.DecodeString(r.ImgBase64)
	if err != nil {
		return errors.Wrap(err, "invalid img_base64")
	}
	r.ImgBytes = bytes
	r.ImgBase64 = ""
	return nil
}

func (r *MrzRequest) downloadImgUrl() error {
	bytes, err := url2bytes(r.ImgUrl)
	if err != nil {
		return errors.Wrapf(err, "could not download %s", r.ImgUrl)
	}
	r.ImgBytes = bytes
	return nil
}

// loadImageBytes makes sure ImgBytes is set, preferring bytes over base64
// over the image url.
func (r *MrzRequest) loadImageBytes() error {
	switch {
	case len(r.ImgBytes) > 0:
		return nil
	case r.hasBase64():
		return r.decodeBase64()
	case r.ImgUrl != "":
		return r.downloadImgUrl()
	}
	return ErrNoImage
}

func (r MrzRequest) String() string {
	return fmt.Sprintf("MrzRequest{id: %s, engine: %s, img_url: %q, img_bytes: %d, base64: %t, parse: %t, inplace: %t, deferred: %t}",
		r.RequestID, r.EngineType, r.ImgUrl, len(r.ImgBytes), r.hasBase64(), r.Parse, r.InplaceDecode, r.Deferred)
}

// RecognizeRequest decodes the request image and runs it through the session.
func RecognizeRequest(ctx context.Context, session *Session, req *MrzRequest) (*MrzResult, error) {
	defer timeTrack(time.Now(), "recognize", "request recognized", req.RequestID)
	if err := req.loadImageBytes(); err != nil {
		return nil, err
	}
	frame, err := DecodeFrame(req.ImgBytes, req.ExifTranspose)
	if err != nil {
		return nil, err
	}
	defer frame.Release()

	log.Debug().Str("component", "MRZ_WORKER").Str("RequestID", req.RequestID).
		Str("image_type", frame.Type.String()).Int("width", frame.Width).Int("height", frame.Height).
		Int("orientation", frame.Orientation).Msg("image decoded")

	js, err := session.Recognize(ctx, frame)
	if err != nil {
		return nil, err
	}
	result, err := DecodeResult(js)
	if err != nil {
		return nil, err
	}
	if result.Zones == nil {
		result.Zones = []MrzZone{}
	}
	if req.Parse {
		result.Enrich()
	}
	return result, nil
}

// newMrzResponse turns a recognition outcome into a response with status done or error.
func newMrzResponse(id string, result *MrzResult, err error) MrzResponse {
	resp := MrzResponse{ID: id, Status: StatusDone}
	if err == nil && result != nil {
		js, jsErr := result.JSON(false)
		if jsErr == nil {
			resp.Result = json.RawMessage(js)
			return resp
		}
		err = jsErr
	}
	if err == nil {
		err = errors.New("no result")
	}
	resp.Status = StatusError
	resp.Error = err.Error()
	return resp
}
