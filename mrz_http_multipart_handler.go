package mrzworker

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// MrzHttpMultipartHandler accepts multipart/related uploads: a JSON part with
// the request and an image part.
type MrzHttpMultipartHandler struct {
	handler *MrzHttpHandler
}

func NewMrzHttpMultipartHandler(h *MrzHttpHandler) *MrzHttpMultipartHandler {
	return &MrzHttpMultipartHandler{handler: h}
}

func (*MrzHttpMultipartHandler) extractParts(req *http.Request) (MrzRequest, error) {

	mrzReq := MrzRequest{}

	if req.Method != http.MethodPost {
		return mrzReq, fmt.Errorf("this endpoint only accepts POST requests")
	}

	contentType, attrs, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil {
		return mrzReq, fmt.Errorf("invalid content type: %v", err)
	}
	log.Debug().Str("component", "MRZ_HTTP").
		Str("content_type", contentType).
		Msg("request to mrz-file-upload")

	if contentType != "multipart/related" {
		return mrzReq, fmt.Errorf("expected multipart related")
	}

	reader := multipart.NewReader(req.Body, attrs["boundary"])

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return mrzReq, fmt.Errorf("failed to read mime part: %v", err)
		}

		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))

		switch {
		case partType == "application/json":
			decoder := json.NewDecoder(part)
			if err := decoder.Decode(&mrzReq); err != nil {
				return mrzReq, fmt.Errorf("unable to unmarshal json: %s", err)
			}
			part.Close()
		case strings.HasPrefix(partType, "image/"):
			partContents, err := io.ReadAll(part)
			if err != nil {
				return mrzReq, fmt.Errorf("failed to read mime part: %v", err)
			}
			mrzReq.ImgBytes = partContents
			return mrzReq, nil
		default:
			return mrzReq, fmt.Errorf("expected content-type: image/*")
		}
	}

	return mrzReq, fmt.Errorf("no image part found")
}

func (s *MrzHttpMultipartHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {

	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Warn().Err(err).Str("component", "MRZ_HTTP").Msg(req.RequestURI + " request Body could not be closed")
		}
	}(req.Body)

	if !checkAdmission(w) {
		return
	}

	mrzRequest, err := s.extractParts(req)
	if err != nil {
		log.Error().Err(err).Str("component", "MRZ_HTTP").Msg("could not extract multipart/related parts")
		http.Error(w, fmt.Sprintf("Error extracting multipart/related parts: %v", err), http.StatusBadRequest)
		return
	}

	mrzResponse, httpStatus, err := s.handler.HandleMrzRequest(req.Context(), &mrzRequest)
	writeMrzResponse(w, mrzResponse, httpStatus, err)
}
