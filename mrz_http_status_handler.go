package mrzworker

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type MrzHttpStatusHandler struct {
	Storage *ResultStorage
}

func NewMrzHttpStatusHandler(storage *ResultStorage) *MrzHttpStatusHandler {
	return &MrzHttpStatusHandler{Storage: storage}
}

type statusRequest struct {
	RequestID string `json:"request_id"`
}

func (s *MrzHttpStatusHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	log.Debug().Str("component", "MRZ_STATUS").Msg("serveHttp called")

	if s.Storage == nil {
		http.Error(w, "result storage is disabled", http.StatusNotFound)
		return
	}

	statusReq := statusRequest{}
	if err := json.NewDecoder(req.Body).Decode(&statusReq); err != nil || statusReq.RequestID == "" {
		log.Warn().Err(err).Str("component", "MRZ_STATUS").Msg("invalid status request")
		http.Error(w, "unable to unmarshal json, request_id is required", http.StatusBadRequest)
		return
	}

	mrzResponse, err := s.Storage.Get(statusReq.RequestID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "no such request "+statusReq.RequestID, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("component", "MRZ_STATUS").Str("RequestID", statusReq.RequestID).
			Msg("unable to perform status check")
		http.Error(w, "unable to perform status check", http.StatusInternalServerError)
		return
	}

	js, err := json.Marshal(mrzResponse)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Error().Err(err).Str("component", "MRZ_STATUS").Msg("http write() failed")
	}
}
