package mrzworker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// pendingRequests counts the deferred requests not finished yet.
var pendingRequests atomic.Int64

// PendingRequests is polled by the http daemon before shutting down.
func PendingRequests() int64 {
	return pendingRequests.Load()
}

// MrzHttpHandler is for initial handling of mrz requests
type MrzHttpHandler struct {
	RabbitConfig RabbitConfig
	Sessions     *SessionRegistry
	Storage      *ResultStorage
	postClient   *MrzPostClient
	// decodeRemote is the RPC round trip, replaced in tests
	decodeRemote func(ctx context.Context, req *MrzRequest) (MrzResponse, error)
}

// NewMrzHttpHandler creates the handler. sessions serves in-place decodes and
// storage deferred requests; both may be nil when the feature is not used.
func NewMrzHttpHandler(r RabbitConfig, sessions *SessionRegistry, storage *ResultStorage) *MrzHttpHandler {
	h := &MrzHttpHandler{
		RabbitConfig: r,
		Sessions:     sessions,
		Storage:      storage,
		postClient:   NewMrzPostClient(),
	}
	h.decodeRemote = h.rpcDecode
	return h
}

func (s *MrzHttpHandler) rpcDecode(ctx context.Context, req *MrzRequest) (MrzResponse, error) {
	mrzClient, err := NewMrzRpcClient(s.RabbitConfig)
	if err != nil {
		return MrzResponse{}, err
	}
	return mrzClient.DecodeImage(ctx, req)
}

// checkAdmission writes 503 and returns false when new requests are refused.
func checkAdmission(w http.ResponseWriter) bool {
	ServiceCanAcceptMu.Lock()
	serviceCanAcceptLocal := ServiceCanAccept
	appStopLocal := AppStop
	ServiceCanAcceptMu.Unlock()
	if serviceCanAcceptLocal {
		return true
	}
	msg := "no resources available to process the request"
	if appStopLocal {
		msg = "service is going down"
	}
	log.Warn().Str("component", "MRZ_HTTP").Str("reason", msg).
		Msg("conditions for accepting new requests are not met")
	http.Error(w, msg, http.StatusServiceUnavailable)
	return false
}

func (s *MrzHttpHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Debug().Str("component", "MRZ_HTTP").Msg("serveHttp called")
	defer req.Body.Close()

	if req.Method != http.MethodPost {
		http.Error(w, "this endpoint only accepts POST requests", http.StatusMethodNotAllowed)
		return
	}
	if !checkAdmission(w) {
		return
	}

	mrzRequest := MrzRequest{}
	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(&mrzRequest); err != nil {
		log.Warn().Str("component", "MRZ_HTTP").Err(err).
			Msg("did the client send a valid json?")
		http.Error(w, "Unable to unmarshal json", http.StatusBadRequest)
		return
	}

	mrzResponse, httpStatus, err := s.HandleMrzRequest(req.Context(), &mrzRequest)
	writeMrzResponse(w, mrzResponse, httpStatus, err)
}

func writeMrzResponse(w http.ResponseWriter, mrzResponse MrzResponse, httpStatus int, err error) {
	if err != nil {
		errMsg := fmt.Sprintf("Unable to perform MRZ decode. Error: %v", err)
		log.Error().Err(err).Str("component", "MRZ_HTTP").Msg("Unable to perform MRZ decode")
		http.Error(w, errMsg, httpStatus)
		return
	}

	js, err := json.Marshal(mrzResponse)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	if _, err = w.Write(js); err != nil {
		log.Error().Err(err).Str("component", "MRZ_HTTP").Msg("http write() failed")
	}
}

// HandleMrzRequest assigns the request id and decodes the image in place or
// through the workers. Deferred requests return at once with status processing.
func (s *MrzHttpHandler) HandleMrzRequest(ctx context.Context, mrzRequest *MrzRequest) (MrzResponse, int, error) {
	requestID := uuid.NewString()
	mrzRequest.RequestID = requestID
	logger := log.With().Str("component", "MRZ_HTTP").Str("RequestID", requestID).Logger()

	if mrzRequest.ReplyTo != "" {
		replyTo, err := checkURLForReplyTo(mrzRequest.ReplyTo)
		if err != nil {
			return MrzResponse{}, http.StatusBadRequest, err
		}
		mrzRequest.ReplyTo = replyTo
		// a reply address only makes sense for deferred requests
		mrzRequest.Deferred = true
	}
	if mrzRequest.InplaceDecode && s.Sessions == nil {
		return MrzResponse{}, http.StatusBadRequest, errors.New("in-place decoding is disabled")
	}

	logger.Info().Str("request", mrzRequest.String()).Msg("new mrz request")

	if !mrzRequest.Deferred {
		mrzResponse, err := s.decode(ctx, mrzRequest)
		if err != nil {
			return MrzResponse{}, http.StatusInternalServerError, err
		}
		if mrzResponse.Status == StatusError {
			return mrzResponse, http.StatusUnprocessableEntity, nil
		}
		return mrzResponse, http.StatusOK, nil
	}

	if s.Storage == nil {
		return MrzResponse{}, http.StatusBadRequest, errors.New("deferred requests need a result storage")
	}
	processing := MrzResponse{ID: requestID, Status: StatusProcessing}
	if err := s.Storage.Put(processing); err != nil {
		return MrzResponse{}, http.StatusInternalServerError, err
	}

	pendingRequests.Add(1)
	go func() {
		defer pendingRequests.Add(-1)
		// the http request is gone by now
		ctx := context.Background()
		mrzResponse, err := s.decode(ctx, mrzRequest)
		if err != nil {
			mrzResponse = newMrzResponse(requestID, nil, err)
		}
		if err := s.Storage.Put(mrzResponse); err != nil {
			logger.Error().Err(err).Msg("could not store mrz result")
		}
		if mrzRequest.ReplyTo != "" {
			if err := s.postClient.postMrzResponse(ctx, mrzResponse, mrzRequest.ReplyTo); err != nil {
				logger.Warn().Err(err).Msg("could not deliver mrz result")
			}
		}
	}()
	return processing, http.StatusOK, nil
}

// decode returns a response with status done or error. The error return is
// reserved for failures of the transport.
func (s *MrzHttpHandler) decode(ctx context.Context, mrzRequest *MrzRequest) (MrzResponse, error) {
	if mrzRequest.InplaceDecode {
		// inplace decode: short circuit rabbitmq, and just call the engine directly
		session, err := s.Sessions.Session(ctx, mrzRequest.EngineType)
		if err != nil {
			return newMrzResponse(mrzRequest.RequestID, nil, err), nil
		}
		result, err := RecognizeRequest(ctx, session, mrzRequest)
		return newMrzResponse(mrzRequest.RequestID, result, err), nil
	}

	// add a new job to rabbitMQ and wait for worker to respond w/ result
	mrzResponse, err := s.decodeRemote(ctx, mrzRequest)
	if err != nil {
		return MrzResponse{}, err
	}
	mrzResponse.ID = mrzRequest.RequestID
	return mrzResponse, nil
}
