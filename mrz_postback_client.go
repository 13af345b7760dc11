package mrzworker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var postTimeout = 5 * time.Second

// MrzPostClient delivers the response of a deferred request to its reply_to address.
type MrzPostClient struct {
	client *http.Client
}

func NewMrzPostClient() *MrzPostClient {
	return &MrzPostClient{client: &http.Client{Timeout: postTimeout}}
}

func (c *MrzPostClient) postMrzResponse(ctx context.Context, resp MrzResponse, replyToAddress string) error {
	log.Info().Str("component", "MRZ_HTTP").Str("RequestID", resp.ID).
		Str("replyTo", replyToAddress).Msg("sending mrz result")

	jsonReply, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, replyToAddress, bytes.NewReader(jsonReply))
	if err != nil {
		return err
	}
	req.Close = true
	req.Header.Set("User-Agent", "open-mrz/1.0")
	req.Header.Set("X-Custom-Header", "automated reply")
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("component", "MRZ_HTTP").Str("RequestID", resp.ID).
			Msgf("mrz result was not delivered. %s did not respond", replyToAddress)
		return err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return err
	}
	if httpResp.StatusCode >= 300 {
		return errors.Errorf("%s answered %d: %s", replyToAddress, httpResp.StatusCode, body)
	}
	log.Debug().Str("component", "MRZ_HTTP").Str("RequestID", resp.ID).
		Str("body", string(body)).Msg("response from mrz result delivery")
	return nil
}
