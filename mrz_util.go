package mrzworker

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
)

var downloadTimeout = 10 * time.Second

func url2bytes(url string) ([]byte, error) {

	var client = &http.Client{Timeout: downloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s returned %d", url, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return bodyBytes, nil

}

// createTempFileName generating a file name within of a temp directory. If function argument ist empty string
// file name will be generated in ksuid format.
func createTempFileName(fileName string) string {
	tempDir := os.TempDir()

	if fileName == "" {
		ksuidRaw := ksuid.New()
		fileName = ksuidRaw.String()
	}

	return filepath.Join(tempDir, fileName)
}

// detectFileType guesses the image format from its magic bytes
func detectFileType(buffer []byte) string {
	switch {
	case bytes.HasPrefix(buffer, []byte{0xFF, 0xD8, 0xFF}):
		return "JPEG"
	case bytes.HasPrefix(buffer, []byte{0x89, 'P', 'N', 'G'}):
		return "PNG"
	case bytes.HasPrefix(buffer, []byte("GIF8")):
		return "GIF"
	case bytes.HasPrefix(buffer, []byte("BM")):
		return "BMP"
	case bytes.HasPrefix(buffer, []byte{0x49, 0x49, 0x2A, 0x0}),
		bytes.HasPrefix(buffer, []byte{0x4D, 0x4D, 0x0, 0x2A}):
		return "TIFF"
	case len(buffer) > 11 && bytes.Equal(buffer[0:4], []byte("RIFF")) && bytes.Equal(buffer[8:12], []byte("WEBP")):
		return "WEBP"
	}
	return "UNKNOWN"
}

// checkURLForReplyTo Checks if provided string is a valid URL
func checkURLForReplyTo(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		err = fmt.Errorf("provided %s URI must be an absolute URL", u.String())
	}
	return u.String(), err
}

// timeTrack used to measure time of selected operations
func timeTrack(start time.Time, operation string, message string, requestID string) {
	elapsed := time.Since(start)
	if requestID == "" {
		log.Info().Str("component", "MRZ_WORKER").Dur(operation, elapsed).
			Timestamp().Msg(message)
		return
	}
	log.Info().Str("component", "MRZ_WORKER").Dur(operation, elapsed).
		Str("RequestID", requestID).Timestamp().Msg(message)
}

// StripPasswordFromUrl strips passwords from URL
func StripPasswordFromUrl(urlToLog *url.URL) string {

	pass, passSet := urlToLog.User.Password()

	if passSet {
		return strings.Replace(urlToLog.String(), pass+"@", "***@", 1)
	}
	return urlToLog.String()
}

// StripPasswordFromAmqpURI is StripPasswordFromUrl for raw URIs
func StripPasswordFromAmqpURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<unparsable uri>"
	}
	return StripPasswordFromUrl(u)
}
