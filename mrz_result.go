package mrzworker

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/xf0e/open-mrz/mrz"
)

// MrzLine is one recognized text line of a zone.
type MrzLine struct {
	Confidence float64    `json:"confidence"`
	Text       string     `json:"text"`
	WarpedBox  [8]float64 `json:"warpedBox"`
}

// MrzZone is one detected machine readable zone. Document, Checks and
// ParseError are only set by Enrich.
type MrzZone struct {
	Lines     []MrzLine     `json:"lines"`
	WarpedBox [8]float64    `json:"warpedBox"`
	Document  *mrz.Document `json:"document,omitempty"`
	Checks    []mrz.Check   `json:"checks,omitempty"`
	Valid     *bool         `json:"valid,omitempty"`
	ParseErr  string        `json:"parse_error,omitempty"`
}

// MrzResult mirrors the JSON returned by the engines' process call.
type MrzResult struct {
	Duration int       `json:"duration"`
	FrameID  int       `json:"frame_id"`
	Zones    []MrzZone `json:"zones"`
}

// DecodeResult parses the engine JSON. An empty string is a result without zones.
func DecodeResult(js string) (*MrzResult, error) {
	result := &MrzResult{}
	if strings.TrimSpace(js) == "" {
		return result, nil
	}
	if err := json.Unmarshal([]byte(js), result); err != nil {
		return nil, errors.Wrap(err, "could not decode engine result")
	}
	return result, nil
}

// Texts returns the line texts of a zone.
func (z MrzZone) Texts() []string {
	texts := make([]string, 0, len(z.Lines))
	for _, l := range z.Lines {
		texts = append(texts, l.Text)
	}
	return texts
}

// Enrich parses and validates every zone. Failures are recorded on the zone.
func (r *MrzResult) Enrich() {
	for i := range r.Zones {
		zone := &r.Zones[i]
		doc, err := mrz.Parse(zone.Texts())
		if err != nil {
			zone.ParseErr = err.Error()
			continue
		}
		zone.Document = doc
		zone.Checks = mrz.Validate(doc)
		valid := mrz.AllValid(zone.Checks)
		zone.Valid = &valid
	}
}

func (r *MrzResult) JSON(pretty bool) (string, error) {
	var (
		js  []byte
		err error
	)
	if pretty {
		js, err = json.MarshalIndent(r, "", "  ")
	} else {
		js, err = json.Marshal(r)
	}
	if err != nil {
		return "", err
	}
	return string(js), nil
}

// boxOf returns the corners of a rectangle, clockwise from top-left.
func boxOf(x0, y0, x1, y1 float64) [8]float64 {
	return [8]float64{x0, y0, x1, y0, x1, y1, x0, y1}
}

// unionBox returns the bounding rectangle of the line boxes.
func unionBox(lines []MrzLine) [8]float64 {
	if len(lines) == 0 {
		return [8]float64{}
	}
	x0, y0 := lines[0].WarpedBox[0], lines[0].WarpedBox[1]
	x1, y1 := lines[0].WarpedBox[4], lines[0].WarpedBox[5]
	for _, l := range lines[1:] {
		x0 = minFloat(x0, l.WarpedBox[0])
		y0 = minFloat(y0, l.WarpedBox[1])
		x1 = maxFloat(x1, l.WarpedBox[4])
		y1 = maxFloat(y1, l.WarpedBox[5])
	}
	return boxOf(x0, y0, x1, y1)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
