package mrz

import (
	"github.com/pkg/errors"
)

var weights = [3]int{7, 3, 1}

// charValue maps 0-9 to 0-9, A-Z to 10-35 and the filler (or anything else) to 0.
func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 0
}

// CheckDigit computes the ICAO 9303 check digit of s.
func CheckDigit(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * weights[i%3]
	}
	return sum % 10
}

// Check is the result of one check digit verification.
type Check struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
}

type checkRule struct {
	name     string
	segments []segment
	digit    position
}

type position struct {
	line, col int
}

type segment struct {
	line, from, to int // to is exclusive
}

func seg(line, from, to int) segment {
	return segment{line: line, from: from, to: to}
}

// Composite segments are concatenated so weights continue from one segment to the next.
var checkRules = map[DocumentType][]checkRule{
	DocumentTypeTD1: {
		{"document number", []segment{seg(0, 5, 14)}, position{0, 14}},
		{"birth date", []segment{seg(1, 0, 6)}, position{1, 6}},
		{"expiry date", []segment{seg(1, 8, 14)}, position{1, 14}},
		{"composite", []segment{seg(0, 5, 30), seg(1, 0, 7), seg(1, 8, 15), seg(1, 18, 29)}, position{1, 29}},
	},
	DocumentTypeTD2: {
		{"document number", []segment{seg(1, 0, 9)}, position{1, 9}},
		{"birth date", []segment{seg(1, 13, 19)}, position{1, 19}},
		{"expiry date", []segment{seg(1, 21, 27)}, position{1, 27}},
		{"composite", []segment{seg(1, 0, 10), seg(1, 13, 20), seg(1, 21, 35)}, position{1, 35}},
	},
	DocumentTypeTD3: {
		{"passport number", []segment{seg(1, 0, 9)}, position{1, 9}},
		{"birth date", []segment{seg(1, 13, 19)}, position{1, 19}},
		{"expiry date", []segment{seg(1, 21, 27)}, position{1, 27}},
		{"personal number", []segment{seg(1, 28, 42)}, position{1, 42}},
		{"composite", []segment{seg(1, 0, 10), seg(1, 13, 20), seg(1, 21, 43)}, position{1, 43}},
	},
	DocumentTypeMRVA: {
		{"document number", []segment{seg(1, 0, 9)}, position{1, 9}},
		{"birth date", []segment{seg(1, 13, 19)}, position{1, 19}},
		{"expiry date", []segment{seg(1, 21, 27)}, position{1, 27}},
	},
	DocumentTypeMRVB: {
		{"document number", []segment{seg(1, 0, 9)}, position{1, 9}},
		{"birth date", []segment{seg(1, 13, 19)}, position{1, 19}},
		{"expiry date", []segment{seg(1, 21, 27)}, position{1, 27}},
	},
}

// Validate verifies every check digit of a parsed document.
func Validate(doc *Document) []Check {
	rules := checkRules[doc.Type]
	checks := make([]Check, 0, len(rules))
	for _, r := range rules {
		var data []byte
		for _, s := range r.segments {
			data = append(data, doc.Lines[s.line][s.from:s.to]...)
		}
		expected := charValue(doc.Lines[r.digit.line][r.digit.col])
		checks = append(checks, Check{Name: r.name, Valid: CheckDigit(string(data)) == expected})
	}
	return checks
}

// ValidateLines detects the document type of raw lines and verifies their check digits.
// Only line count and lengths are required, field syntax is not checked.
func ValidateLines(lines []string) (DocumentType, []Check, error) {
	docType, err := DetectType(lines)
	if err != nil {
		return DocumentTypeUnknown, nil, errors.Wrap(err, "could not validate lines")
	}
	return docType, Validate(&Document{Type: docType, Lines: lines}), nil
}

// AllValid reports whether every check passed.
func AllValid(checks []Check) bool {
	for _, c := range checks {
		if !c.Valid {
			return false
		}
	}
	return true
}
