package mrzworker

import (
	"strings"
)

var mrzLineLengths = []int{30, 36, 44}

// lineSlack is how many fillers the OCR may drop or add at the end of a line.
const lineSlack = 2

// NormalizeMrzLine uppercases, maps guillemets to fillers and drops everything
// outside [A-Z0-9<].
func NormalizeMrzLine(line string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(line) {
		switch {
		case r == '«' || r == '‹' || r == '≤':
			sb.WriteRune('<')
		case r == '<' || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// fitLength pads or truncates line to the closest MRZ length.
func fitLength(line string) (string, bool) {
	for _, l := range mrzLineLengths {
		diff := len(line) - l
		if diff < -lineSlack || diff > lineSlack {
			continue
		}
		if diff < 0 {
			return line + strings.Repeat("<", -diff), true
		}
		if diff > 0 {
			if strings.Trim(line[l:], "<") != "" {
				continue
			}
			return line[:l], true
		}
		return line, true
	}
	return "", false
}

// mrzCandidate is a normalized line and the index of the raw line it comes from.
type mrzCandidate struct {
	index int
	text  string
}

// extractMrzGroups groups consecutive raw lines into MRZ candidates:
// three lines of 30, or two lines of 36 or 44 characters.
func extractMrzGroups(raw []string) [][]mrzCandidate {
	var (
		groups []mrzCandidate
		result [][]mrzCandidate
	)
	flush := func() {
		result = append(result, groupLines(groups)...)
		groups = nil
	}

	for i, r := range raw {
		normalized := NormalizeMrzLine(r)
		if normalized == "" {
			continue
		}
		line, ok := fitLength(normalized)
		if !ok || !strings.Contains(line, "<") {
			flush()
			continue
		}
		groups = append(groups, mrzCandidate{index: i, text: line})
	}
	flush()
	return result
}

// ExtractMrzLines returns the MRZ line groups found in OCR text.
func ExtractMrzLines(text string) [][]string {
	var out [][]string
	for _, group := range extractMrzGroups(strings.Split(text, "\n")) {
		lines := make([]string, 0, len(group))
		for _, c := range group {
			lines = append(lines, c.text)
		}
		out = append(out, lines)
	}
	return out
}

func groupLines(lines []mrzCandidate) [][]mrzCandidate {
	var groups [][]mrzCandidate
	for i := 0; i < len(lines); {
		n := 2
		if len(lines[i].text) == 30 {
			n = 3
		}
		if i+n > len(lines) || !sameLength(lines[i:i+n]) {
			i++
			continue
		}
		groups = append(groups, lines[i:i+n])
		i += n
	}
	return groups
}

func sameLength(lines []mrzCandidate) bool {
	for _, l := range lines[1:] {
		if len(l.text) != len(lines[0].text) {
			return false
		}
	}
	return true
}
