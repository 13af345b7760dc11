package mrzworker

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xf0e/open-mrz/mrz"
)

const separator = "========================="

// readMrzFile loads the lines of a text file and logs each of them with its length.
func readMrzFile(path string) ([]string, error) {
	lines, err := mrz.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for i, line := range lines {
		log.Info().Str("component", "MRZ_TOOLS").Msgf("Line #%d: %s [%d]", i, line, len(line))
	}
	return lines, nil
}

// RunParser prints the document type and fields of the MRZ stored in path.
func RunParser(path string, out io.Writer) error {
	lines, err := readMrzFile(path)
	if err != nil {
		return err
	}
	doc, err := mrz.Parse(lines)
	if err != nil {
		return errors.Wrap(err, "processing failed")
	}

	fmt.Fprintln(out, separator)
	fmt.Fprintf(out, "=== Document Type: %s ===\n", doc.Type)
	for _, f := range doc.Fields {
		fmt.Fprintf(out, "%s:\t%s\n", f.Name, f.Value)
	}
	_, err = fmt.Fprintln(out, separator)
	return err
}

func checkLabel(valid bool) string {
	if valid {
		return "OK"
	}
	return "**NOK**"
}

// RunValidation prints the check digit verifications of the MRZ stored in path.
// A failed check is reported, not returned.
func RunValidation(path string, out io.Writer) error {
	lines, err := readMrzFile(path)
	if err != nil {
		return err
	}
	docType, checks, err := mrz.ValidateLines(lines)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, separator)
	fmt.Fprintf(out, "=== Document Type: %s ===\n", docType)
	for _, c := range checks {
		fmt.Fprintf(out, "%s: %s\n", c.Name, checkLabel(c.Valid))
	}
	_, err = fmt.Fprintln(out, separator)
	return err
}
