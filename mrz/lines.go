package mrz

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ReadLines reads the MRZ lines of r, one per text line. Carriage returns are
// dropped so files written on Windows read the same.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.ReplaceAll(scanner.Text(), "\r", ""))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "could not read lines")
	}
	return lines, nil
}

// ReadFile reads the MRZ lines stored in a text file.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open file %s", path)
	}
	defer f.Close()
	return ReadLines(f)
}
