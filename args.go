package mrzworker

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrOddArgCount           = errors.New("number of args must be even")
	ErrInvalidKey            = errors.New("invalid key")
	ErrImageRequired         = errors.New("--image required")
	ErrImageNotFound         = errors.New("image file does not exist")
	ErrUnsupportedPixelDepth = errors.New("invalid BPP")
)

// ParseArgs reads "--key value" pairs. args must not contain the program name.
// Later keys overwrite earlier ones.
func ParseArgs(args []string) (map[string]string, error) {
	if len(args)%2 != 0 {
		return nil, errors.Wrapf(ErrOddArgCount, "got %d", len(args))
	}

	values := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key := args[i]
		if len(key) < 2 || !strings.HasPrefix(key, "--") {
			return nil, errors.Wrapf(ErrInvalidKey, "%q", key)
		}
		values[key] = args[i+1]
	}
	return values, nil
}

// ParseBool is true only for "true", ignoring case.
func ParseBool(value string) bool {
	return strings.EqualFold(value, "true")
}

// boolArg returns def when key is missing.
func boolArg(values map[string]string, key string, def bool) bool {
	if v, ok := values[key]; ok {
		return ParseBool(v)
	}
	return def
}
